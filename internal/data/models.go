package data

import (
	"errors"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
)

var (
	ErrRecordNotFound          = errors.New("record not found")
	ErrRecordAlreadyExists     = errors.New("record already exists")
	ErrMismatchNumRowsAffected = errors.New("mismatch number of rows affected")
	ErrMissingInput            = errors.New("missing input")
)

// Models aggregates the typed accessors the Store exposes over the coordinator's durable state.
type Models struct {
	Kiosks            *KioskModel
	Transactions      *TransactionModel
	DispenseJobs      *DispenseJobModel
	TransactionEvents *TransactionEventModel
	DBConnectionPool  db.DBConnectionPool
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}

	return &Models{
		Kiosks:            &KioskModel{dbConnectionPool: dbConnectionPool},
		Transactions:      &TransactionModel{dbConnectionPool: dbConnectionPool},
		DispenseJobs:      &DispenseJobModel{dbConnectionPool: dbConnectionPool},
		TransactionEvents: &TransactionEventModel{dbConnectionPool: dbConnectionPool},
		DBConnectionPool:  dbConnectionPool,
	}, nil
}
