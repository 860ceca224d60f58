package db

import (
	"fmt"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/monitor"
)

// DBTransactionWithMetrics wraps a DBTransaction with the same per-query metrics as SQLExecuterWithMetrics.
type DBTransactionWithMetrics struct {
	SQLExecuterWithMetrics
	dbTransaction DBTransaction
}

func NewDBTransactionWithMetrics(dbTx DBTransaction, monitorServiceInterface monitor.MonitorServiceInterface) (*DBTransactionWithMetrics, error) {
	sqlExec, err := NewSQLExecuterWithMetrics(dbTx, monitorServiceInterface)
	if err != nil {
		return nil, fmt.Errorf("error creating SQLExecuterWithMetrics for transaction: %w", err)
	}

	return &DBTransactionWithMetrics{
		SQLExecuterWithMetrics: *sqlExec,
		dbTransaction:          dbTx,
	}, nil
}

func (d *DBTransactionWithMetrics) Commit() error {
	return d.dbTransaction.Commit()
}

func (d *DBTransactionWithMetrics) Rollback() error {
	return d.dbTransaction.Rollback()
}

// make sure *DBTransactionWithMetrics implements DBTransaction:
var _ DBTransaction = (*DBTransactionWithMetrics)(nil)
