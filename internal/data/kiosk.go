package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
)

// KioskStatus is the dispenser node's health as the coordinator records it: each authenticated
// request marks the kiosk active, except that an operator-set maintenance or error status is left
// in place. The coordinator never pushes status onto a kiosk.
type KioskStatus string

const (
	KioskStatusActive      KioskStatus = "active"
	KioskStatusInactive    KioskStatus = "inactive"
	KioskStatusMaintenance KioskStatus = "maintenance"
	KioskStatusError       KioskStatus = "error"
)

func (s KioskStatus) Validate() error {
	switch s {
	case KioskStatusActive, KioskStatusInactive, KioskStatusMaintenance, KioskStatusError:
		return nil
	default:
		return fmt.Errorf("invalid kiosk status %q", s)
	}
}

// Kiosk is upserted on every authenticated request carrying an X-Kiosk-Id header; it is never deleted.
type Kiosk struct {
	ID         string      `db:"id"`
	Status     KioskStatus `db:"status"`
	LastSeenAt time.Time   `db:"last_seen_at"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

type KioskModel struct {
	dbConnectionPool db.DBConnectionPool
}

// Upsert records a sighting of kioskID, setting last_seen_at = now and status = active unless an
// operator has already placed the kiosk into maintenance or error, in which case only last_seen_at moves.
func (m *KioskModel) Upsert(ctx context.Context, sqlExec db.SQLExecuter, kioskID string) (*Kiosk, error) {
	const q = `
		INSERT INTO kiosks (id, status, last_seen_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET last_seen_at = NOW(),
			status = CASE
				WHEN kiosks.status IN ('maintenance', 'error') THEN kiosks.status
				ELSE EXCLUDED.status
			END
		RETURNING *
	`

	var kiosk Kiosk
	if err := sqlExec.GetContext(ctx, &kiosk, sqlExec.Rebind(q), kioskID, KioskStatusActive); err != nil {
		return nil, fmt.Errorf("upserting kiosk %s: %w", kioskID, err)
	}

	return &kiosk, nil
}

func (m *KioskModel) Get(ctx context.Context, kioskID string) (*Kiosk, error) {
	const q = `SELECT * FROM kiosks WHERE id = $1`

	var kiosk Kiosk
	if err := m.dbConnectionPool.GetContext(ctx, &kiosk, m.dbConnectionPool.Rebind(q), kioskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting kiosk %s: %w", kioskID, err)
	}

	return &kiosk, nil
}
