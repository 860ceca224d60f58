package data

import (
	"testing"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
	"github.com/kioskpay/kiosk-coordinator-backend/db/dbtest"
	"github.com/stretchr/testify/require"
)

func SetupModels(t *testing.T) *Models {
	dbt := dbtest.Open(t)
	t.Cleanup(func() { dbt.Close() })

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	models, err := NewModels(pool)
	require.NoError(t, err)

	return models
}
