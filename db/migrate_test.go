package db

import (
	"context"
	"fmt"
	"io/fs"
	"testing"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskpay/kiosk-coordinator-backend/db/dbtest"
	"github.com/kioskpay/kiosk-coordinator-backend/db/migrations"
	coordinatormigrations "github.com/kioskpay/kiosk-coordinator-backend/db/migrations/coordinator-migrations"
)

func TestMigrate_upApplyOne_Coordinator_migrations(t *testing.T) {
	db := dbtest.OpenWithoutMigrations(t)
	defer db.Close()
	dbConnectionPool, err := OpenDBConnectionPool(db.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	n, err := Migrate(db.DSN, migrate.Up, 1, migrations.CoordinatorMigrationRouter)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids := []string{}
	err = dbConnectionPool.SelectContext(ctx, &ids, fmt.Sprintf("SELECT id FROM %s", migrations.CoordinatorMigrationRouter.TableName))
	require.NoError(t, err)
	wantIDs := []string{"2026-01-12.0-kiosks.sql"}
	assert.Equal(t, wantIDs, ids)
}

func TestMigrate_downApplyOne_Coordinator_migrations(t *testing.T) {
	db := dbtest.OpenWithoutMigrations(t)
	defer db.Close()
	dbConnectionPool, err := OpenDBConnectionPool(db.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	ctx := context.Background()

	n, err := Migrate(db.DSN, migrate.Up, 2, migrations.CoordinatorMigrationRouter)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = Migrate(db.DSN, migrate.Down, 1, migrations.CoordinatorMigrationRouter)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ids := []string{}
	err = dbConnectionPool.SelectContext(ctx, &ids, fmt.Sprintf("SELECT id FROM %s", migrations.CoordinatorMigrationRouter.TableName))
	require.NoError(t, err)
	wantIDs := []string{"2026-01-12.0-kiosks.sql"}
	assert.Equal(t, wantIDs, ids)
}

func TestMigrate_upAndDownAllTheWayTwice_Coordinator_migrations(t *testing.T) {
	db := dbtest.OpenWithoutMigrations(t)
	defer db.Close()
	dbConnectionPool, err := OpenDBConnectionPool(db.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	var count int
	err = fs.WalkDir(coordinatormigrations.FS, ".", func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		if !d.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)

	n, err := Migrate(db.DSN, migrate.Up, count, migrations.CoordinatorMigrationRouter)
	require.NoError(t, err)
	require.Equal(t, count, n)

	n, err = Migrate(db.DSN, migrate.Down, count, migrations.CoordinatorMigrationRouter)
	require.NoError(t, err)
	require.Equal(t, count, n)

	n, err = Migrate(db.DSN, migrate.Up, count, migrations.CoordinatorMigrationRouter)
	require.NoError(t, err)
	require.Equal(t, count, n)

	n, err = Migrate(db.DSN, migrate.Down, count, migrations.CoordinatorMigrationRouter)
	require.NoError(t, err)
	require.Equal(t, count, n)
}
