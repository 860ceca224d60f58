package dbtest

import (
	"net/http"
	"testing"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/stellar/go/support/db/dbtest"
	coordinatormigrations "github.com/kioskpay/kiosk-coordinator-backend/db/migrations/coordinator-migrations"
)

func OpenWithoutMigrations(t *testing.T) *dbtest.DB {
	db := dbtest.Postgres(t)
	return db
}

// Open spins up a throwaway Postgres instance and applies every coordinator migration to it.
func Open(t *testing.T) *dbtest.DB {
	db := OpenWithoutMigrations(t)

	conn := db.Open()
	defer conn.Close()

	ms := migrate.MigrationSet{TableName: "coordinator_migrations"}
	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(coordinatormigrations.FS)}
	_, err := ms.ExecMax(conn.DB, "postgres", m, migrate.Up, 0)
	if err != nil {
		t.Fatal(err)
	}

	return db
}
