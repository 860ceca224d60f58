package migrations

import (
	"io/fs"

	coordinatormigrations "github.com/kioskpay/kiosk-coordinator-backend/db/migrations/coordinator-migrations"
)

type MigrationRouter struct {
	TableName string
	FS        fs.FS
}

var CoordinatorMigrationRouter = MigrationRouter{
	TableName: "coordinator_migrations",
	FS:        fs.FS(coordinatormigrations.FS),
}
