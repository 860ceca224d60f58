// Package coordinatormigrations embeds the SQL migrations for the coordinator's own schema:
// kiosks, transactions, dispense_jobs and transaction_events.
package coordinatormigrations

import "embed"

//go:embed *.sql
var FS embed.FS
