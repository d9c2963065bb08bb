// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the Postgres migrations for the authorisation record store.
//
//go:embed *.sql
var FS embed.FS
