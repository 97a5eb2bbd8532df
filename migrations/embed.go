// Package migrations holds the catalog schema migrations applied by goose.
package migrations

import "embed"

// FS contains the SQL migration files.
//
//go:embed *.sql
var FS embed.FS
