// Package migrations holds the PostgreSQL schema, applied in file name order.
package migrations

import "embed"

// Files contains every NNN_name.sql migration.
//
//go:embed *.sql
var Files embed.FS
