// Package migrations embeds the SQL schema so the binaries carry it.
package migrations

import "embed"

// FS holds every numbered .sql file in this directory
//
//go:embed *.sql
var FS embed.FS
