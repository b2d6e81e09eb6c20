// Package migrations embeds the schema so the binary can migrate without the
// SQL files on disk.
package migrations

import "embed"

// FS holds the up and down migration files.
//
//go:embed *.sql
var FS embed.FS
