// Package migrations embeds the SQL schema of the panel's database so the
// binary can migrate without the .sql files on disk.
package migrations

import "embed"

// FS holds every *.sql migration at its root; pass it to database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
