// Package migrations embeds SQL migration files for database schema management.
// Each supported engine has its own directory; migrations only ever add to the schema.
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
