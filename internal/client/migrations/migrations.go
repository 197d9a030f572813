// Package migrations embeds the SQLite schema migrations for the local
// capture queue.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
