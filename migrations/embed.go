// Package migrations embeds the goose SQL migrations for the journal schema
// and applies them for the API server, journalctl and integration tests.
package migrations

import "embed"

// FS holds every *.sql migration, numbered 00001_*, 00002_* and so on.
//
//go:embed *.sql
var FS embed.FS
