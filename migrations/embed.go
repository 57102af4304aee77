// Package migrations embeds the postgres schema migrations.
package migrations

import "embed"

// FS holds every *.sql migration in golang-migrate naming.
//
//go:embed *.sql
var FS embed.FS
