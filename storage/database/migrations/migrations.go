// Package migrations embeds the goose SQL migrations. The DDL sticks to the
// portable subset that both sqlite3 and postgres accept.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
