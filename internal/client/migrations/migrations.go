// Package migrations embeds the goose SQL migrations for the CLI's local
// sqlite cache.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
