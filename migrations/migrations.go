// Package migrations embeds the Postgres schema for the account store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
