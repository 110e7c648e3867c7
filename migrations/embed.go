// Package migrations embeds the SQL schema migrations for the booking
// engine. The migrate command applies them through golang-migrate's iofs
// source.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
