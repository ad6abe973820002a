// Package migrations holds the ledger schema as numbered .up.sql/.down.sql pairs.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
