// Package migrations bundles the helpdesk SQL migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
