// Package migrations embeds the SQL schema for tooling and deployment.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
