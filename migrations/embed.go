// Package migrations holds the row store schema as golang-migrate files.
package migrations

import "embed"

// FS carries the numbered up/down files so binaries do not depend on a
// migrations directory on disk.
//
//go:embed *.sql
var FS embed.FS
