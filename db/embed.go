// Package db holds the embedded seed catalog.
package db

import _ "embed"

// Catalog is the default occasions and meal plans loaded by seed-db.
//
//go:embed seed/catalog.json
var Catalog []byte
