// Package db bundles the SQL schema so binaries can migrate without a checkout.
package db

import "embed"

// Migrations holds the goose migration files.
//
//go:embed migrations/*.sql
var Migrations embed.FS
