// Package db provides the embedded database schema and the sample catalog.
package db

import _ "embed"

// Schema contains the DDL statements for the Postgres document table.
//
//go:embed migrations/001_schema.sql
var Schema string

// SampleProducts is the catalog inserted on first start when the product
// collection is empty.
//
//go:embed seed/products.json
var SampleProducts []byte
