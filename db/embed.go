// Package db provides the embedded database schema and the default catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// DefaultCatalog is the YAML catalog used when no catalog file is configured.
//
//go:embed seed/catalog.yaml
var DefaultCatalog []byte
