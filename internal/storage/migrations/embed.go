// Package migrations applies the schema for both storage backends:
// PostgreSQL holds the matching records (offers, loops, outcomes) and
// ClickHouse holds the per-run aggregates.
package migrations

import "embed"

// PostgresFS holds the PostgreSQL schema files, applied in lexical order.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the ClickHouse schema files, applied in lexical order.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
