package migrations

import "embed"

// PostgresFS holds the relational-side schema files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the timeseries-side schema files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
