// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package clickhouse

import (
	"fmt"

	"github.com/hashicorp/telemetry-collector/pkg/config"
)

// schemaStatements returns the CREATE TABLE statements for the configured
// table names. MergeTree ordered by timestamp suits the append-heavy,
// time-ranged query shape of telemetry; a TTL clause is added when
// retention is configured.
func schemaStatements(cfg *config.ClickHouseExporterConfig) []string {
	ttl := ""
	if cfg.TTLDays > 0 {
		ttl = fmt.Sprintf(" TTL toDateTime(Timestamp) + INTERVAL %d DAY", cfg.TTLDays)
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			Timestamp DateTime64(9) CODEC(Delta, ZSTD(1)),
			TraceId String CODEC(ZSTD(1)),
			SpanId String CODEC(ZSTD(1)),
			SpanName LowCardinality(String) CODEC(ZSTD(1)),
			Attributes Map(LowCardinality(String), String) CODEC(ZSTD(1))
		) ENGINE = MergeTree ORDER BY (SpanName, toUnixTimestamp(Timestamp))%s`, cfg.TracesTable, ttl),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			Timestamp DateTime64(9) CODEC(Delta, ZSTD(1)),
			TraceId String CODEC(ZSTD(1)),
			SpanId String CODEC(ZSTD(1)),
			SeverityText LowCardinality(String) CODEC(ZSTD(1)),
			Body String CODEC(ZSTD(1)),
			Attributes Map(LowCardinality(String), String) CODEC(ZSTD(1))
		) ENGINE = MergeTree ORDER BY toUnixTimestamp(Timestamp)%s`, cfg.LogsTable, ttl),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			Timestamp DateTime64(9) CODEC(Delta, ZSTD(1)),
			MetricName LowCardinality(String) CODEC(ZSTD(1)),
			Value Float64 CODEC(ZSTD(1)),
			Attributes Map(LowCardinality(String), String) CODEC(ZSTD(1))
		) ENGINE = MergeTree ORDER BY (MetricName, toUnixTimestamp(Timestamp))%s`, cfg.MetricsTable, ttl),
	}
}
