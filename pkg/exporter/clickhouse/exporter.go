// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package clickhouse delivers batches to a ClickHouse database over the
// native protocol, one insert per batch into a per-signal table.
package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/collector/pdata/pcommon"

	"github.com/hashicorp/telemetry-collector/pkg/config"
	"github.com/hashicorp/telemetry-collector/pkg/model"
)

// Exporter writes batches to ClickHouse. The connection pool is owned by
// the exporter and established at Start; an unreachable server at startup
// is logged but not fatal, since the queued wrapper's retry policy covers
// transient unavailability.
type Exporter struct {
	cfg    *config.ClickHouseExporterConfig
	logger hclog.Logger
	conn   driver.Conn
}

func New(name string, cfg *config.ClickHouseExporterConfig, logger hclog.Logger) *Exporter {
	return &Exporter{
		cfg:    cfg,
		logger: logger.Named("clickhouse").With("exporter", name),
	}
}

func (e *Exporter) Start(ctx context.Context) error {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{hostPort(e.cfg.Endpoint)},
		Auth: clickhouse.Auth{
			Database: e.cfg.Database,
			Username: e.cfg.Username,
			Password: e.cfg.Password,
		},
		DialTimeout: e.cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to configure clickhouse connection: %w", err)
	}
	e.conn = conn

	pingCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		e.logger.Warn("clickhouse not reachable at startup, deliveries will retry", "error", err)
		return nil
	}

	if e.cfg.CreateSchema {
		if err := e.createTables(ctx); err != nil {
			return fmt.Errorf("failed to create clickhouse schema: %w", err)
		}
	}
	e.logger.Info("connected to clickhouse", "endpoint", e.cfg.Endpoint, "database", e.cfg.Database)
	return nil
}

func (e *Exporter) Shutdown(_ context.Context) error {
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}

// Export performs one insert attempt for the whole batch.
func (e *Exporter) Export(ctx context.Context, batch *model.Batch) error {
	switch batch.Kind {
	case model.SignalTraces:
		return e.insertTraces(ctx, batch)
	case model.SignalLogs:
		return e.insertLogs(ctx, batch)
	case model.SignalMetrics:
		return e.insertMetrics(ctx, batch)
	default:
		return fmt.Errorf("unsupported signal kind %s", batch.Kind)
	}
}

func (e *Exporter) insertTraces(ctx context.Context, batch *model.Batch) error {
	stmt := fmt.Sprintf("INSERT INTO %s (Timestamp, TraceId, SpanId, SpanName, Attributes)", e.cfg.TracesTable)
	ins, err := e.conn.PrepareBatch(ctx, stmt)
	if err != nil {
		return fmt.Errorf("failed to prepare trace insert: %w", err)
	}
	for _, rec := range batch.Records {
		if err := ins.Append(rec.Timestamp, rec.TraceID, rec.SpanID, rec.Name, attributesMap(rec.Attributes)); err != nil {
			return fmt.Errorf("failed to append trace row: %w", err)
		}
	}
	return ins.Send()
}

func (e *Exporter) insertLogs(ctx context.Context, batch *model.Batch) error {
	stmt := fmt.Sprintf("INSERT INTO %s (Timestamp, TraceId, SpanId, SeverityText, Body, Attributes)", e.cfg.LogsTable)
	ins, err := e.conn.PrepareBatch(ctx, stmt)
	if err != nil {
		return fmt.Errorf("failed to prepare log insert: %w", err)
	}
	for _, rec := range batch.Records {
		if err := ins.Append(rec.Timestamp, rec.TraceID, rec.SpanID, rec.SeverityText, rec.Body, attributesMap(rec.Attributes)); err != nil {
			return fmt.Errorf("failed to append log row: %w", err)
		}
	}
	return ins.Send()
}

func (e *Exporter) insertMetrics(ctx context.Context, batch *model.Batch) error {
	stmt := fmt.Sprintf("INSERT INTO %s (Timestamp, MetricName, Value, Attributes)", e.cfg.MetricsTable)
	ins, err := e.conn.PrepareBatch(ctx, stmt)
	if err != nil {
		return fmt.Errorf("failed to prepare metric insert: %w", err)
	}
	for _, rec := range batch.Records {
		if err := ins.Append(rec.Timestamp, rec.Name, rec.Value, attributesMap(rec.Attributes)); err != nil {
			return fmt.Errorf("failed to append metric row: %w", err)
		}
	}
	return ins.Send()
}

// attributesMap converts the record's attribute map into the
// Map(String, String) column representation. Non-string values keep their
// canonical string form.
func attributesMap(attrs pcommon.Map) map[string]string {
	out := make(map[string]string, attrs.Len())
	attrs.Range(func(k string, v pcommon.Value) bool {
		out[k] = v.AsString()
		return true
	})
	return out
}

// hostPort strips an optional scheme prefix from the configured endpoint;
// the native protocol client wants a bare host:port.
func hostPort(endpoint string) string {
	for _, scheme := range []string{"tcp://", "clickhouse://"} {
		if strings.HasPrefix(endpoint, scheme) {
			return strings.TrimPrefix(endpoint, scheme)
		}
	}
	return endpoint
}

func (e *Exporter) createTables(ctx context.Context) error {
	for _, ddl := range schemaStatements(e.cfg) {
		execCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := e.conn.Exec(execCtx, ddl)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}
