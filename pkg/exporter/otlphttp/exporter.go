// Package otlphttp forwards batches to an upstream OTLP/HTTP endpoint,
// for topologies where this agent feeds a central collector instead of
// writing to storage directly.
package otlphttp

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptrace/ptraceotlp"

	"github.com/hashicorp/telemetry-collector/pkg/config"
	"github.com/hashicorp/telemetry-collector/pkg/model"
	"github.com/hashicorp/telemetry-collector/pkg/version"
)

// Exporter adapts the OTLP/HTTP client to the delivery sink contract.
type Exporter struct {
	cfg    *config.OTLPHTTPExporterConfig
	logger hclog.Logger
	client *Client
}

func NewExporter(name string, cfg *config.OTLPHTTPExporterConfig, logger hclog.Logger) (*Exporter, error) {
	log := logger.Named("otlphttp").With("exporter", name)
	client, err := New(&Config{
		Endpoint:           cfg.Endpoint,
		BearerToken:        cfg.BearerToken,
		CACertsPath:        cfg.CACertsPath,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Middleware:         []MiddlewareOption{WithRequestHeaders(cfg.Headers)},
		UserAgent:          fmt.Sprintf("telemetry-collector/%s", version.GetHumanVersion()),
		Logger:             log,
	})
	if err != nil {
		return nil, err
	}
	return &Exporter{cfg: cfg, logger: log, client: client}, nil
}

func (e *Exporter) Start(_ context.Context) error {
	return nil
}

func (e *Exporter) Shutdown(_ context.Context) error {
	return nil
}

// Export rebuilds the OTLP payload from the batch and sends it upstream
// in a single request.
func (e *Exporter) Export(ctx context.Context, batch *model.Batch) error {
	switch batch.Kind {
	case model.SignalTraces:
		return e.client.ExportTraces(ctx, ptraceotlp.NewExportRequestFromTraces(model.TracesFromRecords(batch.Records)))
	case model.SignalLogs:
		return e.client.ExportLogs(ctx, plogotlp.NewExportRequestFromLogs(model.LogsFromRecords(batch.Records)))
	case model.SignalMetrics:
		return e.client.ExportMetrics(ctx, pmetricotlp.NewExportRequestFromMetrics(model.MetricsFromRecords(batch.Records)))
	default:
		return fmt.Errorf("unsupported signal kind %s", batch.Kind)
	}
}
