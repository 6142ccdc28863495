// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const fullConfig = `
receivers:
  otlp:
    protocols:
      grpc:
        endpoint: 0.0.0.0:4317
      http:
        endpoint: 0.0.0.0:4318
  filelog/app:
    include:
      - /var/log/app/*.log
    start_at: beginning
    multiline:
      line_start_pattern: '^\d{4}-\d{2}-\d{2}'
    regex:
      pattern: '^(?P<time>\S+)\s+(?P<level>\w+)\s+(?P<message>.*)'
    timestamp:
      parse_from: time
      layout: '2006-01-02T15:04:05Z07:00'
    attributes:
      service.name: app

processors:
  batch:
    timeout: 5s
    send_batch_size: 1024

exporters:
  clickhouse:
    endpoint: tcp://clickhouse:9000
    database: otel
    username: collector
    password: ${env:CLICKHOUSE_PASSWORD}
    ttl_days: 30
    timeout: 10s
    sending_queue:
      enabled: true
      queue_size: 500
    retry_on_failure:
      enabled: true
      initial_interval: 5s
      max_interval: 30s
      max_elapsed_time: 300s

extensions:
  health_check:
    endpoint: 0.0.0.0:13133
  pprof:
  zpages:

service:
  extensions: [health_check, pprof, zpages]
  pipelines:
    traces:
      receivers: [otlp]
      processors: [batch]
      exporters: [clickhouse]
    logs:
      receivers: [otlp, filelog/app]
      processors: [batch]
      exporters: [clickhouse]
    metrics:
      receivers: [otlp]
      processors: [batch]
      exporters: [clickhouse]
  telemetry:
    logs:
      level: debug
    metrics:
      address: 0.0.0.0:8888
`

func TestParseFullConfig(t *testing.T) {
	t.Setenv("CLICKHOUSE_PASSWORD", "s3cret")

	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	otlp := cfg.Receivers["otlp"]
	require.Equal(t, TypeOTLP, otlp.Type)
	require.Equal(t, "0.0.0.0:4317", otlp.OTLP.Protocols.GRPC.Endpoint)
	require.Equal(t, "0.0.0.0:4318", otlp.OTLP.Protocols.HTTP.Endpoint)

	fl := cfg.Receivers["filelog/app"]
	require.Equal(t, TypeFileLog, fl.Type)
	require.Equal(t, []string{"/var/log/app/*.log"}, fl.FileLog.Include)
	require.Equal(t, "beginning", fl.FileLog.StartAt)
	require.Equal(t, "time", fl.FileLog.Timestamp.ParseFrom)
	require.Equal(t, map[string]string{"service.name": "app"}, fl.FileLog.Attributes)

	batch := cfg.Processors["batch"]
	require.Equal(t, 5*time.Second, batch.Batch.Timeout)
	require.Equal(t, 1024, batch.Batch.SendBatchSize)

	ch := cfg.Exporters["clickhouse"]
	require.Equal(t, "tcp://clickhouse:9000", ch.ClickHouse.Endpoint)
	require.Equal(t, "s3cret", ch.ClickHouse.Password)
	require.Equal(t, 30, ch.ClickHouse.TTLDays)
	require.Equal(t, 500, ch.ClickHouse.SendingQueue.QueueSize)
	require.Equal(t, 5*time.Minute, ch.ClickHouse.RetryOnFailure.MaxElapsedTime)

	require.Equal(t, []string{"logs", "metrics", "traces"}, cfg.PipelineNames())
	require.Equal(t, []string{"otlp", "filelog/app"}, cfg.Service.Pipelines["logs"].Receivers)
	require.Equal(t, "debug", cfg.Service.Telemetry.Logs.Level)
	require.Equal(t, "0.0.0.0:8888", cfg.Service.Telemetry.Metrics.Address)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
receivers:
  otlp:
processors:
  batch:
exporters:
  clickhouse:
    endpoint: tcp://localhost:9000
service:
  pipelines:
    traces:
      receivers: [otlp]
      processors: [batch]
      exporters: [clickhouse]
`))
	require.NoError(t, err)

	// An empty protocols block enables both listeners on their
	// conventional ports.
	otlp := cfg.Receivers["otlp"].OTLP
	require.Equal(t, "0.0.0.0:4317", otlp.Protocols.GRPC.Endpoint)
	require.Equal(t, "0.0.0.0:4318", otlp.Protocols.HTTP.Endpoint)

	batch := cfg.Processors["batch"].Batch
	require.Equal(t, 200*time.Millisecond, batch.Timeout)
	require.Equal(t, 8192, batch.SendBatchSize)

	ch := cfg.Exporters["clickhouse"].ClickHouse
	require.Equal(t, "otel", ch.Database)
	require.Equal(t, "otel_traces", ch.TracesTable)
	require.True(t, ch.CreateSchema)
	require.Equal(t, 5*time.Second, ch.Timeout)
	require.True(t, ch.SendingQueue.Enabled)
	require.Equal(t, 1000, ch.SendingQueue.QueueSize)
	require.True(t, ch.RetryOnFailure.Enabled)
	require.Equal(t, 5*time.Second, ch.RetryOnFailure.InitialInterval)
	require.Equal(t, 30*time.Second, ch.RetryOnFailure.MaxInterval)
	require.Equal(t, 5*time.Minute, ch.RetryOnFailure.MaxElapsedTime)
}

func TestParseMissingEnvVarFails(t *testing.T) {
	_, err := Parse([]byte(`
receivers:
  otlp:
processors:
  batch:
exporters:
  clickhouse:
    endpoint: tcp://localhost:9000
    password: ${env:DEFINITELY_NOT_SET_ANYWHERE}
service:
  pipelines:
    traces:
      receivers: [otlp]
      processors: [batch]
      exporters: [clickhouse]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "DEFINITELY_NOT_SET_ANYWHERE")
}

func TestParseUnknownKeyFails(t *testing.T) {
	_, err := Parse([]byte(`
receivers:
  otlp:
    protocols:
      grpc:
        endpoint: 0.0.0.0:4317
        max_frame_size: 1024
exporters:
  clickhouse:
    endpoint: tcp://localhost:9000
service:
  pipelines:
    traces:
      receivers: [otlp]
      exporters: [clickhouse]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_frame_size")
}

func TestParseUnknownComponentTypeFails(t *testing.T) {
	_, err := Parse([]byte(`
receivers:
  kafka:
    brokers: [localhost:9092]
exporters:
  clickhouse:
    endpoint: tcp://localhost:9000
service:
  pipelines:
    traces:
      receivers: [kafka]
      exporters: [clickhouse]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown receiver type")
}

func TestValidateDanglingReference(t *testing.T) {
	_, err := Parse([]byte(`
receivers:
  otlp:
exporters:
  clickhouse:
    endpoint: tcp://localhost:9000
service:
  pipelines:
    traces:
      receivers: [otlp]
      exporters: [clickhouse, otlphttp/upstream]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), `undefined exporter "otlphttp/upstream"`)
}

func TestValidateFileLogCannotFeedTraces(t *testing.T) {
	_, err := Parse([]byte(`
receivers:
  filelog:
    include: [/var/log/app.log]
exporters:
  clickhouse:
    endpoint: tcp://localhost:9000
service:
  pipelines:
    traces:
      receivers: [filelog]
      exporters: [clickhouse]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not support traces")
}

func TestValidatePipelineNameMustBeSignalKind(t *testing.T) {
	_, err := Parse([]byte(`
receivers:
  otlp:
exporters:
  clickhouse:
    endpoint: tcp://localhost:9000
service:
  pipelines:
    events:
      receivers: [otlp]
      exporters: [clickhouse]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "signal kind")
}

func TestValidateRegexRequiresNamedGroup(t *testing.T) {
	_, err := Parse([]byte(`
receivers:
  filelog:
    include: [/var/log/app.log]
    regex:
      pattern: '^(\S+) (\w+)'
exporters:
  clickhouse:
    endpoint: tcp://localhost:9000
service:
  pipelines:
    logs:
      receivers: [filelog]
      exporters: [clickhouse]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "named capture group")
}

func TestValidateRetryIntervalOrdering(t *testing.T) {
	_, err := Parse([]byte(`
receivers:
  otlp:
exporters:
  clickhouse:
    endpoint: tcp://localhost:9000
    retry_on_failure:
      enabled: true
      initial_interval: 30s
      max_interval: 5s
      max_elapsed_time: 300s
service:
  pipelines:
    traces:
      receivers: [otlp]
      exporters: [clickhouse]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_interval")
}

func TestComponentType(t *testing.T) {
	require.Equal(t, "otlp", ComponentType("otlp"))
	require.Equal(t, "filelog", ComponentType("filelog/app"))
	require.Equal(t, "otlphttp", ComponentType("otlphttp/upstream/extra"))
}
