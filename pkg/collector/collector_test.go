// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/telemetry-collector/pkg/config"
)

func validRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		ConfigFile:          "/etc/telemetry-collector/config.yaml",
		ShutdownGracePeriod: 10 * time.Second,
		Logging:             &LoggingConfig{Name: "telemetry-collector", LogLevel: "INFO"},
	}
}

func TestNewCollectorRequiredFields(t *testing.T) {
	type testCase struct {
		modFn       func(*RuntimeConfig)
		expectedErr string
	}

	testCases := map[string]testCase{
		"missing config file": {
			modFn:       func(c *RuntimeConfig) { c.ConfigFile = "" },
			expectedErr: "config file not specified",
		},
		"missing grace period": {
			modFn:       func(c *RuntimeConfig) { c.ShutdownGracePeriod = 0 },
			expectedErr: "shutdown grace period must be greater than zero",
		},
		"missing logging": {
			modFn:       func(c *RuntimeConfig) { c.Logging = nil },
			expectedErr: "logging settings not specified",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg := validRuntimeConfig()
			tc.modFn(cfg)
			_, err := NewCollector(cfg)
			require.EqualError(t, err, tc.expectedErr)
		})
	}
}

func TestRunFailsFastOnInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// References an exporter that is never defined.
	require.NoError(t, os.WriteFile(path, []byte(`
receivers:
  otlp:
service:
  pipelines:
    traces:
      receivers: [otlp]
      exporters: [clickhouse]
`), 0o644))

	cfg := validRuntimeConfig()
	cfg.ConfigFile = path
	c, err := NewCollector(cfg)
	require.NoError(t, err)

	err = c.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined exporter")
}

const wiringConfig = `
receivers:
  otlp:
  filelog/app:
    include: [/var/log/app/*.log]
processors:
  batch:
exporters:
  clickhouse:
    endpoint: tcp://localhost:9000
  otlphttp/upstream:
    endpoint: https://collector.example.com
service:
  pipelines:
    traces:
      receivers: [otlp]
      processors: [batch]
      exporters: [clickhouse, otlphttp/upstream]
    logs:
      receivers: [otlp, filelog/app]
      processors: [batch]
      exporters: [clickhouse]
`

func TestBuildPipelinesSharesComponents(t *testing.T) {
	cfg, err := config.Parse([]byte(wiringConfig))
	require.NoError(t, err)

	ps, err := buildPipelines(cfg, hclog.NewNullLogger())
	require.NoError(t, err)

	// The otlp receiver feeds both pipelines but is built once; the
	// clickhouse queue is shared the same way.
	require.Len(t, ps.receivers, 2)
	require.Len(t, ps.queues, 2)
	require.Len(t, ps.pipes, 2)

	for _, p := range ps.pipes {
		require.Len(t, p.batchers, 1)
	}
}

func TestPipelinesStats(t *testing.T) {
	cfg, err := config.Parse([]byte(wiringConfig))
	require.NoError(t, err)

	ps, err := buildPipelines(cfg, hclog.NewNullLogger())
	require.NoError(t, err)

	stats := ps.stats()
	require.Len(t, stats, 2)

	// PipelineNames is sorted, so logs comes first.
	require.Equal(t, "logs", stats[0].Name)
	require.Equal(t, "logs", stats[0].Signal)
	require.Len(t, stats[0].Exporters, 1)

	require.Equal(t, "traces", stats[1].Name)
	require.Len(t, stats[1].Exporters, 2)
	for _, es := range stats[1].Exporters {
		require.Equal(t, 1000, es.QueueCapacity)
		require.Zero(t, es.QueueDepth)
		require.False(t, es.Retry.Retrying)
	}
}

func TestHealthServerReadiness(t *testing.T) {
	hs := newHealthServer("127.0.0.1:0")

	status := func() int {
		rec := httptest.NewRecorder()
		hs.handle(rec, nil)
		return rec.Code
	}

	// The endpoint reports not-ready until the collector says otherwise,
	// and again the moment shutdown flips readiness off.
	require.Equal(t, http.StatusServiceUnavailable, status())
	hs.setReady(true)
	require.Equal(t, http.StatusOK, status())
	hs.setReady(false)
	require.Equal(t, http.StatusServiceUnavailable, status())
}
