// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package collector

import (
	"context"
	"net/http"
	"sync"

	"github.com/armon/go-metrics"
	"github.com/armon/go-metrics/datadog"
	"github.com/armon/go-metrics/prometheus"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hashicorp/telemetry-collector/pkg/config"
)

type Stats int

const (
	// defaultMetricsBindAddr serves the collector's own prometheus
	// metrics when the service telemetry section sets no address.
	defaultMetricsBindAddr = "127.0.0.1:8888"

	// Distinguishing values for the type of sinks that are being used
	Prometheus Stats = iota
	Dogstatsd
	Statsd
)

// metricsConfig handles the collector's self-telemetry: a fanout of
// go-metrics sinks with prometheus always enabled and statsd/dogstatsd
// added when configured.
type metricsConfig struct {
	logger hclog.Logger

	cfg   config.MetricsTelemetryConfig
	sinks metrics.FanoutSink

	promServer *http.Server

	// lifecycle control
	errorExitCh chan struct{}
	running     bool
	mu          sync.Mutex
}

func newMetricsConfig(cfg config.MetricsTelemetryConfig) *metricsConfig {
	return &metricsConfig{
		mu:          sync.Mutex{},
		cfg:         cfg,
		errorExitCh: make(chan struct{}),
	}
}

// startMetrics wires the configured sinks into the global go-metrics
// instance every component records through.
func (m *metricsConfig) startMetrics(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	m.logger = hclog.FromContext(ctx).Named("metrics")
	m.running = true
	go func() {
		<-ctx.Done()
		m.stopMetricsServer()
	}()

	if err := m.configureSinks(Prometheus); err != nil {
		return err
	}
	if m.cfg.StatsdAddress != "" {
		if err := m.configureSinks(Statsd); err != nil {
			return err
		}
	}
	if m.cfg.DogstatsdAddress != "" {
		if err := m.configureSinks(Dogstatsd); err != nil {
			return err
		}
	}

	conf := metrics.DefaultConfig("telemetry_collector")
	conf.EnableHostname = false
	if _, err := metrics.NewGlobal(conf, m.sinks); err != nil {
		return err
	}
	return nil
}

func (m *metricsConfig) configureSinks(s Stats) error {
	switch s {
	case Prometheus:
		registry := prom.NewRegistry()
		opts := prometheus.PrometheusOpts{
			Registerer:         prom.WrapRegistererWithPrefix("telemetry_collector_", registry),
			GaugeDefinitions:   gauges,
			CounterDefinitions: counters,
		}
		sink, err := prometheus.NewPrometheusSinkFrom(opts)
		if err != nil {
			return err
		}
		m.sinks = append(m.sinks, sink)

		addr := m.cfg.Address
		if addr == "" {
			addr = defaultMetricsBindAddr
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		m.promServer = &http.Server{Addr: addr, Handler: mux}
		go m.servePrometheus()
	case Statsd:
		sink, err := metrics.NewStatsdSink(m.cfg.StatsdAddress)
		if err != nil {
			return err
		}
		m.sinks = append(m.sinks, sink)
	case Dogstatsd:
		conf := metrics.DefaultConfig("telemetry_collector")
		sink, err := datadog.NewDogStatsdSink(m.cfg.DogstatsdAddress, conf.HostName)
		if err != nil {
			return err
		}
		sink.SetTags(m.cfg.DogstatsdTags)
		m.sinks = append(m.sinks, sink)
	}
	return nil
}

func (m *metricsConfig) servePrometheus() {
	m.logger.Info("starting metrics server", "address", m.promServer.Addr)
	err := m.promServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		m.logger.Error("failed to serve metrics requests", "error", err)
		close(m.errorExitCh)
	}
}

func (m *metricsConfig) stopMetricsServer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	var errs error

	if m.promServer != nil {
		m.logger.Info("stopping the metrics server")
		if err := m.promServer.Close(); err != nil {
			m.logger.Warn("error while closing metrics server", "error", err)
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		close(m.errorExitCh)
	}
}

// metricsServerExited is used to signal that the metrics server exited
// unexpectedly.
func (m *metricsConfig) metricsServerExited() <-chan struct{} {
	return m.errorExitCh
}
