// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package collector wires configured receivers, processors and exporters
// into running pipelines and supervises them for the life of the process.
package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-uuid"

	"github.com/hashicorp/telemetry-collector/internal/debug"
	"github.com/hashicorp/telemetry-collector/pkg/config"
)

// Collector represents the telemetry-collector process
type Collector struct {
	logger hclog.Logger
	cfg    *RuntimeConfig

	instanceID string
}

// NewCollector creates a new instance of Collector
func NewCollector(cfg *RuntimeConfig) (*Collector, error) {
	if err := validateRuntimeConfig(cfg); err != nil {
		return nil, err
	}

	hclogLevel := hclog.LevelFromString(cfg.Logging.LogLevel)
	if hclogLevel == hclog.NoLevel {
		hclogLevel = hclog.Info
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:       cfg.Logging.Name,
		Level:      hclogLevel,
		JSONFormat: cfg.Logging.LogJSON,
	})

	return &Collector{
		logger: logger,
		cfg:    cfg,
	}, nil
}

func validateRuntimeConfig(cfg *RuntimeConfig) error {
	switch {
	case cfg.ConfigFile == "":
		return errors.New("config file not specified")
	case cfg.ShutdownGracePeriod <= 0:
		return errors.New("shutdown grace period must be greater than zero")
	case cfg.Logging == nil:
		return errors.New("logging settings not specified")
	}
	return nil
}

// Run loads the pipeline configuration, starts every component in
// dependency order and blocks until the context is cancelled or a
// component fails. Startup is fail-fast: any configuration error or bind
// failure stops the process before records flow.
func (c *Collector) Run(ctx context.Context) error {
	ctx = hclog.WithContext(ctx, c.logger)

	id, err := uuid.GenerateUUID()
	if err != nil {
		return err
	}
	c.instanceID = id
	c.logger.Info("started telemetry-collector process", "instance_id", c.instanceID)

	cfg, err := config.Load(c.cfg.ConfigFile)
	if err != nil {
		return err
	}
	if lvl := hclog.LevelFromString(cfg.Service.Telemetry.Logs.Level); lvl != hclog.NoLevel {
		c.logger.SetLevel(lvl)
	}

	// Components get their own context so they outlive signal
	// cancellation: shutdown drains the pipelines first and cancels this
	// context last, which aborts any backoff sleep still pending.
	componentCtx, cancelComponents := context.WithCancel(hclog.WithContext(context.Background(), c.logger))
	defer cancelComponents()

	metricsCfg := newMetricsConfig(cfg.Service.Telemetry.Metrics)
	if err := metricsCfg.startMetrics(componentCtx); err != nil {
		return err
	}

	ps, err := buildPipelines(cfg, c.logger)
	if err != nil {
		return err
	}

	var health *healthServer
	for _, ext := range cfg.Service.Extensions {
		xc := cfg.Extensions[ext]
		switch xc.Type {
		case config.TypeHealthCheck:
			health = newHealthServer(xc.HealthCheck.Endpoint)
			health.start(componentCtx)
		case config.TypePprof:
			go debug.ServePprof(componentCtx, xc.Pprof.Endpoint)
		case config.TypeZPages:
			go debug.ServeStats(componentCtx, xc.ZPages.Endpoint, func() interface{} {
				return map[string]interface{}{
					"instance_id": c.instanceID,
					"pipelines":   ps.stats(),
				}
			})
		}
	}

	// Exporters first, then batchers, then receivers, so every stage has
	// a live downstream before records can arrive.
	for name, q := range ps.queues {
		if err := q.Start(componentCtx); err != nil {
			cancelComponents()
			return fmt.Errorf("failed to start exporter %s: %w", name, err)
		}
		go q.Run(componentCtx)
	}
	for _, p := range ps.pipes {
		for _, b := range p.batchers {
			go b.Run()
		}
	}
	for name, r := range ps.receivers {
		if err := r.Start(componentCtx); err != nil {
			shutdownErr := c.shutdownPipelines(ps, health, cancelComponents)
			if shutdownErr != nil {
				c.logger.Error("error during shutdown after failed start", "error", shutdownErr)
			}
			return fmt.Errorf("failed to start receiver %s: %w", name, err)
		}
	}

	if health != nil {
		health.setReady(true)
	}
	c.logger.Info("all pipelines running", "pipelines", cfg.PipelineNames())

	exitCh := make(chan error, 1)
	exit := func(err error) {
		select {
		case exitCh <- err:
		default:
		}
	}
	go func() {
		<-ctx.Done()
		exit(nil)
	}()
	for name, r := range ps.receivers {
		if ex, ok := r.(interface{ Exited() <-chan struct{} }); ok {
			go func(name string, ch <-chan struct{}) {
				<-ch
				exit(fmt.Errorf("receiver %s exited unexpectedly", name))
			}(name, ex.Exited())
		}
	}
	if health != nil {
		go func() {
			<-health.exited()
			exit(errors.New("health check server exited unexpectedly"))
		}()
	}
	go func() {
		<-metricsCfg.metricsServerExited()
		exit(errors.New("metrics server exited unexpectedly"))
	}()

	runErr := <-exitCh

	if err := c.shutdownPipelines(ps, health, cancelComponents); err != nil {
		runErr = multierror.Append(runErr, err).ErrorOrNil()
	}
	return runErr
}

// shutdownPipelines stops the stages in data-flow order: receivers close
// intake, batchers flush their partial batches downstream, exporter
// queues drain within the grace period, and only then do the sinks close
// and the component context cancel.
func (c *Collector) shutdownPipelines(ps *pipelines, health *healthServer, cancelComponents context.CancelFunc) error {
	if health != nil {
		health.setReady(false)
	}
	c.logger.Info("shutting down pipelines", "grace_period", c.cfg.ShutdownGracePeriod)

	graceCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownGracePeriod)
	defer cancel()

	var errs error
	for name, r := range ps.receivers {
		if err := r.Shutdown(graceCtx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("receiver %s: %w", name, err))
		}
	}
	for _, p := range ps.pipes {
		if err := p.drainBatchers(graceCtx); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for name, q := range ps.queues {
		if err := q.Drain(graceCtx); err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := q.Shutdown(graceCtx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("exporter %s: %w", name, err))
		}
	}
	cancelComponents()
	return errs
}
