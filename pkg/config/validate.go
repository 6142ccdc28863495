// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"time"

	"github.com/grafana/regexp"
	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp/telemetry-collector/pkg/model"
)

// Validate checks component settings and pipeline wiring. It runs before
// anything binds a listener or opens a file: a dangling reference or an
// incompatible signal kind must stop the process before any side effect.
func (c *Config) Validate() error {
	var errs error

	for name, rc := range c.Receivers {
		if err := rc.validate(name); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for name, pc := range c.Processors {
		if err := pc.validate(name); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for name, ec := range c.Exporters {
		if err := ec.validate(name); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if len(c.Service.Pipelines) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("service::pipelines: at least one pipeline is required"))
	}

	for _, ext := range c.Service.Extensions {
		if _, ok := c.Extensions[ext]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("service::extensions: references undefined extension %q", ext))
		}
	}

	for name, p := range c.Service.Pipelines {
		kind, err := model.ParseSignalKind(ComponentType(name))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("service::pipelines::%s: pipeline name must start with a signal kind: %w", name, err))
			continue
		}
		if len(p.Receivers) == 0 {
			errs = multierror.Append(errs, fmt.Errorf("service::pipelines::%s: at least one receiver is required", name))
		}
		if len(p.Exporters) == 0 {
			errs = multierror.Append(errs, fmt.Errorf("service::pipelines::%s: at least one exporter is required", name))
		}
		for _, ref := range p.Receivers {
			rc, ok := c.Receivers[ref]
			if !ok {
				errs = multierror.Append(errs, fmt.Errorf("service::pipelines::%s: references undefined receiver %q", name, ref))
				continue
			}
			if !receiverSupports(rc.Type, kind) {
				errs = multierror.Append(errs, fmt.Errorf("service::pipelines::%s: receiver %q does not support %s", name, ref, kind))
			}
		}
		for _, ref := range p.Processors {
			if _, ok := c.Processors[ref]; !ok {
				errs = multierror.Append(errs, fmt.Errorf("service::pipelines::%s: references undefined processor %q", name, ref))
			}
		}
		for _, ref := range p.Exporters {
			if _, ok := c.Exporters[ref]; !ok {
				errs = multierror.Append(errs, fmt.Errorf("service::pipelines::%s: references undefined exporter %q", name, ref))
			}
		}
	}

	if errs != nil {
		return fmt.Errorf("invalid configuration: %w", errs)
	}
	return nil
}

// receiverSupports reports whether a receiver type can feed a pipeline of
// the given signal kind. The file receiver only produces log records.
func receiverSupports(typ string, kind model.SignalKind) bool {
	switch typ {
	case TypeOTLP:
		return true
	case TypeFileLog:
		return kind == model.SignalLogs
	default:
		return false
	}
}

func (rc *ReceiverConfig) validate(name string) error {
	switch rc.Type {
	case TypeOTLP:
		if rc.OTLP.Protocols.GRPC == nil && rc.OTLP.Protocols.HTTP == nil {
			return fmt.Errorf("receivers::%s: at least one protocol must be enabled", name)
		}
	case TypeFileLog:
		fl := rc.FileLog
		if len(fl.Include) == 0 {
			return fmt.Errorf("receivers::%s: include must list at least one file pattern", name)
		}
		if fl.StartAt != "beginning" && fl.StartAt != "end" {
			return fmt.Errorf("receivers::%s: start_at must be \"beginning\" or \"end\"", name)
		}
		if fl.Multiline.LineStartPattern != "" {
			if _, err := regexp.Compile(fl.Multiline.LineStartPattern); err != nil {
				return fmt.Errorf("receivers::%s: invalid multiline line_start_pattern: %w", name, err)
			}
		}
		if fl.Regex.Pattern != "" {
			re, err := regexp.Compile(fl.Regex.Pattern)
			if err != nil {
				return fmt.Errorf("receivers::%s: invalid regex pattern: %w", name, err)
			}
			hasNamed := false
			for _, n := range re.SubexpNames() {
				if n != "" {
					hasNamed = true
					break
				}
			}
			if !hasNamed {
				return fmt.Errorf("receivers::%s: regex pattern must contain at least one named capture group", name)
			}
		}
		if fl.Timestamp.ParseFrom != "" && fl.Timestamp.Layout == "" {
			return fmt.Errorf("receivers::%s: timestamp layout is required when parse_from is set", name)
		}
	}
	return nil
}

func (pc *ProcessorConfig) validate(name string) error {
	switch pc.Type {
	case TypeBatch:
		if pc.Batch.SendBatchSize <= 0 {
			return fmt.Errorf("processors::%s: send_batch_size must be greater than zero", name)
		}
		if pc.Batch.Timeout <= 0 {
			return fmt.Errorf("processors::%s: timeout must be greater than zero", name)
		}
	}
	return nil
}

func (ec *ExporterConfig) validate(name string) error {
	switch ec.Type {
	case TypeClickHouse:
		ch := ec.ClickHouse
		if ch.Endpoint == "" {
			return fmt.Errorf("exporters::%s: endpoint is required", name)
		}
		if err := validateDelivery(name, ch.Timeout, ch.SendingQueue, ch.RetryOnFailure); err != nil {
			return err
		}
	case TypeOTLPHTTP:
		oh := ec.OTLPHTTP
		if oh.Endpoint == "" {
			return fmt.Errorf("exporters::%s: endpoint is required", name)
		}
		if err := validateDelivery(name, oh.Timeout, oh.SendingQueue, oh.RetryOnFailure); err != nil {
			return err
		}
	}
	return nil
}

func validateDelivery(name string, timeout time.Duration, queue SendingQueueConfig, retry RetryConfig) error {
	if timeout <= 0 {
		return fmt.Errorf("exporters::%s: timeout must be greater than zero", name)
	}
	if queue.Enabled && queue.QueueSize <= 0 {
		return fmt.Errorf("exporters::%s: sending_queue queue_size must be greater than zero", name)
	}
	if retry.Enabled {
		switch {
		case retry.InitialInterval <= 0:
			return fmt.Errorf("exporters::%s: retry_on_failure initial_interval must be greater than zero", name)
		case retry.MaxInterval < retry.InitialInterval:
			return fmt.Errorf("exporters::%s: retry_on_failure max_interval must not be less than initial_interval", name)
		case retry.MaxElapsedTime <= 0:
			return fmt.Errorf("exporters::%s: retry_on_failure max_elapsed_time must be greater than zero", name)
		}
	}
	return nil
}
