// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config loads and validates the collector's YAML configuration.
// The document has five top-level sections: receivers, processors,
// exporters, extensions and service. Component sections are keyed by
// "type" or "type/name" and decoded into typed structs; the service
// section wires named components into per-signal pipelines.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config is the fully decoded and environment-resolved configuration.
type Config struct {
	Receivers  map[string]*ReceiverConfig
	Processors map[string]*ProcessorConfig
	Exporters  map[string]*ExporterConfig
	Extensions map[string]*ExtensionConfig
	Service    ServiceConfig
}

// ServiceConfig enables extensions and defines the pipelines.
type ServiceConfig struct {
	Extensions []string                   `mapstructure:"extensions"`
	Pipelines  map[string]*PipelineConfig `mapstructure:"pipelines"`
	Telemetry  TelemetryConfig            `mapstructure:"telemetry"`
}

// PipelineConfig references components by name in processing order.
type PipelineConfig struct {
	Receivers  []string `mapstructure:"receivers"`
	Processors []string `mapstructure:"processors"`
	Exporters  []string `mapstructure:"exporters"`
}

// TelemetryConfig controls the collector's own logs and metrics.
type TelemetryConfig struct {
	Logs    LogsTelemetryConfig    `mapstructure:"logs"`
	Metrics MetricsTelemetryConfig `mapstructure:"metrics"`
}

type LogsTelemetryConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// MetricsTelemetryConfig selects where self-telemetry is emitted. The
// prometheus scrape endpoint is always on; statsd and dogstatsd sinks are
// added when their addresses are set.
type MetricsTelemetryConfig struct {
	Address          string   `mapstructure:"address"`
	StatsdAddress    string   `mapstructure:"statsd_address"`
	DogstatsdAddress string   `mapstructure:"dogstatsd_address"`
	DogstatsdTags    []string `mapstructure:"dogstatsd_tags"`
}

type rawConfig struct {
	Receivers  map[string]map[string]interface{} `yaml:"receivers"`
	Processors map[string]map[string]interface{} `yaml:"processors"`
	Exporters  map[string]map[string]interface{} `yaml:"exporters"`
	Extensions map[string]map[string]interface{} `yaml:"extensions"`
	Service    map[string]interface{}            `yaml:"service"`
}

// Load reads, environment-expands, decodes and validates a configuration
// file. Any failure here is a fatal startup error.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes the config document. Split from Load for tests.
func Parse(document []byte) (*Config, error) {
	expanded, err := expandEnv(string(document))
	if err != nil {
		return nil, err
	}

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{
		Receivers:  map[string]*ReceiverConfig{},
		Processors: map[string]*ProcessorConfig{},
		Exporters:  map[string]*ExporterConfig{},
		Extensions: map[string]*ExtensionConfig{},
	}

	var errs error
	for name, section := range raw.Receivers {
		rc, err := decodeReceiver(name, section)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		cfg.Receivers[name] = rc
	}
	for name, section := range raw.Processors {
		pc, err := decodeProcessor(name, section)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		cfg.Processors[name] = pc
	}
	for name, section := range raw.Exporters {
		ec, err := decodeExporter(name, section)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		cfg.Exporters[name] = ec
	}
	for name, section := range raw.Extensions {
		xc, err := decodeExtension(name, section)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		cfg.Extensions[name] = xc
	}
	if err := decodeSection("service", raw.Service, &cfg.Service); err != nil {
		errs = multierror.Append(errs, err)
	}
	if errs != nil {
		return nil, fmt.Errorf("invalid configuration: %w", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ComponentType returns the part of a component name before the first
// slash: "otlphttp/upstream" is an otlphttp component named for the user's
// purposes.
func ComponentType(name string) string {
	if i := strings.Index(name, "/"); i >= 0 {
		return name[:i]
	}
	return name
}

// PipelineNames returns pipeline names in stable order.
func (c *Config) PipelineNames() []string {
	names := make([]string, 0, len(c.Service.Pipelines))
	for name := range c.Service.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
