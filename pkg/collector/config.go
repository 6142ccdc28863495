// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package collector

import "time"

// LoggingConfig can be used to specify logger configuration settings.
type LoggingConfig struct {
	// Name of the subsystem to prefix logs with
	Name string
	// LogLevel is the logging level. Valid values - TRACE, DEBUG, INFO, WARN, ERROR
	LogLevel string
	// LogJSON controls if the output should be in JSON.
	LogJSON bool
}

// RuntimeConfig is the process-level configuration consolidated from CLI
// flags and env vars. The pipeline topology itself comes from the YAML
// configuration file.
type RuntimeConfig struct {
	// ConfigFile is the path of the YAML pipeline configuration.
	ConfigFile string

	// ShutdownGracePeriod bounds how long shutdown waits for exporters
	// to drain queued batches before dropping them.
	ShutdownGracePeriod time.Duration

	Logging *LoggingConfig
}
