// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/telemetry-collector/pkg/collector"
	"github.com/hashicorp/telemetry-collector/pkg/version"
)

const (
	DefaultLogLevel            = "info"
	DefaultLogJSON             = false
	DefaultShutdownGracePeriod = 10 * time.Second
)

type FlagOpts struct {
	printVersion bool

	configFile          *string
	logLevel            *string
	logJSON             *bool
	shutdownGracePeriod *time.Duration
}

var flagOpts *FlagOpts

func init() {
	flagOpts = &FlagOpts{}
	flag.BoolVar(&flagOpts.printVersion, "version", false, "Prints the current version of telemetry-collector.")

	StringVar(&flagOpts.configFile, "config-file", "TC_CONFIG_FILE", "The YAML file defining receivers, processors, exporters, extensions and pipelines.")
	StringVar(&flagOpts.logLevel, "log-level", "TC_LOG_LEVEL", "Log level of the messages to print. "+
		"Available log levels are \"trace\", \"debug\", \"info\", \"warn\", and \"error\".")
	BoolVar(&flagOpts.logJSON, "log-json", "TC_LOG_JSON", "Enables log messages in JSON format.")
	DurationVar(&flagOpts.shutdownGracePeriod, "shutdown-grace-period", "TC_SHUTDOWN_GRACE_PERIOD", "Amount of time to wait for exporters to drain queued batches during shutdown.")
}

// validateFlags performs semantic validation of the flag values
func validateFlags() {
	switch strings.ToUpper(stringVal(flagOpts.logLevel, DefaultLogLevel)) {
	case "TRACE", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		log.Fatal("invalid log level. valid values - TRACE, DEBUG, INFO, WARN, ERROR")
	}

	if stringVal(flagOpts.configFile, "") == "" {
		log.Fatal("-config-file is required")
	}
}

func (f *FlagOpts) buildRuntimeConfig() *collector.RuntimeConfig {
	return &collector.RuntimeConfig{
		ConfigFile:          stringVal(f.configFile, ""),
		ShutdownGracePeriod: durationVal(f.shutdownGracePeriod, DefaultShutdownGracePeriod),
		Logging: &collector.LoggingConfig{
			Name:     "telemetry-collector",
			LogLevel: strings.ToUpper(stringVal(f.logLevel, DefaultLogLevel)),
			LogJSON:  boolVal(f.logJSON, DefaultLogJSON),
		},
	}
}

func run() error {
	flag.Parse()

	if flagOpts.printVersion {
		fmt.Printf("Telemetry Collector v%s\n", version.GetHumanVersion())
		fmt.Printf("Revision %s\n", version.GitCommit)
		return nil
	}

	validateFlags()

	instance, err := collector.NewCollector(flagOpts.buildRuntimeConfig())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		// Block waiting for SIGINT or SIGTERM
		<-sigCh
		cancel()
	}()

	return instance.Run(ctx)
}

func main() {
	err := run()
	if err != nil {
		log.Fatal(err)
	}
}
