// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Component type names recognized in the receivers/processors/exporters/
// extensions sections.
const (
	TypeOTLP        = "otlp"
	TypeFileLog     = "filelog"
	TypeBatch       = "batch"
	TypeClickHouse  = "clickhouse"
	TypeOTLPHTTP    = "otlphttp"
	TypeHealthCheck = "health_check"
	TypePprof       = "pprof"
	TypeZPages      = "zpages"
)

// ReceiverConfig is the decoded config for one named receiver. Exactly one
// of the typed fields is set, matching Type.
type ReceiverConfig struct {
	Type    string
	OTLP    *OTLPReceiverConfig
	FileLog *FileLogReceiverConfig
}

// OTLPReceiverConfig configures the network receiver's listeners.
type OTLPReceiverConfig struct {
	Protocols OTLPProtocols `mapstructure:"protocols"`
}

type OTLPProtocols struct {
	GRPC *ListenConfig `mapstructure:"grpc"`
	HTTP *ListenConfig `mapstructure:"http"`
}

type ListenConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// FileLogReceiverConfig configures the file-tailing receiver.
type FileLogReceiverConfig struct {
	// Include is the set of file glob patterns to tail.
	Include []string `mapstructure:"include"`

	// StartAt selects where tailing begins for files without a saved
	// position: "beginning" or "end".
	StartAt string `mapstructure:"start_at"`

	Multiline MultilineConfig `mapstructure:"multiline"`
	Regex     RegexConfig     `mapstructure:"regex"`
	Timestamp TimestampConfig `mapstructure:"timestamp"`

	// Attributes are static attributes stamped onto every record.
	Attributes map[string]string `mapstructure:"attributes"`
}

// MultilineConfig controls logical record reassembly. A line matching
// LineStartPattern opens a new record; other lines are continuations
// appended to the open record's body.
type MultilineConfig struct {
	LineStartPattern string `mapstructure:"line_start_pattern"`
}

// RegexConfig extracts attributes from a record's body using named capture
// groups.
type RegexConfig struct {
	Pattern string `mapstructure:"pattern"`
}

// TimestampConfig promotes an extracted attribute to the record's canonical
// timestamp using a Go reference layout.
type TimestampConfig struct {
	ParseFrom string `mapstructure:"parse_from"`
	Layout    string `mapstructure:"layout"`
}

// ProcessorConfig is the decoded config for one named processor.
type ProcessorConfig struct {
	Type  string
	Batch *BatchProcessorConfig
}

// BatchProcessorConfig sets the flush triggers: whichever of the count
// threshold or the time window fires first releases the batch.
type BatchProcessorConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	SendBatchSize int           `mapstructure:"send_batch_size"`
}

// ExporterConfig is the decoded config for one named exporter.
type ExporterConfig struct {
	Type       string
	ClickHouse *ClickHouseExporterConfig
	OTLPHTTP   *OTLPHTTPExporterConfig
}

// SendingQueueConfig bounds the number of batches waiting for delivery.
// When the queue is full the newest batch is dropped and counted.
type SendingQueueConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	QueueSize int  `mapstructure:"queue_size"`
}

// RetryConfig mirrors the retry_on_failure block: exponential backoff from
// InitialInterval capped at MaxInterval, giving up once MaxElapsedTime of
// retrying has accumulated. Disabled means drop-and-count on first failure.
type RetryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// ClickHouseExporterConfig configures the ClickHouse sink.
type ClickHouseExporterConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	Database     string        `mapstructure:"database"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	TracesTable  string        `mapstructure:"traces_table_name"`
	LogsTable    string        `mapstructure:"logs_table_name"`
	MetricsTable string        `mapstructure:"metrics_table_name"`
	CreateSchema bool          `mapstructure:"create_schema"`
	TTLDays      int           `mapstructure:"ttl_days"`
	Timeout      time.Duration `mapstructure:"timeout"`

	SendingQueue   SendingQueueConfig `mapstructure:"sending_queue"`
	RetryOnFailure RetryConfig        `mapstructure:"retry_on_failure"`
}

// OTLPHTTPExporterConfig configures the OTLP/HTTP forwarding sink.
type OTLPHTTPExporterConfig struct {
	Endpoint           string            `mapstructure:"endpoint"`
	Headers            map[string]string `mapstructure:"headers"`
	BearerToken        string            `mapstructure:"bearer_token"`
	CACertsPath        string            `mapstructure:"ca_certs_path"`
	InsecureSkipVerify bool              `mapstructure:"insecure_skip_verify"`
	Timeout            time.Duration     `mapstructure:"timeout"`

	SendingQueue   SendingQueueConfig `mapstructure:"sending_queue"`
	RetryOnFailure RetryConfig        `mapstructure:"retry_on_failure"`
}

// ExtensionConfig is the decoded config for one named extension.
type ExtensionConfig struct {
	Type        string
	HealthCheck *HealthCheckConfig
	Pprof       *PprofConfig
	ZPages      *ZPagesConfig
}

type HealthCheckConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type PprofConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type ZPagesConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

func defaultSendingQueue() SendingQueueConfig {
	return SendingQueueConfig{Enabled: true, QueueSize: 1000}
}

func defaultRetry() RetryConfig {
	return RetryConfig{
		Enabled:         true,
		InitialInterval: 5 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  5 * time.Minute,
	}
}

func decodeReceiver(name string, section map[string]interface{}) (*ReceiverConfig, error) {
	switch typ := ComponentType(name); typ {
	case TypeOTLP:
		otlp := &OTLPReceiverConfig{}
		if err := decodeSection("receivers::"+name, section, otlp); err != nil {
			return nil, err
		}
		if otlp.Protocols.GRPC == nil && otlp.Protocols.HTTP == nil {
			// No protocol block enables both on the conventional ports.
			otlp.Protocols.GRPC = &ListenConfig{Endpoint: "0.0.0.0:4317"}
			otlp.Protocols.HTTP = &ListenConfig{Endpoint: "0.0.0.0:4318"}
		}
		if otlp.Protocols.GRPC != nil && otlp.Protocols.GRPC.Endpoint == "" {
			otlp.Protocols.GRPC.Endpoint = "0.0.0.0:4317"
		}
		if otlp.Protocols.HTTP != nil && otlp.Protocols.HTTP.Endpoint == "" {
			otlp.Protocols.HTTP.Endpoint = "0.0.0.0:4318"
		}
		return &ReceiverConfig{Type: typ, OTLP: otlp}, nil
	case TypeFileLog:
		fl := &FileLogReceiverConfig{StartAt: "end"}
		if err := decodeSection("receivers::"+name, section, fl); err != nil {
			return nil, err
		}
		return &ReceiverConfig{Type: typ, FileLog: fl}, nil
	default:
		return nil, fmt.Errorf("receivers::%s: unknown receiver type %q", name, typ)
	}
}

func decodeProcessor(name string, section map[string]interface{}) (*ProcessorConfig, error) {
	switch typ := ComponentType(name); typ {
	case TypeBatch:
		batch := &BatchProcessorConfig{
			Timeout:       200 * time.Millisecond,
			SendBatchSize: 8192,
		}
		if err := decodeSection("processors::"+name, section, batch); err != nil {
			return nil, err
		}
		return &ProcessorConfig{Type: typ, Batch: batch}, nil
	default:
		return nil, fmt.Errorf("processors::%s: unknown processor type %q", name, typ)
	}
}

func decodeExporter(name string, section map[string]interface{}) (*ExporterConfig, error) {
	switch typ := ComponentType(name); typ {
	case TypeClickHouse:
		ch := &ClickHouseExporterConfig{
			Database:       "otel",
			TracesTable:    "otel_traces",
			LogsTable:      "otel_logs",
			MetricsTable:   "otel_metrics",
			CreateSchema:   true,
			Timeout:        5 * time.Second,
			SendingQueue:   defaultSendingQueue(),
			RetryOnFailure: defaultRetry(),
		}
		if err := decodeSection("exporters::"+name, section, ch); err != nil {
			return nil, err
		}
		return &ExporterConfig{Type: typ, ClickHouse: ch}, nil
	case TypeOTLPHTTP:
		oh := &OTLPHTTPExporterConfig{
			Timeout:        10 * time.Second,
			SendingQueue:   defaultSendingQueue(),
			RetryOnFailure: defaultRetry(),
		}
		if err := decodeSection("exporters::"+name, section, oh); err != nil {
			return nil, err
		}
		return &ExporterConfig{Type: typ, OTLPHTTP: oh}, nil
	default:
		return nil, fmt.Errorf("exporters::%s: unknown exporter type %q", name, typ)
	}
}

func decodeExtension(name string, section map[string]interface{}) (*ExtensionConfig, error) {
	switch typ := ComponentType(name); typ {
	case TypeHealthCheck:
		hc := &HealthCheckConfig{Endpoint: "0.0.0.0:13133"}
		if err := decodeSection("extensions::"+name, section, hc); err != nil {
			return nil, err
		}
		return &ExtensionConfig{Type: typ, HealthCheck: hc}, nil
	case TypePprof:
		pp := &PprofConfig{Endpoint: "localhost:1777"}
		if err := decodeSection("extensions::"+name, section, pp); err != nil {
			return nil, err
		}
		return &ExtensionConfig{Type: typ, Pprof: pp}, nil
	case TypeZPages:
		zp := &ZPagesConfig{Endpoint: "localhost:55679"}
		if err := decodeSection("extensions::"+name, section, zp); err != nil {
			return nil, err
		}
		return &ExtensionConfig{Type: typ, ZPages: zp}, nil
	default:
		return nil, fmt.Errorf("extensions::%s: unknown extension type %q", name, typ)
	}
}

// decodeSection decodes one YAML section into its typed struct. Unknown
// keys are an error so that typos fail startup instead of silently running
// with defaults.
func decodeSection(name string, section map[string]interface{}, target interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := dec.Decode(section); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
