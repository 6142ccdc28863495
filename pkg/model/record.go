// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package model

import (
	"time"

	"go.opentelemetry.io/collector/pdata/pcommon"
)

// Record is a single telemetry item flowing through a pipeline: one span, one
// log record or one metric data point. A receiver builds a Record once and
// must not mutate it after handing it downstream; ownership transfers with
// the record across each stage boundary.
type Record struct {
	Kind      SignalKind
	Timestamp time.Time

	// Attributes carries resource and item attributes flattened into one map.
	Attributes pcommon.Map

	// Body is the log line text. Empty for traces and metrics.
	Body string

	// Name is the span name (traces) or metric name (metrics).
	Name string

	// Value is the metric data point value. Zero for other kinds.
	Value float64

	// TraceID and SpanID are lowercase hex. Empty for non-trace records.
	TraceID string
	SpanID  string

	// SeverityText is the log severity as received. Empty for other kinds.
	SeverityText string
}

// NewRecord returns a record of the given kind with an empty attribute map.
func NewRecord(kind SignalKind) Record {
	return Record{
		Kind:       kind,
		Attributes: pcommon.NewMap(),
	}
}
