// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package model

import (
	"encoding/hex"
	"fmt"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

// Conversions between the pdata OTLP payload types and the internal record
// model. Resource and item attributes are flattened into the record's single
// attribute map; the reverse conversions reattach everything at the item
// level, which is lossy for resource grouping but preserves every key.

// RecordsFromTraces flattens an OTLP trace payload into records, preserving
// span order within each scope.
func RecordsFromTraces(td ptrace.Traces) []Record {
	records := make([]Record, 0, td.SpanCount())
	resSpans := td.ResourceSpans()
	for i := 0; i < resSpans.Len(); i++ {
		rs := resSpans.At(i)
		scopeSpans := rs.ScopeSpans()
		for j := 0; j < scopeSpans.Len(); j++ {
			spans := scopeSpans.At(j).Spans()
			for k := 0; k < spans.Len(); k++ {
				span := spans.At(k)
				rec := NewRecord(SignalTraces)
				rec.Name = span.Name()
				rec.TraceID = span.TraceID().String()
				rec.SpanID = span.SpanID().String()
				rec.Timestamp = span.StartTimestamp().AsTime()
				rs.Resource().Attributes().CopyTo(rec.Attributes)
				mergeAttributes(rec.Attributes, span.Attributes())
				records = append(records, rec)
			}
		}
	}
	return records
}

// RecordsFromLogs flattens an OTLP log payload into records.
func RecordsFromLogs(ld plog.Logs) []Record {
	records := make([]Record, 0, ld.LogRecordCount())
	resLogs := ld.ResourceLogs()
	for i := 0; i < resLogs.Len(); i++ {
		rl := resLogs.At(i)
		scopeLogs := rl.ScopeLogs()
		for j := 0; j < scopeLogs.Len(); j++ {
			logs := scopeLogs.At(j).LogRecords()
			for k := 0; k < logs.Len(); k++ {
				lr := logs.At(k)
				rec := NewRecord(SignalLogs)
				rec.Body = lr.Body().AsString()
				rec.SeverityText = lr.SeverityText()
				rec.Timestamp = lr.Timestamp().AsTime()
				if lr.Timestamp() == 0 {
					rec.Timestamp = lr.ObservedTimestamp().AsTime()
				}
				if !lr.TraceID().IsEmpty() {
					rec.TraceID = lr.TraceID().String()
					rec.SpanID = lr.SpanID().String()
				}
				rl.Resource().Attributes().CopyTo(rec.Attributes)
				mergeAttributes(rec.Attributes, lr.Attributes())
				records = append(records, rec)
			}
		}
	}
	return records
}

// RecordsFromMetrics flattens an OTLP metric payload into one record per data
// point. Histogram, exponential histogram and summary points are represented
// by their observation count.
func RecordsFromMetrics(md pmetric.Metrics) []Record {
	records := make([]Record, 0, md.DataPointCount())
	resMetrics := md.ResourceMetrics()
	for i := 0; i < resMetrics.Len(); i++ {
		rm := resMetrics.At(i)
		scopeMetrics := rm.ScopeMetrics()
		for j := 0; j < scopeMetrics.Len(); j++ {
			ms := scopeMetrics.At(j).Metrics()
			for k := 0; k < ms.Len(); k++ {
				m := ms.At(k)
				switch m.Type() {
				case pmetric.MetricTypeGauge:
					records = appendNumberPoints(records, rm.Resource().Attributes(), m.Name(), m.Gauge().DataPoints())
				case pmetric.MetricTypeSum:
					records = appendNumberPoints(records, rm.Resource().Attributes(), m.Name(), m.Sum().DataPoints())
				case pmetric.MetricTypeHistogram:
					dps := m.Histogram().DataPoints()
					for l := 0; l < dps.Len(); l++ {
						dp := dps.At(l)
						rec := NewRecord(SignalMetrics)
						rec.Name = m.Name()
						rec.Value = float64(dp.Count())
						rec.Timestamp = dp.Timestamp().AsTime()
						rm.Resource().Attributes().CopyTo(rec.Attributes)
						mergeAttributes(rec.Attributes, dp.Attributes())
						records = append(records, rec)
					}
				case pmetric.MetricTypeSummary:
					dps := m.Summary().DataPoints()
					for l := 0; l < dps.Len(); l++ {
						dp := dps.At(l)
						rec := NewRecord(SignalMetrics)
						rec.Name = m.Name()
						rec.Value = float64(dp.Count())
						rec.Timestamp = dp.Timestamp().AsTime()
						rm.Resource().Attributes().CopyTo(rec.Attributes)
						mergeAttributes(rec.Attributes, dp.Attributes())
						records = append(records, rec)
					}
				}
			}
		}
	}
	return records
}

func appendNumberPoints(records []Record, resource pcommon.Map, name string, dps pmetric.NumberDataPointSlice) []Record {
	for i := 0; i < dps.Len(); i++ {
		dp := dps.At(i)
		rec := NewRecord(SignalMetrics)
		rec.Name = name
		rec.Timestamp = dp.Timestamp().AsTime()
		switch dp.ValueType() {
		case pmetric.NumberDataPointValueTypeInt:
			rec.Value = float64(dp.IntValue())
		default:
			rec.Value = dp.DoubleValue()
		}
		resource.CopyTo(rec.Attributes)
		mergeAttributes(rec.Attributes, dp.Attributes())
		records = append(records, rec)
	}
	return records
}

// TracesFromRecords rebuilds an OTLP trace payload from records, for
// forwarding exporters.
func TracesFromRecords(records []Record) ptrace.Traces {
	td := ptrace.NewTraces()
	spans := td.ResourceSpans().AppendEmpty().ScopeSpans().AppendEmpty().Spans()
	for _, rec := range records {
		span := spans.AppendEmpty()
		span.SetName(rec.Name)
		span.SetStartTimestamp(pcommon.NewTimestampFromTime(rec.Timestamp))
		if id, err := parseTraceID(rec.TraceID); err == nil {
			span.SetTraceID(id)
		}
		if id, err := parseSpanID(rec.SpanID); err == nil {
			span.SetSpanID(id)
		}
		rec.Attributes.CopyTo(span.Attributes())
	}
	return td
}

// LogsFromRecords rebuilds an OTLP log payload from records.
func LogsFromRecords(records []Record) plog.Logs {
	ld := plog.NewLogs()
	logs := ld.ResourceLogs().AppendEmpty().ScopeLogs().AppendEmpty().LogRecords()
	for _, rec := range records {
		lr := logs.AppendEmpty()
		lr.Body().SetStr(rec.Body)
		lr.SetSeverityText(rec.SeverityText)
		lr.SetTimestamp(pcommon.NewTimestampFromTime(rec.Timestamp))
		rec.Attributes.CopyTo(lr.Attributes())
	}
	return ld
}

// MetricsFromRecords rebuilds an OTLP metric payload from records. Every
// record becomes a double gauge data point.
func MetricsFromRecords(records []Record) pmetric.Metrics {
	md := pmetric.NewMetrics()
	ms := md.ResourceMetrics().AppendEmpty().ScopeMetrics().AppendEmpty().Metrics()
	for _, rec := range records {
		m := ms.AppendEmpty()
		m.SetName(rec.Name)
		dp := m.SetEmptyGauge().DataPoints().AppendEmpty()
		dp.SetDoubleValue(rec.Value)
		dp.SetTimestamp(pcommon.NewTimestampFromTime(rec.Timestamp))
		rec.Attributes.CopyTo(dp.Attributes())
	}
	return md
}

func mergeAttributes(dst pcommon.Map, src pcommon.Map) {
	src.Range(func(k string, v pcommon.Value) bool {
		v.CopyTo(dst.PutEmpty(k))
		return true
	})
}

func parseTraceID(s string) (pcommon.TraceID, error) {
	var id pcommon.TraceID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("trace ID must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func parseSpanID(s string) (pcommon.SpanID, error) {
	var id pcommon.SpanID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("span ID must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}
