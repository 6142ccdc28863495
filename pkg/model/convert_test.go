// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

func TestRecordsFromTraces(t *testing.T) {
	td := ptrace.NewTraces()
	rs := td.ResourceSpans().AppendEmpty()
	rs.Resource().Attributes().PutStr("service.name", "checkout")
	span := rs.ScopeSpans().AppendEmpty().Spans().AppendEmpty()
	span.SetName("charge-card")
	span.SetTraceID(pcommon.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10})
	span.SetSpanID(pcommon.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})
	span.SetStartTimestamp(pcommon.NewTimestampFromTime(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	span.Attributes().PutStr("payment.provider", "stripe")

	records := RecordsFromTraces(td)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, SignalTraces, rec.Kind)
	require.Equal(t, "charge-card", rec.Name)
	require.Equal(t, "0102030405060708090a0b0c0d0e0f10", rec.TraceID)
	require.Equal(t, "0102030405060708", rec.SpanID)

	// Resource and span attributes are flattened into one map.
	svc, ok := rec.Attributes.Get("service.name")
	require.True(t, ok)
	require.Equal(t, "checkout", svc.Str())
	prov, ok := rec.Attributes.Get("payment.provider")
	require.True(t, ok)
	require.Equal(t, "stripe", prov.Str())
}

func TestTracesFromRecordsRoundTrip(t *testing.T) {
	rec := NewRecord(SignalTraces)
	rec.Name = "query"
	rec.TraceID = "0102030405060708090a0b0c0d0e0f10"
	rec.SpanID = "0102030405060708"
	rec.Timestamp = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec.Attributes.PutStr("db.system", "clickhouse")

	td := TracesFromRecords([]Record{rec})
	require.Equal(t, 1, td.SpanCount())

	out := RecordsFromTraces(td)
	require.Len(t, out, 1)
	require.Equal(t, rec.Name, out[0].Name)
	require.Equal(t, rec.TraceID, out[0].TraceID)
	require.Equal(t, rec.SpanID, out[0].SpanID)
	require.Equal(t, rec.Timestamp, out[0].Timestamp)
}

func TestRecordsFromLogsFallsBackToObservedTimestamp(t *testing.T) {
	ld := plog.NewLogs()
	lr := ld.ResourceLogs().AppendEmpty().ScopeLogs().AppendEmpty().LogRecords().AppendEmpty()
	lr.Body().SetStr("disk full")
	lr.SetSeverityText("ERROR")
	observed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	lr.SetObservedTimestamp(pcommon.NewTimestampFromTime(observed))

	records := RecordsFromLogs(ld)
	require.Len(t, records, 1)
	require.Equal(t, "disk full", records[0].Body)
	require.Equal(t, "ERROR", records[0].SeverityText)
	require.Equal(t, observed, records[0].Timestamp)
}

func TestRecordsFromMetrics(t *testing.T) {
	md := pmetric.NewMetrics()
	ms := md.ResourceMetrics().AppendEmpty().ScopeMetrics().AppendEmpty().Metrics()

	gauge := ms.AppendEmpty()
	gauge.SetName("queue.depth")
	dp := gauge.SetEmptyGauge().DataPoints().AppendEmpty()
	dp.SetIntValue(42)

	hist := ms.AppendEmpty()
	hist.SetName("request.duration")
	hdp := hist.SetEmptyHistogram().DataPoints().AppendEmpty()
	hdp.SetCount(7)

	records := RecordsFromMetrics(md)
	require.Len(t, records, 2)
	require.Equal(t, "queue.depth", records[0].Name)
	require.Equal(t, float64(42), records[0].Value)
	require.Equal(t, "request.duration", records[1].Name)
	require.Equal(t, float64(7), records[1].Value)
}

func TestBatchCopyIsIndependent(t *testing.T) {
	b := NewBatch(SignalLogs, 2)
	rec := NewRecord(SignalLogs)
	rec.Body = "a"
	b.Append(rec)

	c := b.Copy()
	require.Equal(t, b.Len(), c.Len())
	require.Equal(t, b.CreatedAt, c.CreatedAt)

	rec2 := NewRecord(SignalLogs)
	rec2.Body = "b"
	c.Append(rec2)
	require.Equal(t, 1, b.Len())
	require.Equal(t, 2, c.Len())
}

func TestParseSignalKind(t *testing.T) {
	for _, kind := range []SignalKind{SignalTraces, SignalLogs, SignalMetrics} {
		parsed, err := ParseSignalKind(kind.String())
		require.NoError(t, err)
		require.Equal(t, kind, parsed)
	}
	_, err := ParseSignalKind("events")
	require.Error(t, err)
}
