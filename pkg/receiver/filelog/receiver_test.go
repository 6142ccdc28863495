// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package filelog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/telemetry-collector/pkg/config"
	"github.com/hashicorp/telemetry-collector/pkg/model"
)

type recordCollector struct {
	mu      sync.Mutex
	records []model.Record
}

func (c *recordCollector) Consume(rec model.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

func (c *recordCollector) snapshot() []model.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Record(nil), c.records...)
}

func TestReceiverTailsFromBeginning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	content := "2024-05-01T10:00:00Z ERROR something broke\n" +
		"    caused by: connection refused\n" +
		"2024-05-01T10:00:01Z INFO recovered\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	sink := &recordCollector{}
	r, err := New("filelog", &config.FileLogReceiverConfig{
		Include:   []string{path},
		StartAt:   "beginning",
		Multiline: config.MultilineConfig{LineStartPattern: `^\d{4}-\d{2}-\d{2}`},
		Regex: config.RegexConfig{
			Pattern: `^(?P<time>\S+)\s+(?P<level>\w+)\s+(?P<message>.*)`,
		},
		Timestamp: config.TimestampConfig{
			ParseFrom: "time",
			Layout:    "2006-01-02T15:04:05Z07:00",
		},
		Attributes: map[string]string{"service.name": "app"},
	}, sink, hclog.NewNullLogger())
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, r.Shutdown(ctx))
	}()

	// The second record only completes once a later start line arrives or
	// the stream ends, so only the first is guaranteed while tailing.
	require.Eventually(t, func() bool {
		return len(sink.snapshot()) >= 1
	}, 5*time.Second, 20*time.Millisecond)

	rec := sink.snapshot()[0]
	require.Equal(t, model.SignalLogs, rec.Kind)
	require.Equal(t, "2024-05-01T10:00:00Z ERROR something broke\n    caused by: connection refused", rec.Body)
	require.Equal(t, "ERROR", rec.SeverityText)
	require.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), rec.Timestamp.UTC())

	level, ok := rec.Attributes.Get("level")
	require.True(t, ok)
	require.Equal(t, "ERROR", level.Str())
	svc, ok := rec.Attributes.Get("service.name")
	require.True(t, ok)
	require.Equal(t, "app", svc.Str())
}

func TestReceiverFlushesOpenRecordOnShutdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("2024-05-01T10:00:00Z INFO only record\n"), 0o644))

	sink := &recordCollector{}
	r, err := New("filelog", &config.FileLogReceiverConfig{
		Include:   []string{path},
		StartAt:   "beginning",
		Multiline: config.MultilineConfig{LineStartPattern: `^\d{4}-\d{2}-\d{2}`},
	}, sink, hclog.NewNullLogger())
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))

	// Wait for the tail to have read the line, then stop: the open
	// multiline record must flush rather than vanish.
	time.Sleep(500 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	records := sink.snapshot()
	require.Len(t, records, 1)
	require.Equal(t, "2024-05-01T10:00:00Z INFO only record", records[0].Body)
}

func TestReceiverRejectsInvalidPatterns(t *testing.T) {
	_, err := New("filelog", &config.FileLogReceiverConfig{
		Include:   []string{"/var/log/app.log"},
		Multiline: config.MultilineConfig{LineStartPattern: `([`},
	}, &recordCollector{}, hclog.NewNullLogger())
	require.Error(t, err)

	_, err = New("filelog", &config.FileLogReceiverConfig{
		Include: []string{"/var/log/app.log"},
		Regex:   config.RegexConfig{Pattern: `([`},
	}, &recordCollector{}, hclog.NewNullLogger())
	require.Error(t, err)
}
