// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package filelog

import (
	"testing"
	"time"

	"github.com/grafana/regexp"
	"github.com/stretchr/testify/require"
)

const testLayout = "2006-01-02T15:04:05Z07:00"

func testExtractor(t *testing.T) *extractor {
	t.Helper()
	re := regexp.MustCompile(`^(?P<time>\S+)\s+(?P<level>\w+)\s+(?P<message>.*)$`)
	return newExtractor("filelog", re, "time", testLayout)
}

func TestExtractorFields(t *testing.T) {
	e := testExtractor(t)

	fields := e.fields("2024-05-01T10:00:00Z ERROR disk full")
	require.Equal(t, map[string]string{
		"time":    "2024-05-01T10:00:00Z",
		"level":   "ERROR",
		"message": "disk full",
	}, fields)
}

func TestExtractorNoMatchReturnsNoFields(t *testing.T) {
	e := testExtractor(t)
	require.Nil(t, e.fields(""))
}

func TestExtractorNilPattern(t *testing.T) {
	e := newExtractor("filelog", nil, "", "")
	require.Nil(t, e.fields("anything"))

	_, ok := e.timestamp(nil)
	require.False(t, ok)
}

func TestExtractorTimestamp(t *testing.T) {
	e := testExtractor(t)

	ts, ok := e.timestamp(map[string]string{"time": "2024-05-01T10:00:00Z"})
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), ts.UTC())
}

func TestExtractorTimestampMalformed(t *testing.T) {
	e := testExtractor(t)

	_, ok := e.timestamp(map[string]string{"time": "yesterday"})
	require.False(t, ok)

	_, ok = e.timestamp(map[string]string{"level": "INFO"})
	require.False(t, ok)
}
