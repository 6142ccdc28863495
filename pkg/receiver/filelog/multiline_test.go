// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package filelog

import (
	"testing"

	"github.com/grafana/regexp"
	"github.com/stretchr/testify/require"
)

func feedAll(a *aggregator, lines []string) []string {
	var out []string
	for _, line := range lines {
		if text, ok := a.feed(line); ok {
			out = append(out, text)
		}
	}
	if text, ok := a.flush(); ok {
		out = append(out, text)
	}
	return out
}

func TestAggregatorNoPatternPassesLinesThrough(t *testing.T) {
	a := newAggregator(nil)
	out := feedAll(a, []string{"one", "two", "three"})
	require.Equal(t, []string{"one", "two", "three"}, out)
}

func TestAggregatorJoinsContinuationLines(t *testing.T) {
	a := newAggregator(regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`))
	out := feedAll(a, []string{
		"2024-05-01T10:00:00Z ERROR something broke",
		"    caused by: connection refused",
		"    at handler.go:42",
		"2024-05-01T10:00:01Z INFO recovered",
	})
	require.Equal(t, []string{
		"2024-05-01T10:00:00Z ERROR something broke\n    caused by: connection refused\n    at handler.go:42",
		"2024-05-01T10:00:01Z INFO recovered",
	}, out)
}

func TestAggregatorEmitsStrayContinuation(t *testing.T) {
	// Output preceding the first start-pattern match has no record to be
	// appended to; it must still come out the other side.
	a := newAggregator(regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`))
	out := feedAll(a, []string{
		"    orphan continuation",
		"2024-05-01T10:00:00Z INFO first real record",
	})
	require.Equal(t, []string{
		"    orphan continuation",
		"2024-05-01T10:00:00Z INFO first real record",
	}, out)
}

func TestAggregatorFlushIsIdempotent(t *testing.T) {
	a := newAggregator(regexp.MustCompile(`^\d{4}`))
	_, ok := a.flush()
	require.False(t, ok)

	_, ok = a.feed("2024 open record")
	require.False(t, ok)

	text, ok := a.flush()
	require.True(t, ok)
	require.Equal(t, "2024 open record", text)

	_, ok = a.flush()
	require.False(t, ok)
}
