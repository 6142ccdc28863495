// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package filelog

import (
	"strings"

	"github.com/grafana/regexp"
)

type aggregatorState int

const (
	stateIdle aggregatorState = iota
	stateAccumulating
)

// aggregator reassembles logical records from physical lines. A line
// matching the start pattern closes the open record and opens a new one;
// any other line is a continuation appended to the open record. With no
// start pattern every line is its own record.
type aggregator struct {
	startPattern *regexp.Regexp

	state aggregatorState
	buf   strings.Builder
}

func newAggregator(startPattern *regexp.Regexp) *aggregator {
	return &aggregator{startPattern: startPattern}
}

// feed consumes one physical line and returns the logical record it
// completed, if any.
func (a *aggregator) feed(line string) (completed string, ok bool) {
	if a.startPattern == nil {
		return line, true
	}

	if a.startPattern.MatchString(line) {
		completed, ok = a.flush()
		a.state = stateAccumulating
		a.buf.WriteString(line)
		return completed, ok
	}

	switch a.state {
	case stateAccumulating:
		a.buf.WriteByte('\n')
		a.buf.WriteString(line)
	default:
		// A continuation with no open record: stray output before the
		// first start-pattern match. Emit it as its own record rather
		// than dropping it.
		return line, true
	}
	return "", false
}

// flush closes the open record, if any. Called on end-of-stream and file
// rotation so that a trailing record is never lost.
func (a *aggregator) flush() (completed string, ok bool) {
	if a.state != stateAccumulating {
		return "", false
	}
	completed = a.buf.String()
	a.buf.Reset()
	a.state = stateIdle
	return completed, true
}
