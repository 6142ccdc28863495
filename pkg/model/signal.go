// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package model

import "fmt"

// SignalKind identifies the class of telemetry a record or batch carries.
type SignalKind int

const (
	SignalTraces SignalKind = iota
	SignalLogs
	SignalMetrics
)

func (k SignalKind) String() string {
	switch k {
	case SignalTraces:
		return "traces"
	case SignalLogs:
		return "logs"
	case SignalMetrics:
		return "metrics"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ParseSignalKind parses a signal kind from its configuration name. Pipeline
// names may carry a qualifier after a slash ("traces/backend"); callers strip
// that before parsing.
func ParseSignalKind(s string) (SignalKind, error) {
	switch s {
	case "traces":
		return SignalTraces, nil
	case "logs":
		return SignalLogs, nil
	case "metrics":
		return SignalMetrics, nil
	default:
		return 0, fmt.Errorf("unknown signal kind %q", s)
	}
}
