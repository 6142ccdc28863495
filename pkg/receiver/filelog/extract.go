// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package filelog

import (
	"time"

	"github.com/armon/go-metrics"
	"github.com/grafana/regexp"
)

// extractor populates record attributes from a logical record's text and
// promotes an extracted timestamp attribute to the record's canonical
// timestamp. Failures leave derived fields unset and bump a counter; the
// record itself always survives.
type extractor struct {
	name string

	pattern    *regexp.Regexp
	groupNames []string

	tsAttribute string
	tsLayout    string
}

func newExtractor(name string, pattern *regexp.Regexp, tsAttribute, tsLayout string) *extractor {
	e := &extractor{
		name:        name,
		pattern:     pattern,
		tsAttribute: tsAttribute,
		tsLayout:    tsLayout,
	}
	if pattern != nil {
		e.groupNames = pattern.SubexpNames()
	}
	return e
}

// fields runs the extraction regex over the record text and returns the
// named capture groups. A non-matching record returns no fields.
func (e *extractor) fields(text string) map[string]string {
	if e.pattern == nil {
		return nil
	}
	match := e.pattern.FindStringSubmatch(text)
	if match == nil {
		e.countParseError("regex_no_match")
		return nil
	}
	fields := make(map[string]string, len(e.groupNames))
	for i, name := range e.groupNames {
		if name == "" || i >= len(match) {
			continue
		}
		fields[name] = match[i]
	}
	return fields
}

// timestamp parses the designated attribute with the configured layout.
// ok is false when the attribute is missing or malformed.
func (e *extractor) timestamp(fields map[string]string) (time.Time, bool) {
	if e.tsAttribute == "" {
		return time.Time{}, false
	}
	raw, present := fields[e.tsAttribute]
	if !present {
		e.countParseError("timestamp_missing")
		return time.Time{}, false
	}
	ts, err := time.Parse(e.tsLayout, raw)
	if err != nil {
		e.countParseError("timestamp_malformed")
		return time.Time{}, false
	}
	return ts, true
}

func (e *extractor) countParseError(reason string) {
	metrics.IncrCounterWithLabels(
		[]string{"receiver", "parse_errors"},
		1,
		[]metrics.Label{{Name: "receiver", Value: e.name}, {Name: "reason", Value: reason}},
	)
}
