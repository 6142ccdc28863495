// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package collector

import "github.com/armon/go-metrics/prometheus"

var gauges = []prometheus.GaugeDefinition{
	{
		Name: []string{"exporter", "queue_depth"},
		Help: "Number of batches waiting in an exporter's sending queue.",
	},
}

var counters = []prometheus.CounterDefinition{
	{
		Name: []string{"receiver", "accepted_records"},
		Help: "Telemetry records accepted by a receiver and handed to its pipelines.",
	},
	{
		Name: []string{"receiver", "decode_errors"},
		Help: "Requests a receiver rejected because the payload could not be decoded.",
	},
	{
		Name: []string{"receiver", "parse_errors"},
		Help: "Log records whose field extraction or timestamp parsing failed.",
	},
	{
		Name: []string{"receiver", "read_errors"},
		Help: "Errors encountered while reading a tailed file.",
	},
	{
		Name: []string{"processor", "batches_flushed"},
		Help: "Batches emitted by a batch processor, labeled with the flush trigger.",
	},
	{
		Name: []string{"processor", "records_flushed"},
		Help: "Records emitted by a batch processor.",
	},
	{
		Name: []string{"processor", "records_dropped"},
		Help: "Records that arrived after a batch processor's intake closed during shutdown.",
	},
	{
		Name: []string{"exporter", "sent_batches"},
		Help: "Batches successfully delivered by an exporter.",
	},
	{
		Name: []string{"exporter", "sent_records"},
		Help: "Records successfully delivered by an exporter.",
	},
	{
		Name: []string{"exporter", "dropped_batches"},
		Help: "Batches dropped by an exporter, labeled with the drop reason.",
	},
	{
		Name: []string{"exporter", "dropped_records"},
		Help: "Records dropped by an exporter, labeled with the drop reason.",
	},
}
