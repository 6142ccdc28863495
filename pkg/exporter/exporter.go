// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package exporter defines the delivery contract and the queued wrapper
// that gives every sink the same sending_queue and retry_on_failure
// semantics: a bounded queue that drops the newest batch when full, one
// delivery attempt in flight at a time, and exponential backoff capped by
// a maximum interval and a maximum total elapsed time.
package exporter

import (
	"context"
	"time"

	"github.com/hashicorp/telemetry-collector/pkg/model"
)

// Exporter is a delivery sink. Export performs exactly one attempt to
// deliver the batch; queuing and retry live in the Queued wrapper so that
// sink implementations stay free of delivery policy.
type Exporter interface {
	Start(ctx context.Context) error
	Export(ctx context.Context, batch *model.Batch) error
	Shutdown(ctx context.Context) error
}

// RetryState is a point-in-time snapshot of a destination's retry
// progress, exposed through the introspection endpoint.
type RetryState struct {
	Retrying        bool          `json:"retrying"`
	CurrentInterval time.Duration `json:"current_interval"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Stat describes one exporter queue for introspection.
type Stat struct {
	Name          string     `json:"name"`
	QueueDepth    int        `json:"queue_depth"`
	QueueCapacity int        `json:"queue_capacity"`
	Retry         RetryState `json:"retry"`
}
