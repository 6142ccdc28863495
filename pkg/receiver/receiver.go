// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package receiver defines the contract between telemetry sources and the
// rest of a pipeline.
package receiver

import (
	"context"

	"github.com/hashicorp/telemetry-collector/pkg/model"
)

// Consumer accepts records from a receiver in arrival order. Consume may
// block while downstream stages apply backpressure; it returns once the
// record has been accepted or the pipeline has stopped.
type Consumer interface {
	Consume(rec model.Record)
}

// Receiver converts an external telemetry source into records. Start must
// fail if the underlying listener or file source cannot be opened; the
// supervisor treats that as a fatal startup error. Shutdown stops intake
// and flushes anything buffered inside the receiver.
type Receiver interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
