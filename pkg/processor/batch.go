// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package processor implements the batching stage: records are buffered in
// arrival order and released downstream when either a size threshold or a
// time window triggers, whichever fires first.
package processor

import (
	"sync"
	"time"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/telemetry-collector/pkg/config"
	"github.com/hashicorp/telemetry-collector/pkg/model"
)

// BatchConsumer accepts batches released by a processor. Ownership of the
// batch transfers with the call.
type BatchConsumer interface {
	ConsumeBatch(b *model.Batch)
}

// Batcher assembles records of one signal kind into batches. A single
// worker goroutine owns the in-progress batch, so triggering is free of
// locks: the size check happens on append, and the window timer races it
// through the same select.
type Batcher struct {
	name    string
	kind    model.SignalKind
	size    int
	timeout time.Duration
	next    BatchConsumer
	logger  hclog.Logger

	in     chan model.Record
	doneCh chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewBatcher(name string, kind model.SignalKind, cfg *config.BatchProcessorConfig, next BatchConsumer, logger hclog.Logger) *Batcher {
	return &Batcher{
		name:    name,
		kind:    kind,
		size:    cfg.SendBatchSize,
		timeout: cfg.Timeout,
		next:    next,
		logger:  logger.Named("batch").With("processor", name, "signal", kind.String()),
		in:      make(chan model.Record, cfg.SendBatchSize),
		doneCh:  make(chan struct{}),
	}
}

// Name returns the configured processor name.
func (b *Batcher) Name() string {
	return b.name
}

// Consume hands a record to the batching worker. It blocks while the
// worker's queue is full, which is the backpressure receivers see. Records
// arriving after Shutdown are dropped and counted: a receiver handler can
// still be finishing a request when the grace period expires, and a late
// record must not take the process down.
func (b *Batcher) Consume(rec model.Record) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		metrics.IncrCounterWithLabels(
			[]string{"processor", "records_dropped"}, 1,
			[]metrics.Label{{Name: "processor", Value: b.name}},
		)
		return
	}
	b.in <- rec
}

// Shutdown closes intake. The worker drains queued records, flushes the
// partial batch and then exits; Done is closed when that has happened.
func (b *Batcher) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.in)
}

func (b *Batcher) Done() <-chan struct{} {
	return b.doneCh
}

// Run is the batching worker loop. The window timer starts when the first
// record of a batch arrives; flushing by either trigger discards the other
// trigger's pending state for that window.
func (b *Batcher) Run() {
	defer close(b.doneCh)

	var (
		cur    *model.Batch
		timer  *time.Timer
		timerC <-chan time.Time
	)

	flush := func(trigger string) {
		if cur == nil {
			return
		}
		b.logger.Debug("flushing batch", "records", cur.Len(), "trigger", trigger)
		metrics.IncrCounterWithLabels(
			[]string{"processor", "batches_flushed"}, 1,
			[]metrics.Label{{Name: "processor", Value: b.name}, {Name: "trigger", Value: trigger}},
		)
		metrics.IncrCounterWithLabels(
			[]string{"processor", "records_flushed"}, float32(cur.Len()),
			[]metrics.Label{{Name: "processor", Value: b.name}},
		)
		b.next.ConsumeBatch(cur)
		cur = nil
		timerC = nil
	}

	for {
		select {
		case rec, ok := <-b.in:
			if !ok {
				flush("shutdown")
				return
			}
			if cur == nil {
				cur = model.NewBatch(b.kind, b.size)
				// A fresh timer per window; an expired one left over
				// from a size-triggered flush must not fire into the
				// next window.
				timer = time.NewTimer(b.timeout)
				timerC = timer.C
			}
			cur.Append(rec)
			if cur.Full(b.size) {
				timer.Stop()
				flush("size")
			}
		case <-timerC:
			flush("timeout")
		}
	}
}

// QueueDepth reports how many records are waiting for the worker. Exposed
// through the introspection endpoint.
func (b *Batcher) QueueDepth() int {
	return len(b.in)
}
