// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package exporter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/armon/go-metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/telemetry-collector/pkg/config"
	"github.com/hashicorp/telemetry-collector/pkg/model"
)

// Queued wraps a sink with the bounded sending queue and the retry loop.
// It implements processor.BatchConsumer on the intake side.
type Queued struct {
	name    string
	sink    Exporter
	timeout time.Duration
	retry   config.RetryConfig
	logger  hclog.Logger

	queue     chan *model.Batch
	doneCh    chan struct{}
	closeOnce sync.Once
	abortCh   chan struct{}
	abortOnce sync.Once
	started   atomic.Bool

	mu         sync.Mutex
	retryState RetryState
}

// NewQueued builds the wrapper. A disabled sending queue degrades to a
// single-slot queue: delivery is still serialized and intake still drops
// instead of blocking forever, but at most one batch waits.
func NewQueued(name string, sink Exporter, timeout time.Duration, queueCfg config.SendingQueueConfig, retryCfg config.RetryConfig, logger hclog.Logger) *Queued {
	size := queueCfg.QueueSize
	if !queueCfg.Enabled {
		size = 1
	}
	return &Queued{
		name:    name,
		sink:    sink,
		timeout: timeout,
		retry:   retryCfg,
		logger:  logger.Named("exporter").With("exporter", name),
		queue:   make(chan *model.Batch, size),
		doneCh:  make(chan struct{}),
		abortCh: make(chan struct{}),
	}
}

// Name returns the configured exporter name.
func (q *Queued) Name() string {
	return q.name
}

// Start starts the underlying sink.
func (q *Queued) Start(ctx context.Context) error {
	return q.sink.Start(ctx)
}

// ConsumeBatch enqueues a completed batch. When the queue is at capacity
// the new batch is rejected and counted: dropping the newest bounds memory
// and keeps the pipeline live while the destination is down, rather than
// stalling every stage upstream.
func (q *Queued) ConsumeBatch(b *model.Batch) {
	select {
	case q.queue <- b:
	default:
		q.logger.Warn("sending queue full, dropping batch",
			"records", b.Len(), "signal", b.Kind.String(), "queue_size", cap(q.queue))
		q.countDrop(b, "queue_full")
	}
}

// Run is the delivery loop: one batch at a time, in FIFO order. It exits
// when the queue has been closed and fully drained. The context bounds
// every attempt and backoff wait; once Drain gives up, the remaining
// batches are dropped and counted here without touching the sink.
func (q *Queued) Run(ctx context.Context) {
	q.started.Store(true)
	defer close(q.doneCh)
	for batch := range q.queue {
		metrics.SetGaugeWithLabels(
			[]string{"exporter", "queue_depth"}, float32(len(q.queue)),
			[]metrics.Label{{Name: "exporter", Value: q.name}},
		)
		select {
		case <-q.abortCh:
			q.countDrop(batch, "shutdown")
			continue
		default:
		}
		q.deliver(ctx, batch)
	}
}

// Drain closes intake and waits for the delivery loop to finish the
// queued batches, up to the context's deadline. Past the deadline the
// loop is aborted so the sink can be shut down; undelivered batches are
// dropped and counted exactly once, by whichever side takes them off the
// queue.
func (q *Queued) Drain(ctx context.Context) error {
	q.closeOnce.Do(func() {
		close(q.queue)
	})
	select {
	case <-q.doneCh:
		return nil
	case <-ctx.Done():
	}

	remaining := len(q.queue)
	q.abortOnce.Do(func() {
		close(q.abortCh)
	})
	if q.started.Load() {
		// The loop stops exporting once aborted, so this wait is bounded
		// by a single in-flight attempt timeout.
		<-q.doneCh
	} else {
		for batch := range q.queue {
			q.countDrop(batch, "shutdown")
		}
	}
	return fmt.Errorf("exporter %s: %d queued batches undelivered at shutdown", q.name, remaining)
}

// Shutdown stops the underlying sink after the queue has drained.
func (q *Queued) Shutdown(ctx context.Context) error {
	return q.sink.Shutdown(ctx)
}

// deliver attempts the batch until success, retry exhaustion or context
// cancellation. Backoff is explicit loop state rather than a callback so
// that cancellation and introspection stay simple.
func (q *Queued) deliver(ctx context.Context, batch *model.Batch) {
	// An aborted drain cancels the in-flight attempt as well as the
	// backoff wait; the watcher exits through the deferred cancel.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-q.abortCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	bo := q.newBackOff()

	for {
		attemptCtx, cancel := context.WithTimeout(ctx, q.timeout)
		err := q.sink.Export(attemptCtx, batch)
		cancel()

		if err == nil {
			q.setRetryState(RetryState{})
			metrics.IncrCounterWithLabels(
				[]string{"exporter", "sent_batches"}, 1,
				[]metrics.Label{{Name: "exporter", Value: q.name}},
			)
			metrics.IncrCounterWithLabels(
				[]string{"exporter", "sent_records"}, float32(batch.Len()),
				[]metrics.Label{{Name: "exporter", Value: q.name}},
			)
			return
		}

		if ctx.Err() != nil {
			q.dropAfterFailure(batch, "shutdown", err)
			return
		}
		if !q.retry.Enabled {
			q.dropAfterFailure(batch, "retry_disabled", err)
			return
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			q.dropAfterFailure(batch, "max_elapsed_time", err)
			return
		}

		q.setRetryState(RetryState{
			Retrying:        true,
			CurrentInterval: wait,
			Elapsed:         bo.GetElapsedTime(),
		})
		q.logger.Warn("delivery failed, backing off",
			"error", err, "interval", wait, "records", batch.Len(), "signal", batch.Kind.String())

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			q.dropAfterFailure(batch, "shutdown", err)
			return
		}
	}
}

// newBackOff builds the per-batch retry schedule: intervals double from
// initial_interval, cap at max_interval, and stop once max_elapsed_time
// has passed. Randomization is off so the schedule is deterministic.
func (q *Queued) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = q.retry.InitialInterval
	bo.MaxInterval = q.retry.MaxInterval
	bo.MaxElapsedTime = q.retry.MaxElapsedTime
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()
	return bo
}

func (q *Queued) dropAfterFailure(batch *model.Batch, reason string, err error) {
	q.setRetryState(RetryState{})
	q.logger.Error("permanently dropping batch",
		"reason", reason, "error", err, "records", batch.Len(), "signal", batch.Kind.String())
	q.countDrop(batch, reason)
}

func (q *Queued) countDrop(batch *model.Batch, reason string) {
	labels := []metrics.Label{{Name: "exporter", Value: q.name}, {Name: "reason", Value: reason}}
	metrics.IncrCounterWithLabels([]string{"exporter", "dropped_batches"}, 1, labels)
	metrics.IncrCounterWithLabels([]string{"exporter", "dropped_records"}, float32(batch.Len()), labels)
}

func (q *Queued) setRetryState(s RetryState) {
	q.mu.Lock()
	q.retryState = s
	q.mu.Unlock()
}

// Snapshot reports queue depth and retry progress for introspection.
func (q *Queued) Snapshot() Stat {
	q.mu.Lock()
	rs := q.retryState
	q.mu.Unlock()
	return Stat{
		Name:          q.name,
		QueueDepth:    len(q.queue),
		QueueCapacity: cap(q.queue),
		Retry:         rs,
	}
}
