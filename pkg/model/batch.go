// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package model

import "time"

// Batch is an ordered run of records of one signal kind. The batching
// processor owns a batch exclusively while assembling it; ownership moves to
// exactly one exporter queue when the batch is flushed. Pipelines with
// several exporters each get their own copy so that no two stages ever hold
// the same batch.
type Batch struct {
	Kind      SignalKind
	Records   []Record
	CreatedAt time.Time
}

// NewBatch returns an empty batch stamped with its creation time.
func NewBatch(kind SignalKind, capacity int) *Batch {
	return &Batch{
		Kind:      kind,
		Records:   make([]Record, 0, capacity),
		CreatedAt: time.Now(),
	}
}

// Append adds a record, preserving arrival order.
func (b *Batch) Append(r Record) {
	b.Records = append(b.Records, r)
}

func (b *Batch) Len() int {
	return len(b.Records)
}

// Full reports whether the batch has reached the given size threshold.
func (b *Batch) Full(threshold int) bool {
	return len(b.Records) >= threshold
}

// Age reports how long ago the batch was started.
func (b *Batch) Age() time.Duration {
	return time.Since(b.CreatedAt)
}

// Copy returns a batch holding the same records. Records themselves are
// immutable after emission, so a shallow copy of the slice is sufficient.
func (b *Batch) Copy() *Batch {
	records := make([]Record, len(b.Records))
	copy(records, b.Records)
	return &Batch{Kind: b.Kind, Records: records, CreatedAt: b.CreatedAt}
}
