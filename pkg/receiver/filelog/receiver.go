// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package filelog implements the file-tailing receiver: it follows log
// files, reassembles multiline records, extracts structured attributes and
// emits one record per logical log entry.
package filelog

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/armon/go-metrics"
	"github.com/grafana/regexp"
	"github.com/grafana/tail"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/telemetry-collector/pkg/config"
	"github.com/hashicorp/telemetry-collector/pkg/model"
	"github.com/hashicorp/telemetry-collector/pkg/receiver"
)

// Receiver tails every file matched by the include patterns. One goroutine
// per file blocks on the tail's line channel; each holds its own multiline
// aggregator since record reassembly is per-file state.
type Receiver struct {
	name     string
	cfg      *config.FileLogReceiverConfig
	logger   hclog.Logger
	consumer receiver.Consumer

	startPattern *regexp.Regexp
	extract      *extractor

	mu    sync.Mutex
	tails []*tail.Tail
	wg    sync.WaitGroup
}

func New(name string, cfg *config.FileLogReceiverConfig, consumer receiver.Consumer, logger hclog.Logger) (*Receiver, error) {
	r := &Receiver{
		name:     name,
		cfg:      cfg,
		logger:   logger.Named("filelog").With("receiver", name),
		consumer: consumer,
	}

	if cfg.Multiline.LineStartPattern != "" {
		re, err := regexp.Compile(cfg.Multiline.LineStartPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid multiline line_start_pattern: %w", err)
		}
		r.startPattern = re
	}

	var extractRe *regexp.Regexp
	if cfg.Regex.Pattern != "" {
		re, err := regexp.Compile(cfg.Regex.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern: %w", err)
		}
		extractRe = re
	}
	r.extract = newExtractor(name, extractRe, cfg.Timestamp.ParseFrom, cfg.Timestamp.Layout)

	return r, nil
}

// Start opens a tail for every matched file. A pattern naming a single
// concrete file that cannot be opened is a fatal bind error; a glob with no
// matches only logs, since matching files may appear later in the lifetime
// of other receivers but this one tails a fixed set.
func (r *Receiver) Start(ctx context.Context) error {
	var paths []string
	for _, pattern := range r.cfg.Include {
		if !strings.ContainsAny(pattern, "*?[") {
			paths = append(paths, pattern)
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			r.logger.Warn("include pattern matched no files", "pattern", pattern)
		}
		paths = append(paths, matches...)
	}

	whence := io.SeekEnd
	if r.cfg.StartAt == "beginning" {
		whence = io.SeekStart
	}

	for _, path := range paths {
		t, err := tail.TailFile(path, tail.Config{
			Follow:   true,
			ReOpen:   true,
			Location: &tail.SeekInfo{Whence: whence},
			Logger:   tail.DiscardingLogger,
		})
		if err != nil {
			r.closeTails(ctx)
			return fmt.Errorf("failed to open %s for tailing: %w", path, err)
		}
		r.mu.Lock()
		r.tails = append(r.tails, t)
		r.mu.Unlock()

		r.logger.Info("tailing file", "path", path)
		r.wg.Add(1)
		go r.run(t)
	}
	return nil
}

// Shutdown stops every tail, which closes the line channels and lets the
// per-file goroutines flush any open multiline record before exiting.
func (r *Receiver) Shutdown(ctx context.Context) error {
	r.closeTails(ctx)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for file tailers to stop: %w", ctx.Err())
	}
}

func (r *Receiver) closeTails(_ context.Context) {
	r.mu.Lock()
	tails := r.tails
	r.tails = nil
	r.mu.Unlock()

	for _, t := range tails {
		if err := t.Stop(); err != nil {
			r.logger.Warn("error stopping tail", "path", t.Filename, "error", err)
		}
		t.Cleanup()
	}
}

func (r *Receiver) run(t *tail.Tail) {
	defer r.wg.Done()

	agg := newAggregator(r.startPattern)
	for line := range t.Lines {
		if line.Err != nil {
			r.logger.Warn("error reading line", "path", t.Filename, "error", line.Err)
			metrics.IncrCounterWithLabels(
				[]string{"receiver", "read_errors"}, 1,
				[]metrics.Label{{Name: "receiver", Value: r.name}},
			)
			continue
		}
		if text, ok := agg.feed(line.Text); ok {
			r.emit(text)
		}
	}
	// Line channel closed: the file rotated away or the receiver is
	// stopping. Flush the record still being accumulated.
	if text, ok := agg.flush(); ok {
		r.emit(text)
	}
}

// emit converts one logical record into a model.Record. The observed read
// time stands in as the timestamp until a configured parse replaces it.
func (r *Receiver) emit(text string) {
	rec := model.NewRecord(model.SignalLogs)
	rec.Body = text
	rec.Timestamp = time.Now()

	for k, v := range r.cfg.Attributes {
		rec.Attributes.PutStr(k, v)
	}

	fields := r.extract.fields(text)
	for k, v := range fields {
		rec.Attributes.PutStr(k, v)
	}
	if level, ok := fields["level"]; ok {
		rec.SeverityText = level
	}
	if ts, ok := r.extract.timestamp(fields); ok {
		rec.Timestamp = ts
	}

	r.consumer.Consume(rec)
	metrics.IncrCounterWithLabels(
		[]string{"receiver", "accepted_records"}, 1,
		[]metrics.Label{{Name: "receiver", Value: r.name}, {Name: "signal", Value: model.SignalLogs.String()}},
	)
}
