// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/telemetry-collector/pkg/config"
	"github.com/hashicorp/telemetry-collector/pkg/exporter"
	"github.com/hashicorp/telemetry-collector/pkg/exporter/clickhouse"
	"github.com/hashicorp/telemetry-collector/pkg/exporter/otlphttp"
	"github.com/hashicorp/telemetry-collector/pkg/model"
	"github.com/hashicorp/telemetry-collector/pkg/processor"
	"github.com/hashicorp/telemetry-collector/pkg/receiver"
	"github.com/hashicorp/telemetry-collector/pkg/receiver/filelog"
	"github.com/hashicorp/telemetry-collector/pkg/receiver/otlp"
)

// pipeline is one wired chain of batchers ending in a fanout over shared
// exporter queues. batchers is in processing order: index 0 takes records
// from receivers.
type pipeline struct {
	name      string
	kind      model.SignalKind
	batchers  []*processor.Batcher
	exporters []string
}

// drainBatchers shuts the chain down stage by stage: each batcher's
// partial batch flushes into the next stage, which must still be accepting
// records, so the order is strictly front to back.
func (p *pipeline) drainBatchers(ctx context.Context) error {
	for _, b := range p.batchers {
		b.Shutdown()
		select {
		case <-b.Done():
		case <-ctx.Done():
			return fmt.Errorf("pipeline %s: batcher %s did not drain before deadline", p.name, b.Name())
		}
	}
	return nil
}

// pipelines holds every built component. Receivers and exporter queues
// are shared: a receiver named in two pipelines binds its listeners once,
// and an exporter named in two pipelines has one sending queue.
type pipelines struct {
	receivers map[string]receiver.Receiver
	queues    map[string]*exporter.Queued
	pipes     []*pipeline
}

// signalRouter is the consumer a shared receiver pushes into. Records are
// routed by signal kind to the entry batcher of every pipeline that
// references the receiver; a kind no pipeline wants is dropped here.
type signalRouter struct {
	routes map[model.SignalKind][]*processor.Batcher
}

func (s *signalRouter) Consume(rec model.Record) {
	for _, b := range s.routes[rec.Kind] {
		b.Consume(rec)
	}
}

// fanout hands a released batch to every exporter queue of a pipeline.
// All but one consumer get a copy, taken before any consumer can touch
// the original, so the ownership-transfer contract holds per destination.
type fanout struct {
	consumers []processor.BatchConsumer
}

func (f *fanout) ConsumeBatch(b *model.Batch) {
	out := make([]*model.Batch, len(f.consumers))
	out[0] = b
	for i := 1; i < len(f.consumers); i++ {
		out[i] = b.Copy()
	}
	for i, c := range f.consumers {
		c.ConsumeBatch(out[i])
	}
}

// recordsUnwrapper links two batchers in a chain by replaying a released
// batch's records into the next stage.
type recordsUnwrapper struct {
	next *processor.Batcher
}

func (u *recordsUnwrapper) ConsumeBatch(b *model.Batch) {
	for _, rec := range b.Records {
		u.next.Consume(rec)
	}
}

// implicitBatchConfig is used when a pipeline lists no processors: the
// exporter side only speaks batches, so records still flow through a
// batcher with the default triggers.
func implicitBatchConfig() *config.BatchProcessorConfig {
	return &config.BatchProcessorConfig{
		Timeout:       200 * time.Millisecond,
		SendBatchSize: 8192,
	}
}

// buildPipelines constructs every component the service section names and
// wires them together. Nothing is started here; the collector starts the
// pieces in dependency order once construction has fully succeeded.
func buildPipelines(cfg *config.Config, logger hclog.Logger) (*pipelines, error) {
	ps := &pipelines{
		receivers: map[string]receiver.Receiver{},
		queues:    map[string]*exporter.Queued{},
	}

	// Exporter queues first, shared by name across pipelines.
	for _, pname := range cfg.PipelineNames() {
		for _, ref := range cfg.Service.Pipelines[pname].Exporters {
			if _, ok := ps.queues[ref]; ok {
				continue
			}
			q, err := buildExporter(ref, cfg.Exporters[ref], logger)
			if err != nil {
				return nil, err
			}
			ps.queues[ref] = q
		}
	}

	// Pipelines: batcher chains built back to front so each stage knows
	// its downstream consumer at construction time.
	routerEntries := map[string]map[model.SignalKind][]*processor.Batcher{}
	for _, pname := range cfg.PipelineNames() {
		pc := cfg.Service.Pipelines[pname]
		kind, err := model.ParseSignalKind(config.ComponentType(pname))
		if err != nil {
			return nil, err
		}

		sinks := make([]processor.BatchConsumer, 0, len(pc.Exporters))
		for _, ref := range pc.Exporters {
			sinks = append(sinks, ps.queues[ref])
		}
		var next processor.BatchConsumer
		if len(sinks) == 1 {
			next = sinks[0]
		} else {
			next = &fanout{consumers: sinks}
		}

		procNames := pc.Processors
		procCfgs := make([]*config.BatchProcessorConfig, len(procNames))
		for i, ref := range procNames {
			procCfgs[i] = cfg.Processors[ref].Batch
		}
		if len(procNames) == 0 {
			procNames = []string{"batch"}
			procCfgs = []*config.BatchProcessorConfig{implicitBatchConfig()}
		}

		batchers := make([]*processor.Batcher, len(procNames))
		for i := len(procNames) - 1; i >= 0; i-- {
			batchers[i] = processor.NewBatcher(procNames[i], kind, procCfgs[i], next, logger)
			next = &recordsUnwrapper{next: batchers[i]}
		}

		p := &pipeline{
			name:      pname,
			kind:      kind,
			batchers:  batchers,
			exporters: pc.Exporters,
		}
		ps.pipes = append(ps.pipes, p)

		for _, ref := range pc.Receivers {
			if routerEntries[ref] == nil {
				routerEntries[ref] = map[model.SignalKind][]*processor.Batcher{}
			}
			routerEntries[ref][kind] = append(routerEntries[ref][kind], batchers[0])
		}
	}

	// Receivers last, each wired to a router over its pipelines.
	for ref, routes := range routerEntries {
		r, err := buildReceiver(ref, cfg.Receivers[ref], &signalRouter{routes: routes}, logger)
		if err != nil {
			return nil, err
		}
		ps.receivers[ref] = r
	}

	return ps, nil
}

func buildReceiver(name string, rc *config.ReceiverConfig, consumer receiver.Consumer, logger hclog.Logger) (receiver.Receiver, error) {
	switch rc.Type {
	case config.TypeOTLP:
		return otlp.New(name, rc.OTLP, consumer, logger), nil
	case config.TypeFileLog:
		return filelog.New(name, rc.FileLog, consumer, logger)
	default:
		return nil, fmt.Errorf("receivers::%s: unknown receiver type %q", name, rc.Type)
	}
}

func buildExporter(name string, ec *config.ExporterConfig, logger hclog.Logger) (*exporter.Queued, error) {
	switch ec.Type {
	case config.TypeClickHouse:
		ch := ec.ClickHouse
		sink := clickhouse.New(name, ch, logger)
		return exporter.NewQueued(name, sink, ch.Timeout, ch.SendingQueue, ch.RetryOnFailure, logger), nil
	case config.TypeOTLPHTTP:
		oh := ec.OTLPHTTP
		sink, err := otlphttp.NewExporter(name, oh, logger)
		if err != nil {
			return nil, err
		}
		return exporter.NewQueued(name, sink, oh.Timeout, oh.SendingQueue, oh.RetryOnFailure, logger), nil
	default:
		return nil, fmt.Errorf("exporters::%s: unknown exporter type %q", name, ec.Type)
	}
}

// pipelineStats is the introspection document served at /debug/pipelinez.
type pipelineStats struct {
	Name       string           `json:"name"`
	Signal     string           `json:"signal"`
	Processors []processorStats `json:"processors"`
	Exporters  []exporter.Stat  `json:"exporters"`
}

type processorStats struct {
	Name       string `json:"name"`
	QueueDepth int    `json:"queue_depth"`
}

// stats assembles a point-in-time snapshot of every pipeline's queue
// depths and retry state.
func (ps *pipelines) stats() []pipelineStats {
	out := make([]pipelineStats, 0, len(ps.pipes))
	for _, p := range ps.pipes {
		st := pipelineStats{Name: p.name, Signal: p.kind.String()}
		for _, b := range p.batchers {
			st.Processors = append(st.Processors, processorStats{
				Name:       b.Name(),
				QueueDepth: b.QueueDepth(),
			})
		}
		for _, ref := range p.exporters {
			st.Exporters = append(st.Exporters, ps.queues[ref].Snapshot())
		}
		out = append(out, st)
	}
	return out
}
