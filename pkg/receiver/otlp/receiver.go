// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package otlp implements the network receiver: OTLP over gRPC and HTTP.
package otlp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc"

	"github.com/hashicorp/telemetry-collector/pkg/config"
	"github.com/hashicorp/telemetry-collector/pkg/model"
	"github.com/hashicorp/telemetry-collector/pkg/receiver"
)

// Receiver binds the configured gRPC and HTTP listeners and pushes decoded
// records into its consumer. A failed bind at Start is fatal; a payload
// that fails to decode is counted and dropped without touching the
// pipeline.
type Receiver struct {
	name     string
	cfg      *config.OTLPReceiverConfig
	logger   hclog.Logger
	consumer receiver.Consumer

	grpcListener net.Listener
	grpcServer   *grpc.Server
	httpListener net.Listener
	httpServer   *http.Server

	exitedCh  chan struct{}
	exitedErr error
	exitOnce  sync.Once
}

func New(name string, cfg *config.OTLPReceiverConfig, consumer receiver.Consumer, logger hclog.Logger) *Receiver {
	return &Receiver{
		name:     name,
		cfg:      cfg,
		logger:   logger.Named("otlp").With("receiver", name),
		consumer: consumer,
		exitedCh: make(chan struct{}),
	}
}

// Start binds every enabled listener before serving on any of them, so a
// bind failure cannot leave a half-started receiver behind.
func (r *Receiver) Start(ctx context.Context) error {
	if p := r.cfg.Protocols.GRPC; p != nil {
		lis, err := net.Listen("tcp", p.Endpoint)
		if err != nil {
			return fmt.Errorf("failed to bind gRPC listener on %s: %w", p.Endpoint, err)
		}
		r.grpcListener = lis
		r.grpcServer = grpc.NewServer()
		registerServices(r.grpcServer, r)
	}
	if p := r.cfg.Protocols.HTTP; p != nil {
		lis, err := net.Listen("tcp", p.Endpoint)
		if err != nil {
			if r.grpcListener != nil {
				r.grpcListener.Close()
			}
			return fmt.Errorf("failed to bind HTTP listener on %s: %w", p.Endpoint, err)
		}
		r.httpListener = lis
		r.httpServer = &http.Server{Handler: r.httpHandler()}
	}

	if r.grpcServer != nil {
		r.logger.Info("serving OTLP/gRPC", "address", r.grpcListener.Addr().String())
		go func() {
			if err := r.grpcServer.Serve(r.grpcListener); err != nil && err != grpc.ErrServerStopped {
				r.exit(fmt.Errorf("OTLP/gRPC server failed: %w", err))
			}
		}()
	}
	if r.httpServer != nil {
		r.logger.Info("serving OTLP/HTTP", "address", r.httpListener.Addr().String())
		go func() {
			if err := r.httpServer.Serve(r.httpListener); err != nil && err != http.ErrServerClosed {
				r.exit(fmt.Errorf("OTLP/HTTP server failed: %w", err))
			}
		}()
	}
	return nil
}

// Shutdown stops intake. Requests already being decoded finish and their
// records flow downstream; new connections are refused immediately.
func (r *Receiver) Shutdown(ctx context.Context) error {
	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(ctx); err != nil {
			r.logger.Warn("error shutting down OTLP/HTTP server", "error", err)
		}
	}
	if r.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			r.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			r.grpcServer.Stop()
		}
	}
	return nil
}

// Exited signals an unexpected server failure after a successful Start.
func (r *Receiver) Exited() <-chan struct{} {
	return r.exitedCh
}

func (r *Receiver) exit(err error) {
	r.exitOnce.Do(func() {
		r.exitedErr = err
		r.logger.Error("receiver exited", "error", err)
		close(r.exitedCh)
	})
}

// GRPCAddr returns the bound gRPC address, for tests that listen on an
// ephemeral port.
func (r *Receiver) GRPCAddr() string {
	if r.grpcListener == nil {
		return ""
	}
	return r.grpcListener.Addr().String()
}

// HTTPAddr returns the bound HTTP address.
func (r *Receiver) HTTPAddr() string {
	if r.httpListener == nil {
		return ""
	}
	return r.httpListener.Addr().String()
}

func (r *Receiver) push(records []model.Record) {
	for _, rec := range records {
		r.consumer.Consume(rec)
	}
	if len(records) > 0 {
		metrics.IncrCounterWithLabels(
			[]string{"receiver", "accepted_records"},
			float32(len(records)),
			[]metrics.Label{{Name: "receiver", Value: r.name}, {Name: "signal", Value: records[0].Kind.String()}},
		)
	}
}

func (r *Receiver) countDecodeError(signal model.SignalKind, protocol string) {
	metrics.IncrCounterWithLabels(
		[]string{"receiver", "decode_errors"},
		1,
		[]metrics.Label{
			{Name: "receiver", Value: r.name},
			{Name: "signal", Value: signal.String()},
			{Name: "protocol", Value: protocol},
		},
	)
}
