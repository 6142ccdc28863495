// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package otlp

import (
	"context"

	"google.golang.org/grpc"

	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptrace/ptraceotlp"

	"github.com/hashicorp/telemetry-collector/pkg/model"
)

func registerServices(s *grpc.Server, r *Receiver) {
	ptraceotlp.RegisterGRPCServer(s, &tracesService{receiver: r})
	plogotlp.RegisterGRPCServer(s, &logsService{receiver: r})
	pmetricotlp.RegisterGRPCServer(s, &metricsService{receiver: r})
}

type tracesService struct {
	ptraceotlp.UnimplementedGRPCServer
	receiver *Receiver
}

func (s *tracesService) Export(_ context.Context, req ptraceotlp.ExportRequest) (ptraceotlp.ExportResponse, error) {
	s.receiver.push(model.RecordsFromTraces(req.Traces()))
	return ptraceotlp.NewExportResponse(), nil
}

type logsService struct {
	plogotlp.UnimplementedGRPCServer
	receiver *Receiver
}

func (s *logsService) Export(_ context.Context, req plogotlp.ExportRequest) (plogotlp.ExportResponse, error) {
	s.receiver.push(model.RecordsFromLogs(req.Logs()))
	return plogotlp.NewExportResponse(), nil
}

type metricsService struct {
	pmetricotlp.UnimplementedGRPCServer
	receiver *Receiver
}

func (s *metricsService) Export(_ context.Context, req pmetricotlp.ExportRequest) (pmetricotlp.ExportResponse, error) {
	s.receiver.push(model.RecordsFromMetrics(req.Metrics()))
	return pmetricotlp.NewExportResponse(), nil
}
