// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package otlp

import (
	"io"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptrace/ptraceotlp"

	"github.com/hashicorp/telemetry-collector/pkg/model"
)

const (
	protobufContentType = "application/x-protobuf"
	jsonContentType     = "application/json"

	maxRequestBodyBytes = 16 * 1024 * 1024
)

func (r *Receiver) httpHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/traces", r.handleTraces)
	mux.HandleFunc("/v1/logs", r.handleLogs)
	mux.HandleFunc("/v1/metrics", r.handleMetrics)
	return mux
}

func (r *Receiver) handleTraces(w http.ResponseWriter, req *http.Request) {
	body, contentType, ok := r.readBody(w, req, model.SignalTraces)
	if !ok {
		return
	}
	er := ptraceotlp.NewExportRequest()
	if err := unmarshalRequest(body, contentType, er.UnmarshalProto, er.UnmarshalJSON); err != nil {
		r.countDecodeError(model.SignalTraces, "http")
		writeError(w, contentType, codes.InvalidArgument, err.Error())
		return
	}
	r.push(model.RecordsFromTraces(er.Traces()))
	writeResponse(w, contentType, ptraceotlp.NewExportResponse())
}

func (r *Receiver) handleLogs(w http.ResponseWriter, req *http.Request) {
	body, contentType, ok := r.readBody(w, req, model.SignalLogs)
	if !ok {
		return
	}
	er := plogotlp.NewExportRequest()
	if err := unmarshalRequest(body, contentType, er.UnmarshalProto, er.UnmarshalJSON); err != nil {
		r.countDecodeError(model.SignalLogs, "http")
		writeError(w, contentType, codes.InvalidArgument, err.Error())
		return
	}
	r.push(model.RecordsFromLogs(er.Logs()))
	writeResponse(w, contentType, plogotlp.NewExportResponse())
}

func (r *Receiver) handleMetrics(w http.ResponseWriter, req *http.Request) {
	body, contentType, ok := r.readBody(w, req, model.SignalMetrics)
	if !ok {
		return
	}
	er := pmetricotlp.NewExportRequest()
	if err := unmarshalRequest(body, contentType, er.UnmarshalProto, er.UnmarshalJSON); err != nil {
		r.countDecodeError(model.SignalMetrics, "http")
		writeError(w, contentType, codes.InvalidArgument, err.Error())
		return
	}
	r.push(model.RecordsFromMetrics(er.Metrics()))
	writeResponse(w, contentType, pmetricotlp.NewExportResponse())
}

// readBody enforces method, content type and size limits before any
// decoding happens.
func (r *Receiver) readBody(w http.ResponseWriter, req *http.Request, signal model.SignalKind) ([]byte, string, bool) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, "", false
	}
	contentType := req.Header.Get("Content-Type")
	if contentType != protobufContentType && contentType != jsonContentType {
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return nil, "", false
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBodyBytes))
	if err != nil {
		r.countDecodeError(signal, "http")
		writeError(w, contentType, codes.InvalidArgument, "failed to read request body")
		return nil, "", false
	}
	return body, contentType, true
}

func unmarshalRequest(body []byte, contentType string, fromProto, fromJSON func([]byte) error) error {
	if contentType == jsonContentType {
		return fromJSON(body)
	}
	return fromProto(body)
}

type protoMarshaler interface {
	MarshalProto() ([]byte, error)
	MarshalJSON() ([]byte, error)
}

func writeResponse(w http.ResponseWriter, contentType string, resp protoMarshaler) {
	var body []byte
	var err error
	if contentType == jsonContentType {
		body, err = resp.MarshalJSON()
	} else {
		body, err = resp.MarshalProto()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body) // nolint:errcheck
}

// writeError responds with an rpc status body in the request's encoding,
// matching how OTLP/HTTP peers report partial failures.
func writeError(w http.ResponseWriter, contentType string, code codes.Code, msg string) {
	st := &status.Status{Code: int32(code), Message: msg}
	var body []byte
	var err error
	if contentType == jsonContentType {
		body, err = protojson.Marshal(st)
	} else {
		body, err = proto.Marshal(st)
	}
	if err != nil {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusBadRequest)
	w.Write(body) // nolint:errcheck
}
