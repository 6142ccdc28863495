// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package otlphttp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"
)

func Test_Client(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		modConfig          func(*Config)
		httpResponseWriter func(w http.ResponseWriter)

		expectNewErr    string
		expectExportErr string
	}{
		"success": {},
		"invalid endpoint": {
			modConfig: func(c *Config) {
				c.Endpoint = "http://example .com"
			},
			expectNewErr: "bad endpoint url",
		},
		"failed export plain body": {
			httpResponseWriter: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, "internal server error")
			},
			expectExportErr: "HTTP Status Code 500",
		},
		"failed export status response": {
			httpResponseWriter: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadRequest)

				st := &status.Status{
					Code:    int32(codes.InvalidArgument),
					Message: "malformed payload",
				}
				body, err := proto.Marshal(st)
				if err != nil {
					panic(err)
				}

				fmt.Fprint(w, string(body))
			},
			expectExportErr: "malformed payload",
		},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r := require.New(t)

			// Create a test server to POST logs to.
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				r.Equal("/v1/logs", req.URL.Path)
				r.Equal("test", req.Header.Get("X-Test"))
				r.Equal("Bearer token", req.Header.Get("Authorization"))
				r.Equal("application/x-protobuf", req.Header.Get("Content-Type"))
				r.Equal("test-agent", req.Header.Get("User-Agent"))

				if tc.httpResponseWriter != nil {
					tc.httpResponseWriter(w) // for testing errors in response to exports.
				} else {
					fmt.Fprint(w, "ok")
				}
			}))
			defer ts.Close()

			cfg := &Config{
				Endpoint:    ts.URL,
				BearerToken: "token",
				UserAgent:   "test-agent",
				Middleware: []MiddlewareOption{
					WithRequestHeaders(map[string]string{"X-Test": "test"}),
				},
				Logger: hclog.NewNullLogger(),
			}
			if tc.modConfig != nil {
				tc.modConfig(cfg)
			}

			// Create the client.
			c, err := New(cfg)
			if tc.expectNewErr != "" {
				r.Error(err)
				r.Contains(err.Error(), tc.expectNewErr)
				return
			}
			r.NoError(err)
			r.NotNil(c)

			// Export logs.
			ld := plog.NewLogs()
			ld.ResourceLogs().AppendEmpty()
			err = c.ExportLogs(context.Background(), plogotlp.NewExportRequestFromLogs(ld))
			if tc.expectExportErr != "" {
				r.Error(err)
				r.Contains(err.Error(), tc.expectExportErr)
				return
			}
			r.NoError(err)
		})
	}
}
