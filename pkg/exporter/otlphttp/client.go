package otlphttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-rootcerts"
	"golang.org/x/oauth2"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/protobuf/proto"

	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptrace/ptraceotlp"
)

const (
	maxHTTPResponseReadBytes = 64 * 1024

	protobufContentType = "application/x-protobuf"

	tracesPath  = "/v1/traces"
	logsPath    = "/v1/logs"
	metricsPath = "/v1/metrics"
)

// Config collects everything the OTLP/HTTP client needs: the base
// endpoint, optional bearer credentials, optional additional CAs and
// request header middleware.
type Config struct {
	Endpoint           string
	BearerToken        string
	CACertsPath        string
	InsecureSkipVerify bool
	Middleware         []MiddlewareOption
	UserAgent          string
	Logger             hclog.Logger
}

// Client speaks OTLP/HTTP in the export direction for all three signal
// kinds.
type Client struct {
	baseURL   *url.URL
	userAgent string
	client    *http.Client
	logger    hclog.Logger
}

func New(cfg *Config) (*Client, error) {
	baseURL, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("bad endpoint url %q: %w", cfg.Endpoint, err)
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	if cfg.CACertsPath != "" {
		if err := rootcerts.ConfigureTLS(tlsConfig, &rootcerts.Config{CAPath: cfg.CACertsPath}); err != nil {
			return nil, fmt.Errorf("failed to load CA certificates: %w", err)
		}
	}

	tlsTransport := cleanhttp.DefaultPooledTransport()
	tlsTransport.TLSClientConfig = tlsConfig

	var transport http.RoundTripper = tlsTransport
	if cfg.BearerToken != "" {
		transport = &oauth2.Transport{
			Base:   tlsTransport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken}),
		}
	}
	transport = &roundTripperWithMiddleware{
		OriginalRoundTripper: transport,
		MiddlewareOptions:    cfg.Middleware,
	}

	return &Client{
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Transport: transport},
		logger:    cfg.Logger,
	}, nil
}

// ExportTraces sends one OTLP trace export request.
func (c *Client) ExportTraces(ctx context.Context, td ptraceotlp.ExportRequest) error {
	body, err := td.MarshalProto()
	if err != nil {
		return fmt.Errorf("failed to marshal export request: %w", err)
	}
	return c.export(ctx, c.signalURL(tracesPath), body)
}

// ExportLogs sends one OTLP log export request.
func (c *Client) ExportLogs(ctx context.Context, ld plogotlp.ExportRequest) error {
	body, err := ld.MarshalProto()
	if err != nil {
		return fmt.Errorf("failed to marshal export request: %w", err)
	}
	return c.export(ctx, c.signalURL(logsPath), body)
}

// ExportMetrics sends one OTLP metric export request.
func (c *Client) ExportMetrics(ctx context.Context, md pmetricotlp.ExportRequest) error {
	body, err := md.MarshalProto()
	if err != nil {
		return fmt.Errorf("failed to marshal export request: %w", err)
	}
	return c.export(ctx, c.signalURL(metricsPath), body)
}

func (c *Client) signalURL(path string) string {
	u := *c.baseURL
	u.Path = u.Path + path
	return u.String()
}

func (c *Client) export(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("Content-Type", protobufContentType)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make an HTTP request: %w", err)
	}

	defer func() {
		// Discard any remaining response body when we are done reading.
		io.CopyN(io.Discard, resp.Body, maxHTTPResponseReadBytes) // nolint:errcheck
		resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respStatus := readResponseStatus(resp)

	// Format the error message. Use the status if it is present in the response.
	if respStatus != nil {
		return fmt.Errorf(
			"error exporting items, request to %s responded with HTTP Status Code %d, Message=%s, Details=%v",
			url, resp.StatusCode, respStatus.Message, respStatus.Details)
	}
	return fmt.Errorf(
		"error exporting items, request to %s responded with HTTP Status Code %d",
		url, resp.StatusCode)
}

func readResponseStatus(resp *http.Response) *status.Status {
	var respStatus *status.Status
	if resp.StatusCode >= 400 && resp.StatusCode <= 599 {
		// Failed responses carry a protobuf-encoded Status message
		// describing the problem.
		respBytes, err := readResponseBody(resp)
		if err != nil {
			return nil
		}

		respStatus = &status.Status{}
		err = proto.Unmarshal(respBytes, respStatus)
		if err != nil {
			return nil
		}
	}

	return respStatus
}

func readResponseBody(resp *http.Response) ([]byte, error) {
	if resp.ContentLength == 0 {
		return nil, nil
	}

	maxRead := resp.ContentLength

	// if maxRead == -1, the ContentLength header has not been sent, so read up to
	// the maximum permitted body size. If it is larger than the permitted body
	// size, still try to read from the body in case the value is an error. If the
	// body is larger than the maximum size, proto unmarshaling will likely fail.
	if maxRead == -1 || maxRead > maxHTTPResponseReadBytes {
		maxRead = maxHTTPResponseReadBytes
	}
	protoBytes := make([]byte, maxRead)
	n, err := io.ReadFull(resp.Body, protoBytes)

	// No bytes read and an EOF error indicates there is no body to read.
	if n == 0 && (err == nil || errors.Is(err, io.EOF)) {
		return nil, nil
	}

	// io.ReadFull will return io.ErrorUnexpectedEOF if the Content-Length header
	// wasn't set, since we will try to read past the length of the body. If this
	// is the case, the body will still have the full message in it, so we want to
	// ignore the error and parse the message.
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}

	return protoBytes[:n], nil
}
