// Package client holds one typed client per backend service. Every method
// makes exactly one HTTP call and maps the response status onto the domain
// error types: 404 to ErrNotFound, other 4xx to ErrBackendClient, 5xx,
// transport failures, timeouts and an open circuit to ErrUpstream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/resilience"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

// Backend names, used in logs, metrics and errors.
const (
	Connector  = "connector"
	Ledger     = "ledger"
	AdminUsers = "adminusers"
	PublicAuth = "publicauth"
	Products   = "products"
	Webhooks   = "webhooks"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// backend is the shared transport of every client.
type backend struct {
	name       string
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	timeout    time.Duration
	metrics    *observability.Metrics
	logger     *zap.Logger
}

func newBackend(name string, httpClient *http.Client, baseURL string, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *backend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &backend{
		name:       name,
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		cb:         resilience.NewCircuitBreaker(name, logger),
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		timeout:    timeout,
		metrics:    metrics,
		logger:     logger.With(zap.String("backend", name)),
	}
}

// errorBody is the error shape shared by the backends. message is either a
// string or a list of strings.
type errorBody struct {
	Message         json.RawMessage `json:"message"`
	ErrorIdentifier string          `json:"error_identifier"`
}

func (e errorBody) text() string {
	var list []string
	if err := json.Unmarshal(e.Message, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var s string
	if err := json.Unmarshal(e.Message, &s); err == nil {
		return s
	}
	return ""
}

// do performs one call. query may be nil; body is JSON encoded when non-nil;
// out receives the decoded 2xx body when non-nil.
func (b *backend) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, span := tracer.Start(ctx, b.name+" "+method)
	defer span.End()
	span.SetAttributes(
		attribute.String("backend", b.name),
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	err := b.execute(ctx, method, path, query, body, out)
	b.metrics.RecordBackendDuration(b.name, time.Since(start))

	var upstream *domain.ErrUpstream
	if errors.As(err, &upstream) {
		b.metrics.IncrBackendError(b.name)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Warn("backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", upstream.Status),
			zap.Error(err),
		)
	}
	return err
}

func (b *backend) execute(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := b.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrUpstream{Backend: b.name, Timeout: true, Err: err}
	}
	defer b.bulkhead.Release()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", b.name, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	target := b.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("build %s request: %w", b.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := middleware.GetReqID(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	// 4xx responses are the caller's problem, not the backend's, so they are
	// returned outside the breaker's failure accounting.
	var clientErr error
	_, err = b.cb.Execute(func() (any, error) {
		resp, err := b.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			return nil, &domain.ErrUpstream{Backend: b.name, Status: resp.StatusCode}
		case resp.StatusCode == http.StatusNotFound:
			clientErr = &domain.ErrNotFound{Resource: b.name, ID: path}
			return nil, nil
		case resp.StatusCode >= 400:
			var eb errorBody
			_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&eb)
			clientErr = &domain.ErrBackendClient{
				Backend:    b.name,
				Status:     resp.StatusCode,
				Identifier: eb.ErrorIdentifier,
				Message:    eb.text(),
			}
			return nil, nil
		}

		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s response: %w", b.name, err)
		}
		return nil, nil
	})

	if err != nil {
		var upstream *domain.ErrUpstream
		if errors.As(err, &upstream) {
			return err
		}
		return &domain.ErrUpstream{
			Backend: b.name,
			Timeout: errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:     err,
		}
	}
	return clientErr
}

// Name returns the backend name.
func (b *backend) Name() string {
	return b.name
}

// Ping calls the backend's healthcheck.
func (b *backend) Ping(ctx context.Context) error {
	return b.do(ctx, http.MethodGet, "/healthcheck", nil, nil, nil)
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}
