package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"anagrafe/internal/domain"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "anagrafe_registry_request_duration_seconds",
		Help:    "Latency of person registry API calls by operation",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anagrafe_registry_request_failures_total",
		Help: "Failed person registry API calls by operation and category",
	}, []string{"operation", "category"})
)

// Client is the HTTP implementation of API against the external registry
// described by its wire contract: /person (POST, GET), /person/{taxCode}
// (GET, PUT, DELETE) and /person/search?name=q.
//
// The tax code is normalized to trimmed uppercase before it is used as a
// lookup key or embedded in a payload; the province is uppercased in outgoing
// payloads. No call retries and no timeout is imposed here: the injected
// http.Client owns deadlines, and a hung call hangs the operation.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
	tracer  trace.Tracer

	// Coalesces concurrent identical lookups; reads are idempotent so the
	// shared result is safe to fan out.
	sf singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Use this to set
// timeouts or transport-level behavior.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a structured logger for request-level diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient constructs a registry client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		log:     slog.Default(),
		tracer:  otel.Tracer("anagrafe/registry"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Create submits a new Person. The server enforces identity uniqueness;
// a duplicate tax code surfaces as a conflict and is never retried.
func (c *Client) Create(ctx context.Context, p domain.Person) error {
	p.TaxCode = domain.NormalizeTaxCode(p.TaxCode)
	p.Address.Province = domain.NormalizeProvince(p.Address.Province)

	status, body, err := c.roundTrip(ctx, "create", http.MethodPost, "/person", p)
	if err != nil {
		return err
	}
	if status/100 == 2 {
		return nil
	}
	switch status {
	case http.StatusConflict:
		return newError(CategoryConflict, "create", "tax code already exists", nil)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return newError(CategoryRejected, "create", serverMessage(body), nil)
	default:
		return newError(CategoryTransport, "create", fmt.Sprintf("unexpected status %d", status), nil)
	}
}

// Get fetches one Person by exact identity match.
func (c *Client) Get(ctx context.Context, taxCode string) (domain.Person, error) {
	code := domain.NormalizeTaxCode(taxCode)

	v, err, _ := c.sf.Do(code, func() (any, error) {
		status, body, err := c.roundTrip(ctx, "get", http.MethodGet, "/person/"+url.PathEscape(code), nil)
		if err != nil {
			return domain.Person{}, err
		}
		switch {
		case status == http.StatusOK:
			var p domain.Person
			if err := json.Unmarshal(body, &p); err != nil {
				return domain.Person{}, newError(CategoryTransport, "get", "malformed response body", err)
			}
			return p, nil
		case status == http.StatusNotFound:
			return domain.Person{}, newError(CategoryNotFound, "get", "person "+code+" not found", nil)
		default:
			return domain.Person{}, newError(CategoryTransport, "get", fmt.Sprintf("unexpected status %d", status), nil)
		}
	})
	if err != nil {
		return domain.Person{}, err
	}
	return v.(domain.Person), nil
}

// List fetches every Person in the registry, in server-determined order.
func (c *Client) List(ctx context.Context) ([]domain.Person, error) {
	return c.fetchMany(ctx, "list", "/person")
}

// Update replaces the mutable fields of the record identified by taxCode.
// The identity in the payload is forced to the path identity, so the tax
// code can never be altered through this call.
func (c *Client) Update(ctx context.Context, taxCode string, p domain.Person) error {
	code := domain.NormalizeTaxCode(taxCode)
	p.TaxCode = code
	p.Address.Province = domain.NormalizeProvince(p.Address.Province)

	status, body, err := c.roundTrip(ctx, "update", http.MethodPut, "/person/"+url.PathEscape(code), p)
	if err != nil {
		return err
	}
	if status/100 == 2 {
		return nil
	}
	switch status {
	case http.StatusNotFound:
		return newError(CategoryNotFound, "update", "person "+code+" not found", nil)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return newError(CategoryRejected, "update", serverMessage(body), nil)
	default:
		return newError(CategoryTransport, "update", fmt.Sprintf("unexpected status %d", status), nil)
	}
}

// Delete removes the record identified by taxCode.
func (c *Client) Delete(ctx context.Context, taxCode string) error {
	code := domain.NormalizeTaxCode(taxCode)

	status, _, err := c.roundTrip(ctx, "delete", http.MethodDelete, "/person/"+url.PathEscape(code), nil)
	if err != nil {
		return err
	}
	if status/100 == 2 {
		return nil
	}
	if status == http.StatusNotFound {
		return newError(CategoryNotFound, "delete", "person "+code+" not found", nil)
	}
	return newError(CategoryTransport, "delete", fmt.Sprintf("unexpected status %d", status), nil)
}

// SearchByName returns all Persons whose name or surname matches query under
// server-defined semantics. An empty or whitespace-only query is rejected
// locally before any request, to avoid an unbounded full-scan query.
func (c *Client) SearchByName(ctx context.Context, query string) ([]domain.Person, error) {
	if strings.TrimSpace(query) == "" {
		requestFailures.WithLabelValues("search", string(CategoryValidation)).Inc()
		return nil, newError(CategoryValidation, "search", "query must not be empty", nil)
	}
	q := url.Values{"name": []string{query}}
	return c.fetchMany(ctx, "search", "/person/search?"+q.Encode())
}

func (c *Client) fetchMany(ctx context.Context, op, path string) ([]domain.Person, error) {
	status, body, err := c.roundTrip(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, newError(CategoryTransport, op, fmt.Sprintf("unexpected status %d", status), nil)
	}
	var persons []domain.Person
	if err := json.Unmarshal(body, &persons); err != nil {
		return nil, newError(CategoryTransport, op, "malformed response body", err)
	}
	return persons, nil
}

// roundTrip performs a single external call. It returns the status code and
// raw body on any HTTP-level completion; err is non-nil only for failures
// below the HTTP layer (request build, network, body read).
func (c *Client) roundTrip(ctx context.Context, op, method, path string, payload any) (int, []byte, error) {
	ctx, span := c.tracer.Start(ctx, "registry."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("registry.operation", op)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, newError(CategoryTransport, op, "encode request body", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, newError(CategoryTransport, op, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, "request failed")
		requestFailures.WithLabelValues(op, string(CategoryTransport)).Inc()
		return 0, nil, newError(CategoryTransport, op, "request failed", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		span.SetStatus(codes.Error, "read response")
		requestFailures.WithLabelValues(op, string(CategoryTransport)).Inc()
		return 0, nil, newError(CategoryTransport, op, "read response body", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	if res.StatusCode/100 != 2 {
		span.SetStatus(codes.Error, res.Status)
		requestFailures.WithLabelValues(op, categoryForStatus(res.StatusCode)).Inc()
		c.log.DebugContext(ctx, "registry call failed",
			"operation", op,
			"status", res.StatusCode,
		)
	}
	return res.StatusCode, body, nil
}

func categoryForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return string(CategoryNotFound)
	case http.StatusConflict:
		return string(CategoryConflict)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(CategoryRejected)
	default:
		return string(CategoryTransport)
	}
}

var _ API = (*Client)(nil)

// serverMessage pulls the error description from a JSON error body, falling
// back to a generic message when the body is not in the expected shape.
func serverMessage(body []byte) string {
	var payload struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Description != "" {
			return payload.Description
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return "request rejected by server"
}
