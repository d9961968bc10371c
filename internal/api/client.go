package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/foodking/internal/model"
)

const (
	// DefaultTimeout bounds every request unless WithHTTPClient overrides it.
	DefaultTimeout = 15 * time.Second

	// IdempotencyHeader carries the per-checkout key on POST /orders.
	IdempotencyHeader = "Idempotency-Key"

	maxResponseBytes = 4 << 20
	tracerName       = "github.com/roach88/foodking/internal/api"
)

// Credentials supplies the bearer token and is told when the server
// rejects it.
type Credentials interface {
	Token() string
	Invalidate(ctx context.Context)
}

// Client talks to the foodking REST API.
type Client struct {
	base   *url.URL
	http   *http.Client
	tracer trace.Tracer
	logger *slog.Logger

	mu    sync.RWMutex
	creds Credentials
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCredentials binds credentials at construction.
func WithCredentials(cr Credentials) Option {
	return func(c *Client) { c.creds = cr }
}

// New creates a client for the API rooted at baseURL
// (e.g. "http://localhost:5000/api").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		tracer: otel.GetTracerProvider().Tracer(tracerName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UseCredentials binds the credentials used for authenticated calls.
// Passing nil makes every following call anonymous.
func (c *Client) UseCredentials(cr Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = cr
}

func (c *Client) credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// call describes one request.
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	header http.Header

	// token overrides the bound credentials when set.
	token string

	// anonymous sends no Authorization header at all.
	anonymous bool

	// statusUpdate maps 400/409/422 to INVALID_TRANSITION.
	statusUpdate bool
}

// envelope is the response wrapper used by most endpoints.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do executes cl and returns the raw response body of a 2xx response.
func (c *Client) do(ctx context.Context, cl call) (_ []byte, err error) {
	ctx, span := c.tracer.Start(ctx, "api."+cl.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", cl.method),
			attribute.String("url.path", cl.path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, model.UserMessage(err))
		}
		span.End()
	}()

	op := "api." + cl.op
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	creds := c.credentials()
	token := cl.token
	if token == "" && creds != nil && !cl.anonymous {
		token = creds.Token()
	}
	if token != "" && !cl.anonymous {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", cl.op, "error", err)
		return nil, model.NewNetworkError(op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, model.NewNetworkError(op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	msg := serverMessage(raw)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Only a token we sent can be invalid. An explicit token belongs to
		// the caller, who handles the failure.
		if cl.token == "" && token != "" && creds != nil {
			creds.Invalidate(ctx)
		}
		return nil, model.NewAuthError(op, msg)
	case resp.StatusCode == http.StatusNotFound:
		if msg == "" {
			msg = "the requested resource was not found"
		}
		return nil, &model.Error{Code: model.CodeNotFound, Op: op, Message: msg}
	case cl.statusUpdate && isRejection(resp.StatusCode):
		if msg == "" {
			msg = "the server refused this status change"
		}
		return nil, &model.Error{Code: model.CodeInvalidTransition, Op: op, Message: msg}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if msg == "" {
			msg = fmt.Sprintf("the request was rejected (%d)", resp.StatusCode)
		}
		return nil, &model.Error{Code: model.CodeValidation, Op: op, Message: msg}
	default:
		return nil, model.NewNetworkError(op, fmt.Errorf("server returned %d: %s", resp.StatusCode, msg))
	}
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	// cl.path is already escaped; ids inside it went through url.PathEscape.
	u := *c.base
	u.RawPath = c.base.EscapedPath() + cl.path
	p, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	u.Path = p
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		buf, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range cl.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func isRejection(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity
}

// serverMessage extracts "message" from an error body, if any.
func serverMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return strings.TrimSpace(env.Message)
}

// decodeData unwraps the envelope of a 2xx body into out.
func decodeData(op string, raw []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return invalidResponse(op, err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "the server could not complete the request"
		}
		return &model.Error{Code: model.CodeValidation, Op: "api." + op, Message: msg}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return invalidResponse(op, errors.New("missing data"))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return invalidResponse(op, err)
	}
	return nil
}

func invalidResponse(op string, err error) error {
	return &model.Error{
		Code:    model.CodeNetwork,
		Op:      "api." + op,
		Message: "the server sent a response this client does not understand",
		Err:     err,
	}
}
