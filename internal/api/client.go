// Package api is the single path from botctl to the bot platform backend.
//
// Every call goes through Client.Do, which attaches the session token,
// normalizes failures into *Error or *TransportError, and applies the one
// global policy of the client: a 401 tears down the session and sends the
// user to sign in.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/botctl/internal/log"
	"github.com/felixgeelhaar/botctl/internal/metrics"
	"github.com/felixgeelhaar/botctl/internal/session"
	"github.com/felixgeelhaar/botctl/internal/version"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds a request when no HTTP client is supplied.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 10 << 20
)

// Config holds the collaborators of a Client. Only BaseURL matters for
// correctness; everything else has a working default.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    *session.Store
	Navigator  Navigator
	Logger     *log.Logger
	Metrics    *metrics.Metrics
	Tracer     trace.Tracer
	UserAgent  string
}

// Client talks to the backend on behalf of one session.
type Client struct {
	baseURL   string
	http      *http.Client
	session   *session.Store
	navigator Navigator
	logger    *log.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	userAgent string
}

// Request describes one call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// New creates a Client. Without a session store the client gets a private
// in-memory one.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("api: base URL %q must be an absolute http(s) URL", cfg.BaseURL)
	}

	c := &Client{
		baseURL:   baseURL,
		http:      cfg.HTTPClient,
		session:   cfg.Session,
		navigator: cfg.Navigator,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		tracer:    cfg.Tracer,
		userAgent: cfg.UserAgent,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.session == nil {
		store, err := session.Open(context.Background(), session.NewMemoryBackend())
		if err != nil {
			return nil, err
		}
		c.session = store
	}
	if c.navigator == nil {
		c.navigator = noopNavigator{}
	}
	if c.logger == nil {
		c.logger = log.DefaultLogger()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("github.com/felixgeelhaar/botctl/internal/api")
	}
	if c.userAgent == "" {
		c.userAgent = version.GetInfo().UserAgent()
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the store the client reads its token from.
func (c *Client) Session() *session.Store {
	return c.session
}

// Do performs exactly one HTTP request and decodes a JSON response into
// out. A nil out discards the body. 204 and empty bodies leave out
// untouched.
//
// A 401 clears the session and triggers the navigator before Do returns,
// unless the session was replaced while the request was in flight.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	route := routeLabel(r.Path)

	ctx, span := c.tracer.Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", route),
		),
	)
	defer span.End()

	req, err := c.newRequest(ctx, method, r)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	token, gen := c.session.Snapshot()
	if token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportFailure(ctx, span, method, r.Path, route, start, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.transportFailure(ctx, span, method, r.Path, route, start, err)
	}

	elapsed := time.Since(start)
	c.metrics.RecordAPICall(method, route, resp.StatusCode, elapsed)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.DebugContext(ctx, "api request",
		"method", method,
		"path", route,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", req.Header.Get("X-Request-ID"),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		c.rejectSession(ctx, gen)
		apiErr := newError(resp.StatusCode, body)
		span.SetStatus(codes.Error, apiErr.Message)
		return apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newError(resp.StatusCode, body)
		span.SetStatus(codes.Error, apiErr.Message)
		return apiErr
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		span.SetStatus(codes.Error, "decode")
		return fmt.Errorf("api: decoding %s %s response: %w", method, r.Path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, r Request) (*http.Request, error) {
	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(r.Path, "?") {
			sep = "&"
		}
		target += sep + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		raw, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("api: encoding %s %s body: %w", method, r.Path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("api: building %s %s: %w", method, r.Path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

func (c *Client) transportFailure(ctx context.Context, span trace.Span, method, path, route string, start time.Time, err error) error {
	c.metrics.RecordAPICall(method, route, 0, time.Since(start))
	span.RecordError(err)
	span.SetStatus(codes.Error, "transport")
	c.logger.DebugContext(ctx, "api request failed", "method", method, "path", route, "error", err.Error())
	return &TransportError{Method: method, Path: path, Err: err}
}

// rejectSession applies the forced-logout policy for a 401. It runs even
// when ctx is already cancelled.
func (c *Client) rejectSession(ctx context.Context, gen uint64) {
	ctx = context.WithoutCancel(ctx)
	cleared, err := c.session.ClearIfCurrent(ctx, gen)
	if err != nil {
		c.logger.WithError(err).Warn("rejected session could not be removed from storage")
	}
	c.metrics.RecordForcedLogout(cleared)
	if !cleared {
		c.logger.Debug("ignoring 401 for a superseded session")
		return
	}
	c.navigator.RedirectToSignIn(ctx)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

func (c *Client) del(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}
