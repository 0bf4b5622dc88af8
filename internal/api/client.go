// Package api is a typed client for the Engineering ToolBox REST API.
//
// Every call carries an X-Request-ID, is traced as a client span, counted and
// timed per endpoint template, and logged. Idempotent reads retry on 429 and
// 5xx with exponential backoff.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"toolbox/internal/cache"
	"toolbox/internal/featureflags"
	"toolbox/internal/identity"
	"toolbox/internal/models"
	"toolbox/internal/observability"
	"toolbox/internal/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 15 * time.Second
	defaultBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxBodyBytes   = 8 << 20
)

// Client talks to the backend on behalf of the session's user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session

	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter

	formulas *cache.Store
	cacheTTL time.Duration

	flags *featureflags.Manager
	rec   observability.Recorder
	log   *observability.APILogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries sets how many times a failed read is retried and the first
// backoff delay.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max(n, 0)
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithRateLimit paces outgoing requests to rps per second. Zero disables
// pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(math.Ceil(rps))))
		}
	}
}

// WithFormulaCache serves formula catalogue reads through store.
func WithFormulaCache(store *cache.Store, ttl time.Duration) Option {
	return func(c *Client) {
		c.formulas = store
		c.cacheTTL = ttl
	}
}

// WithFeatureFlags gates retries and the formula cache per user.
func WithFeatureFlags(m *featureflags.Manager) Option {
	return func(c *Client) { c.flags = m }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec observability.Recorder) Option {
	return func(c *Client) {
		if rec != nil {
			c.rec = rec
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *observability.Logger) Option {
	return func(c *Client) { c.log = observability.NewAPILogger("api", l) }
}

// New returns a client for baseURL. sess may be shared with other clients.
func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	if sess == nil {
		sess = session.New(nil)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    sess,
		backoff:    defaultBackoff,
		rec:        observability.NopRecorder{},
		log:        observability.NewAPILogger("api", nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the client's session.
func (c *Client) Session() *session.Session {
	return c.session
}

func (c *Client) flagEnabled(name string) bool {
	if c.flags == nil {
		return true
	}
	return c.flags.Enabled(name, identity.CanonicalID(c.session.User()))
}

type authMode int

const (
	authNone authMode = iota
	authOptional
	authRequired
)

type request struct {
	method   string
	path     string
	endpoint string
	query    url.Values
	body     any
	auth     authMode
	fallback string
}

func get(endpoint, path string, auth authMode) request {
	return request{method: http.MethodGet, path: path, endpoint: endpoint, auth: auth}
}

func send(method, endpoint, path string, body any) request {
	return request{method: method, path: path, endpoint: endpoint, body: body, auth: authRequired}
}

// do runs req and decodes the response into out, when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	body, err := c.doRaw(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return models.NewInternalError(fmt.Errorf("decode %s %s: %w", req.method, req.endpoint, err))
	}
	return nil
}

// doRaw runs req with retries and returns the 2xx body.
func (c *Client) doRaw(ctx context.Context, req request) (body []byte, err error) {
	token := c.session.Token()
	if req.auth == authRequired && token == "" {
		return nil, ErrSignedOut
	}

	var payload []byte
	if req.body != nil {
		payload, err = json.Marshal(req.body)
		if err != nil {
			return nil, models.NewInternalError(fmt.Errorf("encode %s body: %w", req.endpoint, err))
		}
	}

	ctx, _ = observability.EnsureCorrelationID(ctx)
	ctx, span := observability.StartClientSpan(ctx, req.method, req.endpoint)
	defer func() { observability.EndSpan(span, err) }()

	attempts := 1
	if req.method == http.MethodGet && c.flagEnabled(featureflags.RequestRetries) {
		attempts += c.maxRetries
	}

	for attempt := 1; ; attempt++ {
		var status int
		var retryAfter time.Duration
		body, status, retryAfter, err = c.attempt(ctx, req, token, payload)
		if err == nil {
			return body, nil
		}
		if attempt >= attempts || !shouldRetry(ctx, status, err) {
			c.log.LogError(ctx, req.method, req.endpoint, err)
			return nil, err
		}

		wait := c.backoffFor(attempt, retryAfter)
		c.rec.RecordRetry(req.endpoint)
		c.log.LogRetry(ctx, req.method, req.endpoint, attempt, wait)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, models.NewNetworkError(ctx.Err())
		case <-t.C:
		}
	}
}

func (c *Client) attempt(ctx context.Context, req request, token string, payload []byte) ([]byte, int, time.Duration, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, 0, models.NewNetworkError(err)
		}
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, rdr)
	if err != nil {
		return nil, 0, 0, models.NewInternalError(err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if id := observability.ExtractCorrelationID(ctx); id != "" {
		httpReq.Header.Set("X-Correlation-ID", id)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" && req.auth != authNone {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	observability.InjectHeaders(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.rec.RecordRequest(req.endpoint, 0, time.Since(start))
		return nil, 0, 0, models.NewNetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	c.rec.RecordRequest(req.endpoint, resp.StatusCode, elapsed)
	c.log.LogRequest(ctx, req.method, req.endpoint, resp.StatusCode, elapsed)
	if err != nil {
		return nil, resp.StatusCode, 0, models.NewNetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), &APIError{
			Status:   resp.StatusCode,
			Message:  errorMessage(body, resp.StatusCode, req.fallback),
			Method:   req.method,
			Endpoint: req.endpoint,
		}
	}
	return body, resp.StatusCode, 0, nil
}

func errorMessage(body []byte, status int, fallback string) string {
	var er models.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if msg := er.Text(); msg != "" {
			return msg
		}
	}
	if fallback != "" {
		return fallback
	}
	return statusMessage(status)
}

func shouldRetry(ctx context.Context, status int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if status != 0 {
		return retryable(status)
	}
	return models.HasCode(err, models.CodeNetwork) && !errors.Is(err, context.Canceled)
}

func (c *Client) backoffFor(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return min(retryAfter, maxBackoff)
	}
	d := c.backoff
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}

func pathID(id models.ID) string {
	return url.PathEscape(string(id))
}
