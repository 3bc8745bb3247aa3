package trail

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Client wraps an *http.Client so every call it dispatches is captured.
// The zero value is not usable; construct with New or NewWithConfig.
//
// Concurrent calls are safe and keep their capture state separate. Reset
// may run concurrently with calls; a call in flight finishes against the
// transport and history it started with.
type Client struct {
	mu sync.RWMutex

	httpClient *http.Client
	cfg        Config
	baseURL    *url.URL

	history *History
	debug   map[string]string
	obs     *historyObserver
	log     zerolog.Logger

	before []BeforeHook
	after  []AfterHook
	mws    []Middleware
}

// New constructs a Client from DefaultConfig() plus the provided options.
func New(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		if o != nil {
			o.apply(&cfg)
		}
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) (*Client, error) {
	c := &Client{}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.applyLocked(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// applyLocked installs cfg: validates the base URL, binds the history
// handle, clears telemetry and rebuilds the transport around a fresh
// observer. Validation happens before any mutation so a failed Reset leaves
// the client untouched. Caller holds c.mu.
func (c *Client) applyLocked(cfg Config) error {
	var bu *url.URL
	if strings.TrimSpace(cfg.BaseURL) != "" {
		u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
		if err != nil {
			return err
		}
		if u.Scheme == "" || u.Host == "" {
			return &url.Error{Op: "parse", URL: cfg.BaseURL, Err: errors.New("base url must be absolute")}
		}
		// Normalize so relative paths resolve under the BaseURL path prefix.
		if u.Path != "" && !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		bu = u
	}

	// Clone headers to avoid caller mutation.
	hdr := make(http.Header)
	for k, vv := range cfg.DefaultHeaders {
		for _, v := range vv {
			hdr.Add(k, v)
		}
	}
	cfg.DefaultHeaders = hdr
	if cfg.RequestID.New == nil && cfg.RequestID.Header != "" {
		cfg.RequestID.New = DefaultRequestID
	}

	// Bind the history handle. A handle supplied by the new configuration
	// is adopted as-is; otherwise the current one is kept and emptied in
	// place so external holders observe the reset.
	switch {
	case cfg.History != nil && cfg.History != c.history:
		c.history = cfg.History
	case c.history != nil:
		c.history.Truncate()
	default:
		c.history = NewHistory()
	}

	// Telemetry is cleared unconditionally.
	c.debug = make(map[string]string)

	base := cfg.Transport
	if base == nil && cfg.TransportFactory != nil {
		base = cfg.TransportFactory()
	}
	if base == nil {
		base = NewTransport(TransportConfig{
			DialTimeout: cfg.DialTimeout,
			Proxy:       cfg.Proxy,
		})
	}
	c.obs = &historyObserver{
		base:    base,
		history: c.history,
		capture: cfg.Capture,
		log:     cfg.Logger,
	}
	c.httpClient = &http.Client{
		Transport:     chain(c.obs, c.mws),
		CheckRedirect: cfg.Redirects.checkRedirect(),
	}
	c.baseURL = bu
	c.cfg = cfg
	c.log = cfg.Logger
	return nil
}

func (c *Client) logger() zerolog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

// WithMiddleware wraps the transport chain outside the history observer, so
// the record reflects requests as middleware sent them. Call during
// initialization; Reset keeps registered middleware.
func (c *Client) WithMiddleware(mws ...Middleware) *Client {
	if len(mws) == 0 {
		return c
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mws = append(c.mws, mws...)
	c.httpClient.Transport = chain(c.obs, c.mws)
	return c
}

// WithHooks adds hooks executed around every call.
func (c *Client) WithHooks(before []BeforeHook, after []AfterHook) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.before = append(c.before, before...)
	c.after = append(c.after, after...)
	return c
}

func withEarlierDeadline(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	if deadline.IsZero() {
		return ctx, func() {}
	}
	if existing, ok := ctx.Deadline(); ok && !existing.After(deadline) {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline)
}

func earliestDeadline(base context.Context, timeouts ...time.Duration) (time.Time, bool) {
	now := time.Now()
	var earliest time.Time
	for _, d := range timeouts {
		if d <= 0 {
			continue
		}
		dd := now.Add(d)
		if earliest.IsZero() || dd.Before(earliest) {
			earliest = dd
		}
	}
	if dl, ok := base.Deadline(); ok {
		if earliest.IsZero() || dl.Before(earliest) {
			earliest = dl
		}
	}
	if earliest.IsZero() {
		return time.Time{}, false
	}
	return earliest, true
}

// Record builds and dispatches one logical call, returning the final
// response of the chain. Transport failures come back as synthetic
// responses, never as errors; the error return covers request construction,
// aborting hooks and context cancellation only.
func (c *Client) Record(ctx context.Context, method, url string, opts ...RequestOption) (*http.Response, error) {
	req, err := c.NewRequest(ctx, method, url, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Do dispatches a prepared request through the capture pipeline. Every hop
// the transport performs lands in the history; the call's connection
// diagnostics land in the debug telemetry keyed by the first hop. The
// returned response always has a readable body:
//   - a completed exchange returns the final response as-is
//   - a failure that carried a server response returns that response
//   - any other failure returns a synthetic JSON error response
//
// Context cancellation is the caller's decision and propagates unmapped.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("trail: nil request")
	}

	c.mu.RLock()
	hc := c.httpClient
	timeout := c.cfg.Timeout
	disableTrace := c.cfg.Capture.DisableTrace
	log := c.log
	before := c.before
	after := c.after
	c.mu.RUnlock()

	ctx := req.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if dl, ok := earliestDeadline(ctx, timeout, requestTimeout(ctx)); ok {
		ctx2, cancel := withEarlierDeadline(ctx, dl)
		defer cancel()
		ctx = ctx2
	}

	cs := &callState{trace: acquireTrace()}
	ctx = withCallState(ctx, cs)
	if !disableTrace {
		ctx = httptrace.WithClientTrace(ctx, cs.trace.clientTrace())
	}
	req = req.Clone(ctx)

	// Telemetry flushes on every exit path below, hook aborts included.
	defer c.flushDebug(cs.trace, cs, req.URL.String())

	for _, h := range before {
		if h == nil {
			continue
		}
		if err := h(req); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := hc.Do(req)
	dur := time.Since(start)

	for _, h := range after {
		if h != nil {
			h(req, resp, err, dur)
		}
	}

	if err != nil {
		if errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			log.Debug().
				Str("method", req.Method).
				Str("url", req.URL.String()).
				Msg("call canceled, propagating")
			return nil, err
		}
		if attached := attachedResponse(resp, err); attached != nil {
			log.Error().
				Str("method", req.Method).
				Str("url", req.URL.String()).
				Int("status", attached.StatusCode).
				Err(err).
				Msg("failure carried a server response, returning it verbatim")
			return attached, nil
		}
		return c.synthesize(req, err), nil
	}

	evt := log.Info()
	if resp.StatusCode >= 400 {
		evt = log.Warn()
	}
	evt.Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("duration", dur).
		Msg("call completed")
	return resp, nil
}

// Reset restores the client to a clean capture state: history truncated in
// place (or rebound when the new configuration carries its own handle),
// telemetry cleared, transport rebuilt around a fresh observer. Without
// options the stored configuration is reused; with options a new one is
// built from DefaultConfig plus the options.
func (c *Client) Reset(opts ...Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg := c.cfg
	if len(opts) > 0 {
		cfg = DefaultConfig()
		for _, o := range opts {
			if o != nil {
				o.apply(&cfg)
			}
		}
	}
	return c.applyLocked(cfg)
}

// ResetWithConfig is Reset with a fully caller-built configuration.
func (c *Client) ResetWithConfig(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(cfg)
}

// History returns the container the client currently appends to. The handle
// survives Reset: entries are truncated in place, not reallocated.
func (c *Client) History() *History {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history
}
