package trail

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// RequestFactory builds the outgoing *http.Request for NewRequest and
// Record. Overriding it swaps in custom construction (extra defaults,
// tracing headers) while keeping capture semantics untouched.
type RequestFactory func(ctx context.Context, method, url string, body io.Reader) (*http.Request, error)

// TransportFactory produces the base RoundTripper the client instruments.
// It is invoked at construction and again on every Reset, so state baked
// into the transport (connection pools included) starts fresh each cycle.
type TransportFactory func() http.RoundTripper

// CaptureConfig tunes what the observer retains per hop.
type CaptureConfig struct {
	// MaxBodyBytes caps the body bytes retained per direction per hop.
	// Zero keeps everything. Capped records are marked truncated; callers
	// still receive the full payload.
	MaxBodyBytes int64

	// DisableTrace skips the connection-level trace wiring. Per-hop request
	// and status lines are still written, so telemetry stays populated.
	DisableTrace bool
}

// Config configures a Client. Use DefaultConfig() as a baseline.
type Config struct {
	// BaseURL is optional. If set, relative paths passed to NewRequest and
	// Record are resolved against it.
	BaseURL string

	// Timeout bounds a whole logical call, every redirect hop included.
	// If the request context already has a deadline, the earlier one wins.
	Timeout time.Duration

	// DialTimeout bounds establishing a single connection. Zero leaves the
	// transport default in place.
	DialTimeout time.Duration

	// Transport is the base RoundTripper to instrument. If nil, the
	// TransportFactory builds one; if that is nil too, a tuned default is
	// used.
	Transport http.RoundTripper

	// TransportFactory rebuilds the base transport on construction and
	// every Reset. Ignored when Transport is set.
	TransportFactory TransportFactory

	// Proxy overrides the proxy function of the default transport. Ignored
	// when Transport or TransportFactory is set.
	Proxy func(*http.Request) (*url.URL, error)

	// Redirects bounds transport-driven redirect following.
	Redirects RedirectPolicy

	// DefaultHeaders are copied into every request (caller headers win).
	DefaultHeaders http.Header

	// UserAgent is set when the request does not already have a User-Agent
	// header.
	UserAgent string

	// RequestFactory overrides outgoing request construction.
	RequestFactory RequestFactory

	// History, when non-nil, is the shared container transactions are
	// appended to. The client keeps the handle: external holders observe
	// appends and truncation. When nil, the client creates its own.
	History *History

	// Capture tunes per-hop retention and trace wiring.
	Capture CaptureConfig

	// Logger receives structured events from the observer, the failure
	// mapper and the telemetry correlator. Defaults to a no-op logger.
	Logger zerolog.Logger

	// RequestID configures correlation id injection.
	RequestID RequestIDConfig
}

// DefaultConfig returns a baseline suitable for interactive debugging:
// follow redirects, keep whole bodies, stay quiet unless given a logger.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		DialTimeout:    5 * time.Second,
		Redirects:      DefaultRedirectPolicy(),
		DefaultHeaders: make(http.Header),
		Logger:         zerolog.Nop(),
		RequestID:      DefaultRequestIDConfig(),
	}
}
