package trail

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

// TransportConfig captures the subset of http.Transport knobs that matter
// when the transport is rebuilt on every reset.
type TransportConfig struct {
	Proxy                 func(*http.Request) (*url.URL, error)
	DialTimeout           time.Duration
	DialKeepAlive         time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	ExpectContinueTimeout time.Duration
	IdleConnTimeout       time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	ForceAttemptHTTP2   bool
}

// NewTransport builds an *http.Transport starting from DefaultTransport()
// and applying overrides.
func NewTransport(cfg TransportConfig) *http.Transport {
	t := DefaultTransport()
	if cfg.Proxy != nil {
		t.Proxy = cfg.Proxy
	}
	if cfg.DialTimeout > 0 || cfg.DialKeepAlive > 0 {
		d := &net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.DialKeepAlive,
		}
		t.DialContext = d.DialContext
	}
	if cfg.TLSHandshakeTimeout > 0 {
		t.TLSHandshakeTimeout = cfg.TLSHandshakeTimeout
	}
	if cfg.ResponseHeaderTimeout > 0 {
		t.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout
	}
	if cfg.ExpectContinueTimeout > 0 {
		t.ExpectContinueTimeout = cfg.ExpectContinueTimeout
	}
	if cfg.IdleConnTimeout > 0 {
		t.IdleConnTimeout = cfg.IdleConnTimeout
	}
	if cfg.MaxIdleConns > 0 {
		t.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost > 0 {
		t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	if cfg.MaxConnsPerHost > 0 {
		t.MaxConnsPerHost = cfg.MaxConnsPerHost
	}
	if cfg.ForceAttemptHTTP2 {
		// Explicit registration; failure falls back to HTTP/1.1.
		_ = http2.ConfigureTransport(t)
	}
	return t
}

// NewSOCKS5Transport routes all dials through a SOCKS5 proxy at addr
// ("host:port"), the way curl does with --socks5. auth may be nil.
func NewSOCKS5Transport(addr string, auth *proxy.Auth, cfg TransportConfig) (*http.Transport, error) {
	t := NewTransport(cfg)
	forward := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.DialKeepAlive,
	}
	d, err := proxy.SOCKS5("tcp", addr, auth, forward)
	if err != nil {
		return nil, err
	}
	t.Proxy = nil
	if cd, ok := d.(proxy.ContextDialer); ok {
		t.DialContext = cd.DialContext
	} else {
		t.DialContext = func(_ context.Context, network, address string) (net.Conn, error) {
			return d.Dial(network, address)
		}
	}
	return t, nil
}

// DefaultTransport returns a tuned clone of http.DefaultTransport.
func DefaultTransport() *http.Transport {
	// http.DefaultTransport is a *http.Transport in stdlib.
	base, _ := http.DefaultTransport.(*http.Transport)
	if base == nil {
		return &http.Transport{}
	}
	t := base.Clone()

	t.DialContext = (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.TLSHandshakeTimeout = 5 * time.Second
	t.ExpectContinueTimeout = 1 * time.Second
	t.IdleConnTimeout = 90 * time.Second
	if t.MaxIdleConns == 0 {
		t.MaxIdleConns = 200
	}
	if t.MaxIdleConnsPerHost == 0 {
		t.MaxIdleConnsPerHost = 50
	}
	t.ForceAttemptHTTP2 = true
	return t
}
