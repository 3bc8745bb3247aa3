package trail

import (
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

type Option interface{ apply(*Config) }

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

func WithBaseURL(baseURL string) Option {
	return optionFunc(func(c *Config) { c.BaseURL = baseURL })
}

func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *Config) { c.Timeout = d })
}

func WithDialTimeout(d time.Duration) Option {
	return optionFunc(func(c *Config) { c.DialTimeout = d })
}

func WithTransport(rt http.RoundTripper) Option {
	return optionFunc(func(c *Config) { c.Transport = rt })
}

func WithTransportFactory(f TransportFactory) Option {
	return optionFunc(func(c *Config) { c.TransportFactory = f })
}

func WithProxy(fn func(*http.Request) (*url.URL, error)) Option {
	return optionFunc(func(c *Config) { c.Proxy = fn })
}

// WithProxyURL routes requests through a fixed forward proxy.
func WithProxyURL(raw string) Option {
	return optionFunc(func(c *Config) {
		u, err := url.Parse(raw)
		if err != nil {
			return
		}
		c.Proxy = http.ProxyURL(u)
	})
}

func WithRedirectPolicy(p RedirectPolicy) Option {
	return optionFunc(func(c *Config) { c.Redirects = p })
}

// WithMaxRedirects caps the chain length while keeping following enabled.
func WithMaxRedirects(n int) Option {
	return optionFunc(func(c *Config) { c.Redirects = RedirectPolicy{Follow: true, MaxHops: n} })
}

// WithoutRedirects returns the first response as-is, 3xx included.
func WithoutRedirects() Option {
	return optionFunc(func(c *Config) { c.Redirects = RedirectPolicy{Follow: false} })
}

func WithDefaultHeader(key, value string) Option {
	return optionFunc(func(c *Config) {
		if c.DefaultHeaders == nil {
			c.DefaultHeaders = make(http.Header)
		}
		c.DefaultHeaders.Set(key, value)
	})
}

func WithDefaultHeaders(h http.Header) Option {
	return optionFunc(func(c *Config) {
		if h == nil {
			return
		}
		if c.DefaultHeaders == nil {
			c.DefaultHeaders = make(http.Header)
		}
		for k, vv := range h {
			for _, v := range vv {
				c.DefaultHeaders.Add(k, v)
			}
		}
	})
}

func WithUserAgent(ua string) Option {
	return optionFunc(func(c *Config) { c.UserAgent = ua })
}

func WithRequestFactory(f RequestFactory) Option {
	return optionFunc(func(c *Config) { c.RequestFactory = f })
}

// WithHistory binds the client to an externally held container. The handle
// is shared, not copied: appends and truncation are visible to every holder.
func WithHistory(h *History) Option {
	return optionFunc(func(c *Config) { c.History = h })
}

func WithCapture(cfg CaptureConfig) Option {
	return optionFunc(func(c *Config) { c.Capture = cfg })
}

// WithMaxBodyBytes caps per-direction body retention per hop.
func WithMaxBodyBytes(n int64) Option {
	return optionFunc(func(c *Config) { c.Capture.MaxBodyBytes = n })
}

// WithoutTrace drops the connection-level milestones from the telemetry,
// leaving only per-hop request and status lines.
func WithoutTrace() Option {
	return optionFunc(func(c *Config) { c.Capture.DisableTrace = true })
}

func WithLogger(l zerolog.Logger) Option {
	return optionFunc(func(c *Config) { c.Logger = l })
}

func WithRequestID(cfg RequestIDConfig) Option {
	return optionFunc(func(c *Config) { c.RequestID = cfg })
}
