package trail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type RequestOption interface{ apply(*requestConfig) }

type requestOptionFunc func(*requestConfig)

func (f requestOptionFunc) apply(c *requestConfig) { f(c) }

type requestConfig struct {
	header http.Header
	query  url.Values

	timeout time.Duration

	body        io.Reader
	bodyBytes   []byte
	contentType string

	bearerToken string
	basicUser   string
	basicPass   string
}

func WithHeader(key, value string) RequestOption {
	return requestOptionFunc(func(c *requestConfig) {
		if c.header == nil {
			c.header = make(http.Header)
		}
		c.header.Set(key, value)
	})
}

func WithHeaders(h http.Header) RequestOption {
	return requestOptionFunc(func(c *requestConfig) {
		if h == nil {
			return
		}
		if c.header == nil {
			c.header = make(http.Header)
		}
		for k, vv := range h {
			for _, v := range vv {
				c.header.Add(k, v)
			}
		}
	})
}

func WithQuery(values url.Values) RequestOption {
	return requestOptionFunc(func(c *requestConfig) {
		if values == nil {
			return
		}
		if c.query == nil {
			c.query = make(url.Values)
		}
		for k, vv := range values {
			for _, v := range vv {
				c.query.Add(k, v)
			}
		}
	})
}

func WithQueryParam(key, value string) RequestOption {
	return requestOptionFunc(func(c *requestConfig) {
		if c.query == nil {
			c.query = make(url.Values)
		}
		c.query.Add(key, value)
	})
}

// WithRequestTimeout sets a per-call deadline upper bound.
// If the request context already has a deadline, the earlier one wins.
func WithRequestTimeout(d time.Duration) RequestOption {
	return requestOptionFunc(func(c *requestConfig) { c.timeout = d })
}

// WithBodyBytes sets the request body as bytes. GetBody is populated, so the
// observer captures the payload without consuming the send stream.
func WithBodyBytes(b []byte) RequestOption {
	return requestOptionFunc(func(c *requestConfig) {
		c.bodyBytes = append([]byte(nil), b...)
		c.body = nil
	})
}

// WithBody sets the request body reader. The observer drains and restores
// one-shot readers before the transport sends them.
func WithBody(r io.Reader) RequestOption {
	return requestOptionFunc(func(c *requestConfig) {
		c.body = r
		c.bodyBytes = nil
	})
}

// WithJSON sets the request body to a JSON-encoded value.
func WithJSON(v any) RequestOption {
	return requestOptionFunc(func(c *requestConfig) {
		b, err := json.Marshal(v)
		if err != nil {
			// Capture the error later during request build.
			c.body = errReader{err: err}
			c.bodyBytes = nil
			return
		}
		c.bodyBytes = b
		c.body = nil
		c.contentType = "application/json"
	})
}

func WithBearerToken(token string) RequestOption {
	return requestOptionFunc(func(c *requestConfig) { c.bearerToken = token })
}

func WithBasicAuth(user, pass string) RequestOption {
	return requestOptionFunc(func(c *requestConfig) {
		c.basicUser = user
		c.basicPass = pass
	})
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func (r errReader) Close() error { return nil }

type requestTimeoutKey struct{}

func withRequestTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, requestTimeoutKey{}, d)
}

func requestTimeout(ctx context.Context) time.Duration {
	if ctx == nil {
		return 0
	}
	v := ctx.Value(requestTimeoutKey{})
	if v == nil {
		return 0
	}
	if d, ok := v.(time.Duration); ok {
		return d
	}
	return 0
}

// NewRequest builds a request the way Record dispatches them: path resolved
// against the base URL, default headers and correlation id applied, body
// replayable where possible. The request can be handed to Do directly.
func (c *Client) NewRequest(ctx context.Context, method, path string, opts ...RequestOption) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rc := requestConfig{}
	for _, o := range opts {
		if o != nil {
			o.apply(&rc)
		}
	}

	c.mu.RLock()
	cfg := c.cfg
	base := c.baseURL
	c.mu.RUnlock()

	u, err := resolveURL(base, path, rc.query)
	if err != nil {
		return nil, err
	}

	if rc.timeout > 0 {
		ctx = withRequestTimeout(ctx, rc.timeout)
	}

	var body io.Reader
	if rc.bodyBytes != nil {
		body = bytes.NewReader(rc.bodyBytes)
	} else if rc.body != nil {
		body = rc.body
	}

	build := cfg.RequestFactory
	if build == nil {
		build = http.NewRequestWithContext
	}
	req, err := build(ctx, strings.ToUpper(method), u.String(), body)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errors.New("trail: request factory returned nil request")
	}
	if rc.bodyBytes != nil {
		// Hand out independent readers so capture never consumes the send
		// stream.
		b := append([]byte(nil), rc.bodyBytes...)
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
		req.ContentLength = int64(len(b))
	}

	// Apply headers: default headers first, then request headers override.
	for k, vv := range cfg.DefaultHeaders {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	for k, vv := range rc.header {
		req.Header.Del(k)
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	if rc.contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", rc.contentType)
	}
	if cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	if rc.bearerToken != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+rc.bearerToken)
	}
	if rc.basicUser != "" && req.Header.Get("Authorization") == "" {
		req.SetBasicAuth(rc.basicUser, rc.basicPass)
	}
	if cfg.RequestID.Header != "" && req.Header.Get(cfg.RequestID.Header) == "" {
		if cfg.RequestID.New != nil {
			if id := strings.TrimSpace(cfg.RequestID.New()); id != "" {
				req.Header.Set(cfg.RequestID.Header, id)
			}
		}
	}

	// Surface JSON marshal errors (captured as body reader).
	if er, ok := rc.body.(errReader); ok && er.err != nil {
		return nil, er.err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
		return nil, ctx.Err()
	}
	return req, nil
}

// resolveURL resolves path against base (when set) and merges extra query
// values on top of those already in the path.
func resolveURL(base *url.URL, path string, query url.Values) (*url.URL, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("trail: empty url")
	}
	u, err := url.Parse(p)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		if base == nil {
			return nil, errors.New("trail: relative url requires a base url")
		}
		// Treat a leading "/" as relative so a base with a path prefix
		// (e.g. http://host/api/v1) keeps the prefix.
		if strings.HasPrefix(u.Path, "/") {
			u2 := *u
			u2.Path = strings.TrimPrefix(u2.Path, "/")
			u = &u2
		}
		u = base.ResolveReference(u)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vv := range query {
			for _, v := range vv {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}
