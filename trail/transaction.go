package trail

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RequestRecord is the wire-level shape of one dispatched request, captured
// at the moment the transport sent it (after middleware and header defaulting).
type RequestRecord struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Proto   string      `json:"proto"`
	Target  string      `json:"target"`
	Headers http.Header `json:"headers"`
	Body    []byte      `json:"body,omitempty"`

	// BodySize is the total number of body bytes the transport sent; Body
	// may hold fewer when a retention cap is configured.
	BodySize      int64 `json:"bodySize"`
	BodyTruncated bool  `json:"bodyTruncated,omitempty"`
}

// ResponseRecord is the captured shape of the response to one hop.
type ResponseRecord struct {
	StatusCode int         `json:"statusCode"`
	Reason     string      `json:"reason"`
	Proto      string      `json:"proto"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body,omitempty"`

	BodySize      int64 `json:"bodySize"`
	BodyTruncated bool  `json:"bodyTruncated,omitempty"`

	// ContentLength mirrors http.Response.ContentLength: -1 when the wire
	// did not declare one.
	ContentLength int64 `json:"contentLength"`
}

// Transaction is one completed request/response exchange. Values are
// immutable once appended to a History. A followed redirect chain produces
// one Transaction per hop.
type Transaction struct {
	ID       string        `json:"id"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`

	Request  RequestRecord  `json:"request"`
	Response ResponseRecord `json:"response"`
}

// EffectiveContentLength resolves the length the views report: the
// Content-Length header when present and parsable, otherwise the number of
// body bytes that actually arrived.
func (t Transaction) EffectiveContentLength() int64 {
	if v := t.Response.Headers.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return t.Response.BodySize
}

// reasonPhrase extracts the textual part of a status line, falling back to
// the standard phrase for bare "200"-style statuses.
func reasonPhrase(resp *http.Response) string {
	s := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if s != "" {
		return s
	}
	return http.StatusText(resp.StatusCode)
}
