package trail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
)

// Kind classifies a transport failure for the error-to-response mapping.
type Kind string

const (
	// KindConnect covers failures to reach the peer at all: DNS resolution,
	// dialing, a reset before any response.
	KindConnect Kind = "connect"

	// KindTimeout covers deadline-style failures at any stage of the call.
	KindTimeout Kind = "timeout"

	// KindClient marks a 4xx-class failure surfaced as an error rather than
	// a plain response.
	KindClient Kind = "client"

	// KindServer marks a 5xx-class failure surfaced as an error.
	KindServer Kind = "server"

	// KindUnknown is every classified failure the other kinds do not cover.
	KindUnknown Kind = "unknown"
)

// Error is a classified transport failure with observability-friendly fields.
// Custom transports may return it directly; anything else is classified on
// the way out.
type Error struct {
	Kind Kind

	Method string
	URL    string

	// StatusCode is the HTTP status the failure is associated with. It is 0
	// when the request failed before a status was known.
	StatusCode int

	// Response, when non-nil, is a response the peer actually produced
	// alongside the failure (a redirect-policy stop, for example). The
	// mapper returns it verbatim instead of fabricating one.
	Response *http.Response

	// Cause is the underlying error.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if strings.TrimSpace(e.Method) != "" {
		b.WriteString(strings.ToUpper(strings.TrimSpace(e.Method)))
		b.WriteString(" ")
	}
	if strings.TrimSpace(e.URL) != "" {
		b.WriteString(strings.TrimSpace(e.URL))
		b.WriteString(": ")
	}
	switch {
	case e.StatusCode != 0:
		b.WriteString(fmt.Sprintf("http %d", e.StatusCode))
		if t := strings.TrimSpace(http.StatusText(e.StatusCode)); t != "" {
			b.WriteString(" ")
			b.WriteString(t)
		}
	case e.Kind != "":
		b.WriteString(string(e.Kind))
		b.WriteString(" failure")
	default:
		b.WriteString("request failed")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError extracts *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// KindOf classifies err into the Kind taxonomy.
func KindOf(err error) Kind {
	return classify(err)
}

// IsKind reports whether err classifies as k.
func IsKind(err error, k Kind) bool {
	return classify(err) == k
}

// classify maps an arbitrary transport error into the Kind taxonomy. A typed
// *Error wins with its own Kind, then its status code; untyped errors are
// classified by shape: deadline errors are timeouts, dial/DNS errors are
// connect failures, the rest is unknown.
func classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if te, ok := AsError(err); ok {
		if te.Kind != "" {
			return te.Kind
		}
		switch {
		case te.StatusCode >= 400 && te.StatusCode < 500:
			return KindClient
		case te.StatusCode >= 500 && te.StatusCode < 600:
			return KindServer
		}
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	var de *net.DNSError
	if errors.As(err, &de) {
		return KindConnect
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return KindConnect
	}
	return KindUnknown
}

// statusFor resolves the synthetic status for a classified failure. code is
// the failure's own status when it carried one, 0 otherwise.
func statusFor(k Kind, code int) int {
	switch k {
	case KindConnect, KindTimeout:
		return http.StatusRequestTimeout
	case KindClient:
		if code != 0 {
			return code
		}
		return http.StatusBadRequest
	case KindServer:
		if code != 0 {
			return code
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
