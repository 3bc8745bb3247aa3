package trail

import (
	"net/http"
	"time"
)

// BeforeHook runs before a call is dispatched. Returning an error aborts the
// call; nothing is recorded for it.
type BeforeHook func(req *http.Request) error

// AfterHook runs after a call completes, before failures are mapped to
// synthetic responses. resp and err are what the underlying client returned,
// so hooks observe the raw outcome.
type AfterHook func(req *http.Request, resp *http.Response, err error, dur time.Duration)

// Middleware wraps the transport chain. Middleware sits outside the history
// observer: requests reach the observer after middleware mutation, so the
// record reflects what was actually sent.
type Middleware func(next http.RoundTripper) http.RoundTripper

func chain(rt http.RoundTripper, mws []Middleware) http.RoundTripper {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		rt = mws[i](rt)
	}
	return rt
}
