package trail

import (
	"fmt"
	"net/http"
)

// DefaultMaxHops bounds a redirect chain when RedirectPolicy.MaxHops is 0.
const DefaultMaxHops = 10

// RedirectPolicy controls how the underlying client walks redirect chains.
// The transport drives the following itself; the observer only records the
// hops it produces, one transaction each.
type RedirectPolicy struct {
	// Follow enables redirect following. When false the first response is
	// returned as-is, 3xx included, and the chain has exactly one hop.
	Follow bool

	// MaxHops caps consecutive redirects for one call. Zero means
	// DefaultMaxHops. When the cap is hit, the call fails with the last
	// response attached, and that response is what the caller receives.
	MaxHops int
}

// DefaultRedirectPolicy follows up to DefaultMaxHops redirects.
func DefaultRedirectPolicy() RedirectPolicy {
	return RedirectPolicy{Follow: true, MaxHops: DefaultMaxHops}
}

// checkRedirect builds the http.Client policy function for p.
func (p RedirectPolicy) checkRedirect() func(*http.Request, []*http.Request) error {
	if !p.Follow {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	max := p.MaxHops
	if max <= 0 {
		max = DefaultMaxHops
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		return nil
	}
}
