package trail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/http/httptrace"
	"sync"
)

// traceBuffer accumulates the raw connection diagnostics for one logical
// call: dial and TLS milestones from httptrace plus one line per hop written
// by the observer. Buffers come from a pool and are always released through
// flushDebug, error exits included.
type traceBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

var tracePool = sync.Pool{New: func() any { return new(traceBuffer) }}

func acquireTrace() *traceBuffer { return tracePool.Get().(*traceBuffer) }

func (b *traceBuffer) release() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
	tracePool.Put(b)
}

func (b *traceBuffer) printf(format string, args ...any) {
	b.mu.Lock()
	fmt.Fprintf(&b.buf, format, args...)
	b.buf.WriteByte('\n')
	b.mu.Unlock()
}

func (b *traceBuffer) text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// clientTrace wires the transport milestones into the buffer in the style of
// a verbose curl transcript. Callbacks may fire from transport goroutines;
// printf serializes them.
func (b *traceBuffer) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			b.printf("* resolving %s", info.Host)
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			if info.Err != nil {
				b.printf("* resolve failed: %v", info.Err)
				return
			}
			b.printf("* resolved %d address(es)", len(info.Addrs))
		},
		ConnectStart: func(network, addr string) {
			b.printf("* connecting to %s %s", network, addr)
		},
		ConnectDone: func(network, addr string, err error) {
			if err != nil {
				b.printf("* connect to %s failed: %v", addr, err)
				return
			}
			b.printf("* connected to %s", addr)
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			if err != nil {
				b.printf("* tls handshake failed: %v", err)
				return
			}
			b.printf("* tls established (%s)", tls.VersionName(state.Version))
		},
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				b.printf("* reusing connection to %s", info.Conn.RemoteAddr())
				return
			}
			b.printf("* using connection to %s", info.Conn.RemoteAddr())
		},
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err != nil {
				b.printf("* request write failed: %v", info.Err)
				return
			}
			b.printf("* request written")
		},
		GotFirstResponseByte: func() {
			b.printf("* first response byte")
		},
	}
}

// flushDebug captures the call's accumulated trace into the telemetry map
// and returns the buffer to the pool. The entry is keyed by the URL of the
// first hop the call actually dispatched, falling back to the requested URL
// when no hop was recorded: the stream describes the whole redirect chain
// and belongs to its origin. An empty stream records nothing beyond a
// warning; later calls to the same origin overwrite the entry.
func (c *Client) flushDebug(b *traceBuffer, cs *callState, requestURL string) {
	defer b.release()
	text := b.text()
	log := c.logger()
	if text == "" {
		log.Warn().Str("url", requestURL).Msg("debug stream empty, nothing captured")
		return
	}
	key := requestURL
	if first, ok := cs.firstURL(); ok {
		key = first
	}
	c.mu.Lock()
	c.debug[key] = text
	c.mu.Unlock()
	log.Debug().Str("url", key).Int("bytes", len(text)).Msg("debug telemetry captured")
}

// DebugLog returns a copy of the captured telemetry, keyed by first-hop URL.
func (c *Client) DebugLog() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.debug))
	for k, v := range c.debug {
		out[k] = v
	}
	return out
}

// DebugFor returns the telemetry recorded for the given first-hop URL.
func (c *Client) DebugFor(url string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.debug[url]
	return s, ok
}
