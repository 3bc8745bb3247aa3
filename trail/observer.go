package trail

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// callState travels with a logical call through the transport chain so that
// concurrent calls on one client cannot cross-attribute their hops. The
// observer notes every hop; the first one keys the call's debug telemetry.
type callState struct {
	mu    sync.Mutex
	first string
	hops  int
	trace *traceBuffer
}

func (cs *callState) noteHop(url string) {
	cs.mu.Lock()
	if cs.hops == 0 {
		cs.first = url
	}
	cs.hops++
	cs.mu.Unlock()
}

func (cs *callState) firstURL() (string, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.first, cs.hops > 0
}

type callStateKey struct{}

func withCallState(ctx context.Context, cs *callState) context.Context {
	return context.WithValue(ctx, callStateKey{}, cs)
}

func callStateFrom(ctx context.Context) *callState {
	cs, _ := ctx.Value(callStateKey{}).(*callState)
	return cs
}

// historyObserver is the innermost RoundTripper: it captures each hop the
// transport performs and appends one Transaction per completed exchange.
// http.Client re-enters it for every redirect hop, so an N-hop chain yields
// N appends. A hop that fails in flight appends nothing; the failure is
// mapped above.
//
// The observer is bound to its history handle at build time. Reset builds a
// fresh observer, so an in-flight call keeps appending to the history it
// started with.
type historyObserver struct {
	base    http.RoundTripper
	history *History
	capture CaptureConfig
	log     zerolog.Logger
}

func (o *historyObserver) RoundTrip(req *http.Request) (*http.Response, error) {
	cs := callStateFrom(req.Context())

	body, size, truncated, err := captureRequestBody(req, o.capture.MaxBodyBytes)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Method: req.Method, URL: req.URL.String(), Cause: err}
	}
	reqRec := RequestRecord{
		Method:        req.Method,
		URL:           req.URL.String(),
		Proto:         req.Proto,
		Target:        req.URL.RequestURI(),
		Headers:       req.Header.Clone(),
		Body:          body,
		BodySize:      size,
		BodyTruncated: truncated,
	}
	if reqRec.Proto == "" {
		reqRec.Proto = "HTTP/1.1"
	}
	if reqRec.Headers == nil {
		reqRec.Headers = make(http.Header)
	}

	if cs != nil {
		cs.noteHop(reqRec.URL)
		if cs.trace != nil {
			cs.trace.printf("> %s %s %s", reqRec.Method, reqRec.Target, reqRec.Proto)
		}
	}

	start := time.Now()
	resp, err := o.base.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}

	respRec, err := captureResponse(resp, o.capture.MaxBodyBytes)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Method: req.Method, URL: reqRec.URL, StatusCode: resp.StatusCode, Cause: err}
	}
	if cs != nil && cs.trace != nil {
		cs.trace.printf("< %s %s", resp.Proto, resp.Status)
	}

	tx := Transaction{
		ID:       uuid.NewString(),
		Start:    start,
		Duration: duration,
		Request:  reqRec,
		Response: respRec,
	}
	o.history.Append(tx)
	o.log.Debug().
		Str("method", tx.Request.Method).
		Str("url", tx.Request.URL).
		Int("status", tx.Response.StatusCode).
		Dur("duration", duration).
		Msg("hop recorded")
	return resp, nil
}

// captureRequestBody copies the outgoing body without consuming what the
// transport is about to send. GetBody hands out an independent reader when
// available; otherwise the body is drained and restored.
func captureRequestBody(req *http.Request, max int64) (body []byte, size int64, truncated bool, err error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, 0, false, nil
	}
	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, 0, false, err
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, 0, false, err
		}
		body, size, truncated = retain(b, max)
		return body, size, truncated, nil
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, 0, false, err
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	body, size, truncated = retain(b, max)
	return body, size, truncated, nil
}

// captureResponse buffers the full response body so the transaction is
// inspectable later, then rewinds it for the caller. The retention cap
// limits what the record keeps, never what the caller reads.
func captureResponse(resp *http.Response, max int64) (ResponseRecord, error) {
	rec := ResponseRecord{
		StatusCode:    resp.StatusCode,
		Reason:        reasonPhrase(resp),
		Proto:         resp.Proto,
		Headers:       resp.Header.Clone(),
		ContentLength: resp.ContentLength,
	}
	if rec.Headers == nil {
		rec.Headers = make(http.Header)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return rec, nil
	}
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return rec, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(b))
	rec.Body, rec.BodySize, rec.BodyTruncated = retain(b, max)
	return rec, nil
}

// retain applies the per-direction retention cap: the returned slice is an
// independent copy holding at most max bytes, size is the true byte count.
func retain(b []byte, max int64) ([]byte, int64, bool) {
	size := int64(len(b))
	if max > 0 && size > max {
		return append([]byte(nil), b[:max]...), size, true
	}
	return append([]byte(nil), b...), size, false
}
