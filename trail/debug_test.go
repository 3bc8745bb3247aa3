package trail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lgc202/httptrail/trailtest"
)

func TestTelemetryKeyedByFirstHop(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := newTestClient(t, WithBaseURL(srv.URL))
	record(t, c, "/redirect/3")

	dbg := c.DebugLog()
	if len(dbg) != 1 {
		t.Fatalf("expected one telemetry entry, got %d", len(dbg))
	}
	stream, ok := c.DebugFor(srv.URL + "/redirect/3")
	if !ok {
		t.Fatalf("expected telemetry keyed by the first hop, keys: %v", keys(dbg))
	}
	// One request line per hop of the chain, plus the terminal status.
	for _, want := range []string{
		"> GET /redirect/3 HTTP/1.1",
		"> GET /redirect/2 HTTP/1.1",
		"> GET /redirect/1 HTTP/1.1",
		"< HTTP/1.1 200 OK",
	} {
		if !strings.Contains(stream, want) {
			t.Fatalf("expected %q in stream:\n%s", want, stream)
		}
	}
	if !strings.Contains(stream, "* connecting to") {
		t.Fatalf("expected connection milestones in stream:\n%s", stream)
	}
}

func TestTelemetryWithTraceDisabled(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := newTestClient(t, WithBaseURL(srv.URL), WithoutTrace())
	record(t, c, "/get")

	stream, ok := c.DebugFor(srv.URL + "/get")
	if !ok {
		t.Fatalf("expected telemetry even with trace disabled")
	}
	if !strings.Contains(stream, "> GET /get HTTP/1.1") {
		t.Fatalf("expected hop line, got:\n%s", stream)
	}
	if strings.Contains(stream, "* connecting to") {
		t.Fatalf("expected no connection milestones, got:\n%s", stream)
	}
}

func TestTelemetryLastCallWinsPerOrigin(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := newTestClient(t, WithBaseURL(srv.URL))
	record(t, c, "/get")
	record(t, c, "/get")

	dbg := c.DebugLog()
	if len(dbg) != 1 {
		t.Fatalf("expected a single entry per origin, got %d", len(dbg))
	}
}

func TestTelemetryCapturedOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	c := newTestClient(t)
	resp, err := c.Record(context.Background(), http.MethodGet, target+"/down")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = resp.Body.Close()

	stream, ok := c.DebugFor(target + "/down")
	if !ok {
		t.Fatalf("expected telemetry for the failed call")
	}
	if !strings.Contains(stream, "> GET /down") {
		t.Fatalf("expected the dispatched hop line, got:\n%s", stream)
	}
	if !strings.Contains(stream, "failed") {
		t.Fatalf("expected a failure milestone, got:\n%s", stream)
	}
}

func TestTelemetryCopyIsDetached(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := newTestClient(t, WithBaseURL(srv.URL))
	record(t, c, "/get")

	dbg := c.DebugLog()
	for k := range dbg {
		dbg[k] = "tampered"
	}
	fresh, _ := c.DebugFor(srv.URL + "/get")
	if fresh == "tampered" {
		t.Fatalf("DebugLog must return a copy")
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
