package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lgc202/httptrail/trail"
	"github.com/lgc202/httptrail/trailtest"
)

func instrumentedClient(t *testing.T, c *Collector, opts ...trail.Option) *trail.Client {
	t.Helper()
	client, err := trail.New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	client.WithHooks(nil, []trail.AfterHook{c.Hook()})
	client.WithMiddleware(c.Middleware())
	return client
}

func record(t *testing.T, client *trail.Client, path string) {
	t.Helper()
	resp, err := client.Record(context.Background(), http.MethodGet, path)
	if err != nil {
		t.Fatalf("Record %s: %v", path, err)
	}
	_ = resp.Body.Close()
}

func TestHookCountsCalls(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := NewCollector()
	client := instrumentedClient(t, c, trail.WithBaseURL(srv.URL))
	record(t, client, "/get")
	record(t, client, "/get")
	record(t, client, "/status/503")

	if got := testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "200")); got != 2 {
		t.Fatalf("expected 2 ok calls, got %v", got)
	}
	if got := testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "503")); got != 1 {
		t.Fatalf("expected 1 failed call, got %v", got)
	}
	if got := testutil.CollectAndCount(c.RequestDuration); got == 0 {
		t.Fatalf("expected duration observations")
	}
}

func TestHookCountsTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	c := NewCollector()
	client := instrumentedClient(t, c)
	record(t, client, target)

	if got := testutil.ToFloat64(c.TransportErrors.WithLabelValues(string(trail.KindConnect))); got != 1 {
		t.Fatalf("expected 1 connect failure, got %v", got)
	}
	// The synthetic response never reaches the call counter.
	if got := testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "408")); got != 0 {
		t.Fatalf("expected no synthetic statuses counted, got %v", got)
	}
}

func TestMiddlewareCountsEveryHop(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := NewCollector()
	client := instrumentedClient(t, c, trail.WithBaseURL(srv.URL))
	record(t, client, "/redirect/3")

	if got := testutil.ToFloat64(c.HopsTotal.WithLabelValues("GET", "302")); got != 2 {
		t.Fatalf("expected 2 redirect hops, got %v", got)
	}
	if got := testutil.ToFloat64(c.HopsTotal.WithLabelValues("GET", "200")); got != 1 {
		t.Fatalf("expected 1 terminal hop, got %v", got)
	}
	// One logical call regardless of hops.
	if got := testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "200")); got != 1 {
		t.Fatalf("expected 1 logical call, got %v", got)
	}
	if got := testutil.ToFloat64(c.HopsInFlight); got != 0 {
		t.Fatalf("expected in-flight gauge drained, got %v", got)
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := NewCollector()
	client := instrumentedClient(t, c, trail.WithBaseURL(srv.URL))
	record(t, client, "/get")

	msrv := httptest.NewServer(c.Handler())
	t.Cleanup(msrv.Close)

	resp, err := http.Get(msrv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	for _, want := range []string{
		"httptrail_requests_total",
		"httptrail_request_duration_seconds",
		"httptrail_hops_total",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}
