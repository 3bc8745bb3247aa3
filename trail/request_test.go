package trail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lgc202/httptrail/trailtest"
)

func TestResolveURLBaseAndQuery(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := newTestClient(t, WithBaseURL(srv.URL))
	req, err := c.NewRequest(context.Background(), http.MethodGet, "/get?x=1",
		WithQueryParam("y", "2"),
	)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	var body struct {
		Args map[string][]string `json:"args"`
	}
	if err := DecodeJSON(resp, &body); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got := body.Args["x"]; len(got) != 1 || got[0] != "1" {
		t.Fatalf("expected x=1 preserved, got %v", body.Args)
	}
	if got := body.Args["y"]; len(got) != 1 || got[0] != "2" {
		t.Fatalf("expected y=2 merged, got %v", body.Args)
	}
}

func TestResolveURLBaseWithPathPrefix(t *testing.T) {
	var gotPath string
	c := newTestClient(t,
		WithBaseURL("http://api.test/api/v1"),
		WithTransport(RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			gotPath = req.URL.Path
			return &http.Response{
				StatusCode: http.StatusOK,
				Status:     "200 OK",
				Proto:      "HTTP/1.1",
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader("ok")),
			}, nil
		})),
	)

	resp, err := c.Record(context.Background(), http.MethodGet, "/users")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = resp.Body.Close()

	if gotPath != "/api/v1/users" {
		t.Fatalf("expected path under the base prefix, got %q", gotPath)
	}
}

func TestRelativeURLWithoutBaseFails(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.NewRequest(context.Background(), http.MethodGet, "/users"); err == nil {
		t.Fatalf("expected an error for a relative url without base")
	}
}

func TestDefaultHeadersAndOverride(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := newTestClient(t,
		WithBaseURL(srv.URL),
		WithDefaultHeader("X-Team", "platform"),
		WithDefaultHeader("X-Env", "staging"),
		WithUserAgent("httptrail-test/1.0"),
	)
	resp, err := c.Record(context.Background(), http.MethodGet, "/get",
		WithHeader("X-Env", "prod"),
	)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = resp.Body.Close()

	tx, _ := c.History().Last()
	if got := tx.Request.Headers.Get("X-Team"); got != "platform" {
		t.Fatalf("expected default header, got %q", got)
	}
	if got := tx.Request.Headers.Get("X-Env"); got != "prod" {
		t.Fatalf("expected caller header to win, got %q", got)
	}
	if got := tx.Request.Headers.Get("User-Agent"); got != "httptrail-test/1.0" {
		t.Fatalf("expected user agent, got %q", got)
	}
}

func TestRequestIDInjected(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := newTestClient(t, WithBaseURL(srv.URL))
	record(t, c, "/get")

	tx, _ := c.History().Last()
	id := tx.Request.Headers.Get("X-Request-ID")
	if id == "" {
		t.Fatalf("expected an injected request id")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected a uuid, got %q: %v", id, err)
	}

	// A caller-provided id is never overwritten.
	resp, err := c.Record(context.Background(), http.MethodGet, "/get",
		WithHeader("X-Request-ID", "fixed-id"),
	)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = resp.Body.Close()
	tx, _ = c.History().Last()
	if got := tx.Request.Headers.Get("X-Request-ID"); got != "fixed-id" {
		t.Fatalf("expected caller id preserved, got %q", got)
	}
}

func TestRequestFactoryOverride(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	factory := func(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Built-By", "custom-factory")
		return req, nil
	}

	c := newTestClient(t, WithBaseURL(srv.URL), WithRequestFactory(factory))
	record(t, c, "/get")

	tx, _ := c.History().Last()
	if got := tx.Request.Headers.Get("X-Built-By"); got != "custom-factory" {
		t.Fatalf("expected factory-built request, got %q", got)
	}
}

func TestNewJSONRequestRoundTrip(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := newTestClient(t, WithBaseURL(srv.URL))
	in := map[string]string{"name": "trail", "mode": "capture"}
	out, resp, err := RecordJSON[map[string]string](c, context.Background(), http.MethodPost, "/echo", in)
	if err != nil {
		t.Fatalf("RecordJSON: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["name"] != "trail" || out["mode"] != "capture" {
		t.Fatalf("unexpected echo payload: %v", out)
	}

	tx, _ := c.History().Last()
	if got := tx.Request.Headers.Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type, got %q", got)
	}
	if got := tx.Request.Headers.Get("Accept"); got != "application/json" {
		t.Fatalf("expected accept header, got %q", got)
	}
	var sent map[string]string
	if err := json.Unmarshal(tx.Request.Body, &sent); err != nil {
		t.Fatalf("captured body is not json: %v", err)
	}
	if sent["name"] != "trail" {
		t.Fatalf("unexpected captured payload: %v", sent)
	}
}

func TestJSONMarshalErrorSurfaces(t *testing.T) {
	c := newTestClient(t, WithBaseURL("http://api.test"))
	_, err := c.NewRequest(context.Background(), http.MethodPost, "/x",
		WithJSON(func() {}),
	)
	if err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestBearerAndBasicAuth(t *testing.T) {
	srv := trailtest.NewServer()
	t.Cleanup(srv.Close)

	c := newTestClient(t, WithBaseURL(srv.URL))
	resp, err := c.Record(context.Background(), http.MethodGet, "/get",
		WithBearerToken("tok-123"),
	)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = resp.Body.Close()
	tx, _ := c.History().Last()
	if got := tx.Request.Headers.Get("Authorization"); got != "Bearer tok-123" {
		t.Fatalf("expected bearer token, got %q", got)
	}

	resp, err = c.Record(context.Background(), http.MethodGet, "/get",
		WithBasicAuth("user", "pass"),
	)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = resp.Body.Close()
	tx, _ = c.History().Last()
	if got := tx.Request.Headers.Get("Authorization"); !strings.HasPrefix(got, "Basic ") {
		t.Fatalf("expected basic auth, got %q", got)
	}
}
