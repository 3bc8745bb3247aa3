package trailtest

import (
	"io"
	"net/http"
	"strconv"
	"testing"
)

func TestRedirectCountdown(t *testing.T) {
	srv := NewServer()
	t.Cleanup(srv.Close)

	var hops []string
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			hops = append(hops, req.URL.Path)
			return nil
		},
	}
	resp, err := client.Get(srv.Path("/redirect/3"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	// Two follow-ups after the initial request: three requests total.
	if len(hops) != 2 {
		t.Fatalf("expected 2 redirects, got %d (%v)", len(hops), hops)
	}
	if hops[0] != "/redirect/2" || hops[1] != "/redirect/1" {
		t.Fatalf("unexpected chain: %v", hops)
	}
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "reached the end of the chain" {
		t.Fatalf("unexpected terminal body: %q", b)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := NewServer()
	t.Cleanup(srv.Close)

	for _, code := range []int{200, 403, 500, 503} {
		resp, err := http.Get(srv.Path("/status/" + strconv.Itoa(code)))
		if err != nil {
			t.Fatalf("Get %d: %v", code, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != code {
			t.Fatalf("expected %d, got %d", code, resp.StatusCode)
		}
	}
}

func TestBytesDeclaresLengthStreamDoesNot(t *testing.T) {
	srv := NewServer()
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.Path("/bytes/52"))
	if err != nil {
		t.Fatalf("Get bytes: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if got := resp.Header.Get("Content-Length"); got != "52" {
		t.Fatalf("expected Content-Length 52, got %q", got)
	}
	if len(b) != 52 {
		t.Fatalf("expected 52 bytes, got %d", len(b))
	}

	resp, err = http.Get(srv.Path("/stream/52"))
	if err != nil {
		t.Fatalf("Get stream: %v", err)
	}
	b, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if got := resp.Header.Get("Content-Length"); got != "" {
		t.Fatalf("expected no Content-Length, got %q", got)
	}
	if len(b) != 52 {
		t.Fatalf("expected 52 bytes, got %d", len(b))
	}
}

func TestEchoRoundTrips(t *testing.T) {
	srv := NewServer()
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.Path("/echo"), "text/plain", nil)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
