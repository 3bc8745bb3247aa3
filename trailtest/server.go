// Package trailtest provides an in-process HTTP server with httpbin-style
// endpoints for exercising capture clients: redirect chains of a chosen
// length, arbitrary status codes, delays and bodies with or without a
// declared length.
package trailtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"
)

// Server is an httptest.Server preloaded with the trailtest handler.
type Server struct {
	*httptest.Server
}

// NewServer starts a Server. The caller must Close it.
func NewServer() *Server {
	return &Server{Server: httptest.NewServer(Handler())}
}

// Path joins the server base URL with a path like "/redirect/3".
func (s *Server) Path(p string) string { return s.URL + p }

// Handler returns the route table:
//
//	GET /get                     url, args and headers echoed as JSON
//	    /echo                    request body echoed verbatim
//	    /status/{code}           respond with the given status
//	GET /redirect/{n}            302 chain counting down; n==1 ends with 200
//	GET /absolute-redirect/{n}   like /redirect with an absolute Location
//	GET /bytes/{n}               n deterministic bytes with Content-Length
//	GET /stream/{n}              n bytes flushed early, so no Content-Length
//	GET /delay/{ms}              200 after sleeping the given milliseconds
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /get", handleGet)
	mux.HandleFunc("/echo", handleEcho)
	mux.HandleFunc("/status/{code}", handleStatus)
	mux.HandleFunc("GET /redirect/{n}", handleRedirect(false))
	mux.HandleFunc("GET /absolute-redirect/{n}", handleRedirect(true))
	mux.HandleFunc("GET /bytes/{n}", handleBytes)
	mux.HandleFunc("GET /stream/{n}", handleStream)
	mux.HandleFunc("GET /delay/{ms}", handleDelay)
	return mux
}

func handleGet(w http.ResponseWriter, r *http.Request) {
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"url":     "http://" + r.Host + r.URL.RequestURI(),
		"args":    r.URL.Query(),
		"headers": headers,
		"origin":  r.RemoteAddr,
	})
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	_, _ = io.Copy(w, r.Body)
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 200 || code > 599 {
		http.Error(w, "bad status code", http.StatusBadRequest)
		return
	}
	if code >= 300 && code < 400 && code != 304 {
		w.Header().Set("Location", "/get")
	}
	w.WriteHeader(code)
	if code != 204 && code != 304 {
		fmt.Fprint(w, http.StatusText(code))
	}
}

// handleRedirect serves a countdown chain: /redirect/3 hops through
// /redirect/2 and /redirect/1, which terminates with 200. A client that
// follows the whole chain performs exactly n requests.
func handleRedirect(absolute bool) http.HandlerFunc {
	prefix := "/redirect/"
	if absolute {
		prefix = "/absolute-redirect/"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(r.PathValue("n"))
		if err != nil || n < 1 {
			http.Error(w, "bad hop count", http.StatusBadRequest)
			return
		}
		if n == 1 {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprint(w, "reached the end of the chain")
			return
		}
		next := fmt.Sprintf("%s%d", prefix, n-1)
		if absolute {
			next = "http://" + r.Host + next
		}
		http.Redirect(w, r, next, http.StatusFound)
	}
}

func handleBytes(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 {
		http.Error(w, "bad byte count", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(n))
	_, _ = w.Write(pattern(n))
}

// handleStream flushes the header before the body goes out, which switches
// the response to chunked encoding and drops the Content-Length header.
func handleStream(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 {
		http.Error(w, "bad byte count", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	_, _ = w.Write(pattern(n))
}

func handleDelay(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.Atoi(r.PathValue("ms"))
	if err != nil || ms < 0 {
		http.Error(w, "bad delay", http.StatusBadRequest)
		return
	}
	if ms > 10000 {
		ms = 10000
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-r.Context().Done():
		return
	}
	fmt.Fprintf(w, "slept %dms", ms)
}

// pattern returns n deterministic bytes cycling through the alphabet.
func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}
