package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/lgc202/httptrail/trail"
)

func main() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":1}`)
	}))
	defer srv.Close()

	client, err := trail.New(
		trail.WithBaseURL(srv.URL),
		trail.WithTimeout(3*time.Second),
	)
	if err != nil {
		panic(err)
	}

	resp, err := client.Record(context.Background(), http.MethodGet, "/v1/users/1")
	if err != nil {
		panic(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	fmt.Println("delivered:", string(body))

	// The exchange is queryable after the fact.
	v, ok := client.LastTransaction()
	if !ok {
		panic("nothing recorded")
	}
	fmt.Printf("recorded: %s %s -> %d %s (%d bytes, %.3fs)\n",
		v.Request.Method, v.Request.URL,
		v.Response.StatusCode, v.Response.Reason,
		v.Response.ContentLength, v.Duration)
}
