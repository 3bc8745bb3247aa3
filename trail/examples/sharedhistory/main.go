package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lgc202/httptrail/trail"
	"github.com/lgc202/httptrail/trailtest"
)

func main() {
	srv := trailtest.NewServer()
	defer srv.Close()

	// An external holder and the client share one history handle.
	shared := trail.NewHistory()
	client, err := trail.New(
		trail.WithBaseURL(srv.URL),
		trail.WithHistory(shared),
	)
	if err != nil {
		panic(err)
	}

	for _, path := range []string{"/get", "/status/503", "/bytes/52"} {
		resp, err := client.Record(context.Background(), http.MethodGet, path)
		if err != nil {
			panic(err)
		}
		_ = resp.Body.Close()
	}
	fmt.Println("entries seen through the shared handle:", shared.Len())

	// Reset truncates in place: the same handle, observed empty everywhere.
	if err := client.Reset(); err != nil {
		panic(err)
	}
	fmt.Println("entries after reset:", shared.Len())
	fmt.Println("same handle:", client.History() == shared)
}
