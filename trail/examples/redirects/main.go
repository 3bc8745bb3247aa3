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

	client, err := trail.New(trail.WithBaseURL(srv.URL))
	if err != nil {
		panic(err)
	}

	resp, err := client.Record(context.Background(), http.MethodGet, "/redirect/3")
	if err != nil {
		panic(err)
	}
	_ = resp.Body.Close()

	// Every hop of the chain was recorded, not just the final response.
	s := client.Summary()
	for i := 0; i < s.Len(); i++ {
		fmt.Printf("hop %d: %s %s -> %d %s\n",
			i, s.Methods[i], s.Targets[i], s.StatusCodes[i], s.Reasons[i])
	}

	// The connection diagnostics are keyed by the chain's first hop.
	if stream, ok := client.DebugFor(srv.URL + "/redirect/3"); ok {
		fmt.Println("--- debug stream ---")
		fmt.Print(stream)
	}
}
