package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lgc202/httptrail/config"
	"github.com/lgc202/httptrail/trail"
)

func main() {
	loader, err := config.Load("./trail.yaml", config.WithEnv("TRAIL"))
	if err != nil {
		log.Fatal(err)
	}

	loader.OnChange(func(old, new config.Settings) {
		log.Printf("settings changed: base_url %q -> %q", old.BaseURL, new.BaseURL)
	})

	opts, err := loader.Settings().ClientOptions()
	if err != nil {
		log.Fatal(err)
	}
	client, err := trail.New(opts...)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := client.Record(context.Background(), http.MethodGet, "/get")
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	fmt.Println("recorded transactions:", client.History().Len())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
