package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lgc202/httptrail/config"
	"github.com/lgc202/httptrail/trail"
)

type requestFlags struct {
	method       string
	headers      []string
	data         string
	timeout      time.Duration
	maxRedirects int
	noFollow     bool
	proxy        string
	userAgent    string
}

func newRequestCmd(root *rootFlags) *cobra.Command {
	rf := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request URL",
		Short: "Dispatch one request and print the captured chain",
		Long:  "Dispatch a single request, following redirects, and print one block per\nhop along with the summary table and connection diagnostics. The URL may\nbe relative when the settings file provides a base URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, root, rf, args[0])
		},
	}

	cmd.Flags().StringVarP(&rf.method, "method", "X", http.MethodGet, "request method")
	cmd.Flags().StringArrayVarP(&rf.headers, "header", "H", nil, `header line, "Name: value" (repeatable)`)
	cmd.Flags().StringVarP(&rf.data, "data", "d", "", "request body")
	cmd.Flags().DurationVar(&rf.timeout, "timeout", 0, "overall call timeout")
	cmd.Flags().IntVar(&rf.maxRedirects, "max-redirects", 0, "redirect hop cap")
	cmd.Flags().BoolVar(&rf.noFollow, "no-follow", false, "return the first response without following redirects")
	cmd.Flags().StringVar(&rf.proxy, "proxy", "", "proxy URL (http, https or socks5)")
	cmd.Flags().StringVarP(&rf.userAgent, "user-agent", "A", "", "User-Agent header value")
	return cmd
}

func runRequest(cmd *cobra.Command, root *rootFlags, rf *requestFlags, target string) error {
	client, err := buildClient(root, rf)
	if err != nil {
		return err
	}

	reqOpts, err := requestOptions(rf)
	if err != nil {
		return err
	}

	resp, err := client.Record(cmd.Context(), strings.ToUpper(rf.method), target, reqOpts...)
	if err != nil {
		return err
	}
	// The capture already holds the body; the returned copy is in memory.
	resp.Body.Close()

	return printCapture(cmd.OutOrStdout(), root, client)
}

func buildClient(root *rootFlags, rf *requestFlags) (*trail.Client, error) {
	loader, err := config.Load(root.configFile, config.WithEnv("TRAIL"))
	if err != nil {
		return nil, err
	}
	opts, err := loader.Settings().ClientOptions()
	if err != nil {
		return nil, err
	}

	// Flags win over the settings file.
	opts = append(opts, trail.WithLogger(root.logger()))
	if rf.timeout > 0 {
		opts = append(opts, trail.WithTimeout(rf.timeout))
	}
	if rf.noFollow {
		opts = append(opts, trail.WithoutRedirects())
	} else if rf.maxRedirects > 0 {
		opts = append(opts, trail.WithMaxRedirects(rf.maxRedirects))
	}
	if rf.proxy != "" {
		opts = append(opts, trail.WithProxyURL(rf.proxy))
	}
	if rf.userAgent != "" {
		opts = append(opts, trail.WithUserAgent(rf.userAgent))
	}
	return trail.New(opts...)
}

func requestOptions(rf *requestFlags) ([]trail.RequestOption, error) {
	opts := make([]trail.RequestOption, 0, len(rf.headers)+1)
	for _, line := range rf.headers {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("malformed header %q, want \"Name: value\"", line)
		}
		opts = append(opts, trail.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	if rf.data != "" {
		opts = append(opts, trail.WithBodyBytes([]byte(rf.data)))
	}
	return opts, nil
}

func printCapture(out io.Writer, root *rootFlags, client *trail.Client) error {
	if root.jsonOut {
		payload := struct {
			Transactions []trail.TransactionView `json:"transactions"`
			Summary      trail.Summary           `json:"summary"`
			Debug        map[string]string       `json:"debug,omitempty"`
		}{client.Transactions(), client.Summary(), client.DebugLog()}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	r := root.renderer()
	fmt.Fprint(out, r.RenderAll(client.Transactions()))
	fmt.Fprintln(out)
	fmt.Fprint(out, r.RenderSummary(client.Summary()))
	if debug := client.DebugLog(); len(debug) > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, r.RenderDebug(debug))
	}
	return nil
}
