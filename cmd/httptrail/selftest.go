package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/lgc202/httptrail/metrics"
	"github.com/lgc202/httptrail/trail"
	"github.com/lgc202/httptrail/trailtest"
)

func newSelftestCmd(root *rootFlags) *cobra.Command {
	var hops int
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Exercise the capture pipeline against the bundled test server",
		Long:  "Start the bundled test server in process and drive the client through a\nredirect chain, a plain exchange and a server failure, with a metrics\ncollector attached. Prints the summary, the telemetry and the counters.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelftest(cmd, root, hops)
		},
	}
	cmd.Flags().IntVar(&hops, "hops", 3, "redirect chain length")
	return cmd
}

func runSelftest(cmd *cobra.Command, root *rootFlags, hops int) error {
	if hops < 1 {
		return fmt.Errorf("hops must be at least 1, got %d", hops)
	}

	srv := trailtest.NewServer()
	defer srv.Close()

	collector := metrics.NewCollector()
	client, err := trail.New(
		trail.WithBaseURL(srv.URL),
		trail.WithLogger(root.logger()),
	)
	if err != nil {
		return err
	}
	client.WithHooks(nil, []trail.AfterHook{collector.Hook()})
	client.WithMiddleware(collector.Middleware())

	paths := []string{
		fmt.Sprintf("/redirect/%d", hops),
		"/get",
		"/status/503",
	}
	for _, p := range paths {
		resp, err := client.Record(cmd.Context(), http.MethodGet, p)
		if err != nil {
			return fmt.Errorf("selftest %s: %w", p, err)
		}
		resp.Body.Close()
	}

	out := cmd.OutOrStdout()
	if root.jsonOut {
		return printCapture(out, root, client)
	}

	r := root.renderer()
	fmt.Fprint(out, r.RenderSummary(client.Summary()))
	fmt.Fprintln(out)
	fmt.Fprint(out, r.RenderDebug(client.DebugLog()))
	fmt.Fprintln(out)

	families, err := collector.Registry().Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
