// Command httptrail issues HTTP requests through the capture client and
// prints what actually went over the wire: every hop of the redirect chain,
// the condensed summary table and the per-origin debug telemetry.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lgc202/httptrail/report"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile string
	logLevel   string
	jsonOut    bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:          "httptrail",
		Short:        "HTTP client that records every hop it makes",
		Long:         "httptrail dispatches requests through a capturing client wrapper.\nEach exchange of a call, intermediate redirect hops included, is recorded\nand printed afterwards, together with connection-level diagnostics.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "settings file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level (debug, info, warn, error, off)")
	cmd.PersistentFlags().BoolVar(&flags.jsonOut, "json", false, "print the capture as JSON instead of text")
	cmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newRequestCmd(flags))
	cmd.AddCommand(newSelftestCmd(flags))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (f *rootFlags) logger() zerolog.Logger {
	if f.logLevel == "off" {
		return zerolog.Nop()
	}
	lvl, err := zerolog.ParseLevel(f.logLevel)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: f.noColor}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func (f *rootFlags) renderer() *report.Renderer {
	return report.New(report.WithColor(!f.noColor))
}
