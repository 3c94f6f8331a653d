// ====================================
// File: cmd/curvectl/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "curvectl",
		Short:         "Price, quote and simulate bonding curve token launches",
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.opts.configPath, "config", "c", "", "config file (yaml, json or toml)")
	flags.StringVarP(&a.opts.launchPath, "launch", "l", "", "launch definition file")
	flags.BoolVar(&a.opts.debug, "debug", false, "log every calculation at debug level")
	flags.BoolVar(&a.opts.json, "json", false, "print results as JSON")
	flags.BoolVar(&a.opts.raw, "raw", false, "amounts are base units instead of decimal token/SOL values")

	rootCmd.AddCommand(
		newQuoteCmd(a),
		newGraduationCmd(a),
		newSeriesCmd(a),
		newSimulateCmd(a),
	)
	return rootCmd
}
