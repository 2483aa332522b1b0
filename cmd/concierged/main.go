// Command concierged runs the campus concierge orchestrator: the
// workflow engine, the conversational router and the HTTP API in one
// process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campushub/concierge/config"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "concierged:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "concierged",
		Short:         "Campus concierge workflow orchestrator",
		Long:          "concierged serves multi-step campus workflows (mentor booking,\nsubmission tracking, resource discovery, approval status) over HTTP,\nrouting free-text messages to the right workflow and walking each\nowner through it one step at a time.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to config file (default: ./concierge.yaml)")
	return cmd
}
