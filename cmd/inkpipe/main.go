// Command inkpipe runs the note enrichment job queue.
//
// Subcommands:
//
//	run      process one batch of jobs and exit (for cron-style schedulers)
//	serve    HTTP run trigger, health and metrics, with an optional poller
//	migrate  apply or inspect database migrations
//	enqueue  emit a note.saved or pack.requested event for an owner
//	token    issue a service token for the run trigger
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inkpipe",
		Short:         "Background enrichment for handwritten and typed notes",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(
		runCmd(),
		serveCmd(),
		migrateCmd(),
		enqueueCmd(),
		tokenCmd(),
	)
	return root
}
