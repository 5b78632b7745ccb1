package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/inkpipe/internal/api"
	"github.com/phrazzld/inkpipe/internal/api/middleware"
	"github.com/phrazzld/inkpipe/internal/config"
	"github.com/phrazzld/inkpipe/internal/domain"
	"github.com/phrazzld/inkpipe/internal/events"
	"github.com/phrazzld/inkpipe/internal/platform/postgres"
	"github.com/spf13/cobra"
)

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one batch of jobs and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			app, err := startApplication(ctx)
			if err != nil {
				return err
			}
			defer app.db.Close()

			limit, err := batchLimit(batch, app.config.Worker.BatchLimit)
			if err != nil {
				return err
			}
			sum, err := app.runOnce(ctx, limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "maximum jobs to process (default worker.batch_limit)")
	return cmd
}

// batchLimit resolves the --batch flag against the configured default.
func batchLimit(flag, def int) (int, error) {
	switch {
	case flag == 0:
		return def, nil
	case flag < 0:
		return 0, fmt.Errorf("--batch must be positive, got %d", flag)
	case flag > api.MaxRunLimit:
		return api.MaxRunLimit, nil
	default:
		return flag, nil
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|reset|status|version]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			_, log, db, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			return postgres.Migrate(ctx, db, args[0], log)
		},
	}
}

func enqueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Emit an application event that enqueues enrichment jobs",
	}

	var owner, note string
	noteCmd := &cobra.Command{
		Use:   "note",
		Short: "Enqueue enrichment for a saved note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, err := uuid.Parse(owner)
			if err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}
			noteID, err := uuid.Parse(note)
			if err != nil {
				return fmt.Errorf("invalid --note: %w", err)
			}
			event, err := events.NewNoteSavedEvent(ownerID, noteID)
			if err != nil {
				return err
			}
			return emit(cmd.Context(), event)
		},
	}
	noteCmd.Flags().StringVar(&owner, "owner", "", "owner id")
	noteCmd.Flags().StringVar(&note, "note", "", "note id")
	_ = noteCmd.MarkFlagRequired("owner")
	_ = noteCmd.MarkFlagRequired("note")

	var packOwner, start, end, mode string
	packCmd := &cobra.Command{
		Use:   "pack",
		Short: "Enqueue generation of a digest pack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			event, err := packEvent(packOwner, start, end, mode)
			if err != nil {
				return err
			}
			return emit(cmd.Context(), event)
		},
	}
	packCmd.Flags().StringVar(&packOwner, "owner", "", "owner id")
	packCmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	packCmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	packCmd.Flags().StringVar(&mode, "mode", string(domain.PackModeSkip), "skip or overwrite")
	for _, name := range []string{"owner", "start", "end"} {
		_ = packCmd.MarkFlagRequired(name)
	}

	cmd.AddCommand(noteCmd, packCmd)
	return cmd
}

// packEvent validates the flags of `enqueue pack` and builds its event.
func packEvent(owner, start, end, mode string) (*events.Event, error) {
	ownerID, err := uuid.Parse(owner)
	if err != nil {
		return nil, fmt.Errorf("invalid --owner: %w", err)
	}
	if _, err := domain.NewDateRange(start, end); err != nil {
		return nil, err
	}
	if !domain.PackMode(mode).Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPackMode, mode)
	}
	return events.NewEvent(events.TypePackRequested, ownerID, events.PackRequestedEvent{
		RangeStart: start,
		RangeEnd:   end,
		Mode:       mode,
	})
}

// emit delivers event to the producer. Enqueueing never executes a job, so
// the application is wired without AI or blob collaborators.
func emit(ctx context.Context, event *events.Event) error {
	cfg, log, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	app, err := newApplication(cfg, log, db, collaborators{})
	if err != nil {
		return err
	}
	return app.emitter.EmitEvent(ctx, event)
}

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a service token for POST /internal/jobs/run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			token, err := middleware.NewServiceAuth(cfg.Trigger.Secret).IssueToken(subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "scheduler", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}
