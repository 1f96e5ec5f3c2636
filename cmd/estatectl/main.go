// Command estatectl is the operator CLI for EstateDesk: it applies schema
// migrations, previews lead scores and prints dashboard series.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/estatedesk/internal/config"
	"github.com/stwalsh4118/estatedesk/internal/database"
	"github.com/stwalsh4118/estatedesk/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "estatectl",
		Short:         "Operate the EstateDesk back-office",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newScoreCmd(),
		newPipelineCmd(),
	)
	return root
}

// connect loads configuration and opens the database. Logs go to stderr so
// command output stays pipeable.
func connect(cmd *cobra.Command) (*config.Config, *database.Database, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewWithWriter(cfg.Server.Env, cmd.ErrOrStderr())

	db, err := database.NewPostgresPool(cmd.Context(), cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to %s:%s/%s: %w",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, err)
	}
	return cfg, db, log, nil
}
