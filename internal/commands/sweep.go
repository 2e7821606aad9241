package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SscSPs/txn_ingest/internal/core/services"
	"github.com/SscSPs/txn_ingest/internal/platform/config"
	"github.com/SscSPs/txn_ingest/internal/repositories/database/pgsql"
	"github.com/SscSPs/txn_ingest/pkg/database"
)

func newSweepOrphansCommand() *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "sweep-orphans",
		Short: "Delete committed-hash rows whose ledger entry never landed",
		Long: "Removes committed-hash index rows older than --grace that have no\n" +
			"ledger journal. Reads PGSQL_URL like the server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if !cmd.Flags().Changed("grace") {
				grace = cfg.OrphanGrace
			}
			if grace <= 0 {
				return fmt.Errorf("--grace must be positive, got %s", grace)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, true)
			if err != nil {
				return err
			}
			defer pool.Close()

			repos := pgsql.NewRepositoryProvider(pool)
			deleted, err := services.NewMaintenanceService(repos.CommittedRepo).SweepOrphans(ctx, grace)
			if err != nil {
				return fmt.Errorf("sweeping orphans: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d orphaned hash rows older than %s\n", deleted, grace)
			return nil
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", time.Hour, "minimum age of an orphan row (defaults to ORPHAN_GRACE)")

	return cmd
}
