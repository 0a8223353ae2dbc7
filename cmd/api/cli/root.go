// Package cli defines the attendance server commands.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rusl-cricket/attendance/internal/app"
	"github.com/rusl-cricket/attendance/internal/config"
	"github.com/rusl-cricket/attendance/internal/logging"
	"github.com/rusl-cricket/attendance/internal/seed"
)

var (
	cfg config.App
	log *slog.Logger
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg = config.Load()

	rootCmd := &cobra.Command{
		Use:   "attendance",
		Short: "Cricket practice attendance server",
		Long: `attendance records practice sessions and presence marks for the
university cricket squad and serves dashboard and student reports.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log = logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(log)
			return cfg.Validate()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "Store backend: postgres, sqlite, memory (env: STORE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres DSN (env: DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite file (env: SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (env: LOG_LEVEL)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSeedCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	var withSeed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ledger, err := app.OpenLedger(ctx, cfg, log)
			if err != nil {
				return err
			}
			if withSeed {
				if _, err := seed.Run(ctx, ledger, seed.DefaultOptions(), log); err != nil {
					_ = ledger.Close()
					return err
				}
			}
			a := app.New(cfg, ledger, log)
			defer a.Close()
			return a.Run(ctx)
		},
	}
	cmd.Flags().IntVar(&cfg.RateLimitPerMin, "rate-limit", cfg.RateLimitPerMin, "Requests per minute per client (env: RATE_LIMIT_PER_MIN)")
	cmd.Flags().StringVar(&cfg.HTTPPort, "port", cfg.HTTPPort, "HTTP port (env: HTTP_PORT)")
	cmd.Flags().BoolVar(&withSeed, "seed", cfg.Env == "dev", "Seed the default admin and sample roster on start")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := app.OpenLedger(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return ledger.Close()
		},
	}
}

func newSeedCmd() *cobra.Command {
	opts := seed.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the default admin account and sample students",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := app.OpenLedger(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer ledger.Close()
			res, err := seed.Run(cmd.Context(), ledger, opts, log)
			if err != nil {
				return err
			}
			cmd.Printf("admin created: %v, students created: %d\n", res.AdminCreated, res.StudentsCreated)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.AdminPassword, "admin-password", opts.AdminPassword, "Password for "+seed.AdminEmail)
	cmd.Flags().StringVar(&opts.StudentPassword, "student-password", opts.StudentPassword, "Password for "+seed.StudentEmail)
	return cmd
}

// Execute runs the root command with a background context.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}
