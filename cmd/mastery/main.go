// Command mastery runs the mastery and recommendation engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-mastery/internal/app"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "mastery",
	Short:         "Skill mastery, spaced repetition and prerequisite-aware recommendations",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (MASTERY_* env vars override it)")
	rootCmd.AddCommand(serveCmd, sweepCmd, migrateCmd, graphCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the daily decay schedule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		migrate, _ := cmd.Flags().GetBool("migrate")
		return withApp(cmd.Context(), app.Options{WithTemporal: true, Migrate: migrate}, func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one decay sweep and print its report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		viaTemporal, _ := cmd.Flags().GetBool("temporal")
		return withApp(cmd.Context(), app.Options{WithTemporal: viaTemporal}, func(ctx context.Context, a *app.App) error {
			var (
				report services.SweepReport
				err    error
			)
			if viaTemporal {
				report, err = a.TriggerSweep(ctx)
			} else {
				var ran bool
				report, ran, err = a.SweepOnce(ctx)
				if err == nil && !ran {
					cmd.Println("another process holds the sweep lease; nothing done")
					return nil
				}
			}
			if err != nil {
				return err
			}
			cmd.Printf("scanned=%d decayed=%d skipped=%d conflicts=%d failed=%d duration=%s\n",
				report.Scanned, report.Decayed, report.Skipped, report.Conflicts, report.Failed, report.Duration)
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), app.Options{}, func(_ context.Context, a *app.App) error {
			return a.Migrate()
		})
	},
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "run migrations before serving")
	sweepCmd.Flags().Bool("temporal", false, "dispatch the sweep to the Temporal worker instead of running it here")
}

// withApp loads config, wires the app and runs fn until SIGINT or SIGTERM.
func withApp(parent context.Context, opts app.Options, fn func(ctx context.Context, a *app.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}
