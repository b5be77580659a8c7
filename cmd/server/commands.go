package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sellerfunnel/api/internal/app"
	"github.com/sellerfunnel/api/internal/config"
	"github.com/sellerfunnel/api/internal/importer"
	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/logging"
	"github.com/sellerfunnel/api/internal/model"
	"github.com/sellerfunnel/api/internal/service"
	"github.com/sellerfunnel/api/internal/store"
)

const cliExecutable = "sellerfunnel"

func newRootCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   cliExecutable,
		Short: "Seller Funnel bulk import and campaign server",
	}

	command.AddCommand(newServeCommand(), newImportCommand())
	command.SilenceUsage = true
	command.SilenceErrors = true
	command.SuggestionsMinimumDistance = 1

	return command
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Configure(cfg.Server.LogLevel, cfg.Server.LogFormat)
	return cfg, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and job engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps, err := app.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			return app.New(cfg, deps).Run(ctx)
		},
	}
}

func newImportCommand() *cobra.Command {
	var quiet bool

	command := &cobra.Command{
		Use:   "import <file>",
		Short: "Import clients from an .xlsx or .csv file and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			path := args[0]
			format, err := importer.DetectFormat(path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := store.Open(ctx, store.Config{
				Driver:      cfg.Store.Driver,
				DSN:         cfg.Store.DSN,
				MaxConns:    int32(cfg.Store.MaxConns),
				DialTimeout: 5 * time.Second,
			})
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			var onUpdate func(model.JobSnapshot)
			if !quiet {
				onUpdate = func(snap model.JobSnapshot) { printProgress(out, snap) }
			}

			policy := service.PoliciesFromConfig(&cfg.Jobs).Import
			tracker := jobs.NewTracker(uuid.NewString(), model.JobKindImport, onUpdate)
			runErr := jobs.Run(ctx, tracker, importer.NewSpec(s, validator.New(), format, data, policy))

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(tracker.Snapshot()); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("import %s: %w", filepath.Base(path), runErr)
			}
			return nil
		},
	}

	command.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the final result")
	return command
}

func printProgress(w io.Writer, s model.JobSnapshot) {
	fmt.Fprintf(w, "%-10s %5.1f%%  %d/%d  ok=%d errors=%d skipped=%d\n",
		s.Status, s.Progress, s.Processed, s.Total, s.Succeeded, s.Errored, s.Skipped)
}
