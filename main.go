package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/config"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/logger"
	"github.com/Jay-byte6/DemoReady-AICUPID-sub000/store"
)

const appName = "cupid"

// Actual version can be specified in build command.
var version = "unknown"

type globalFlags struct {
	configFile string
	debug      bool
	json       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           appName,
		Short:         "cupid is a matchmaking backend that ranks candidates by AI compatibility",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "a config file (default is config.yaml in ./configs or the current directory)")
	root.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "verbose/debug output")
	root.PersistentFlags().BoolVarP(&flags.json, "json", "j", false, "json format for logging")

	root.AddCommand(
		newServeCmd(flags),
		newMatchesCmd(flags),
		newMigrateCmd(flags),
		newVersionCmd(),
	)
	return root
}

// setup loads the config and builds the logger; command line flags win over
// the config file.
func setup(flags *globalFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if flags.debug {
		cfg.Logging.Level = "debug"
	}
	if flags.json {
		cfg.Logging.Format = "json"
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, log, nil
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				log.Error("starting", zap.Error(err))
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           a.routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("starting the cupid backend",
					zap.String("version", version),
					zap.String("addr", cfg.Server.Addr),
					zap.String("environment", cfg.Environment),
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newMatchesCmd(flags *globalFlags) *cobra.Command {
	var (
		userID int
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Run the matching pipeline once for a user and print the ranked list as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errors.New("--user is required")
			}
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			matches, err := a.matches.FindTopMatches(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(matches)
		},
	}
	cmd.Flags().IntVarP(&userID, "user", "u", 0, "requesting user id")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of matches (default from config)")
	return cmd
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := store.Open(cmd.Context(), cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			return store.Migrate(db, log)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", appName, version)
		},
	}
}
