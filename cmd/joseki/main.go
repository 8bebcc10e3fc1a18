package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/VacantAardvark/joseki/applib"
	"github.com/VacantAardvark/joseki/applib/config"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("joseki failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "joseki",
		Short:         "Event coordination for shepherds and sheep",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("JOSEKI_CONFIG"), "Path to a .yaml, .toml or .json config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")

	root.AddCommand(
		newServeCmd(opts),
		newSyncCmd(opts),
		newWatchCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the joseki version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

// loadConfig resolves the configuration and configures logging from it.
func (opts *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupLogging(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(parsed)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Synchronize the schema and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			app, err := applib.Init(ctx, cfg, version)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(ctx)
		},
	}
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			db, err := applib.OpenDatabase(cfg, version)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}
