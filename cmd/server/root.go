package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"notecards/internal/config"
	"notecards/internal/db"
	"notecards/internal/notes"
)

const version = "1.0.0"

var (
	verbose bool
	cfgFile string

	v = config.New()
)

var rootCmd = &cobra.Command{
	Use:     "notecards",
	Short:   "Note cards with typed or dictated notes",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./config.yaml)")
	rootCmd.PersistentFlags().String("store", "", "Note store: mongo or memory")
	_ = v.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	return config.Load(v)
}

// openStore returns the configured note store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notes.Store, func(), error) {
	if cfg.Store == "memory" {
		logger.Warn("using in-memory note store; notes are lost on exit")
		return notes.NewMemStore(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	logger.Info("connecting to MongoDB", "uri", cfg.Mongo.URI)
	database, err := db.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", "database", cfg.Mongo.Database)

	repo := notes.NewRepo(database)
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("failed to ensure indexes", "error", err)
	}

	closeFn := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(shutdownCtx, database); err != nil {
			logger.Error("mongo disconnect error", "error", err)
		}
	}
	return repo, closeFn, nil
}

// bindFlag ties a command flag to a config key.
func bindFlag(cmd *cobra.Command, key, flag string) {
	_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
}
