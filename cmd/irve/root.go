package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"irve/internal/config"
	"irve/internal/crawler"
	"irve/internal/logger"
	"irve/internal/metrics"
	"irve/internal/models"
	"irve/internal/pipeline"
)

type rootOptions struct {
	configPath  string
	envFile     string
	logLevel    string
	catalogFile string
	showErrors  int
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:          "irve",
		Short:        "Harvest and validate IRVE charging-station CSV files",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.ini", "Config file (.ini or .yaml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before reading WORKING_DIR")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.catalogFile, "catalog-file", "", "Read the catalog listing from a saved JSON file")
	cmd.PersistentFlags().IntVar(&opts.showErrors, "show-errors", 0, "Print up to N schema errors under each failing file")

	cmd.AddCommand(
		newRunCmd(&opts),
		newDownloadCmd(&opts),
		newValidateCmd(&opts),
		newDeriveCmd(),
		newConfigCmd(&opts),
	)

	return cmd
}

// loadConfig reads the env file and config, aborting on missing sections.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", opts.envFile, err)
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", opts.configPath, err)
	}

	return cfg, nil
}

// setup loads the configuration and builds a runner writing to stdout.
func setup(cmd *cobra.Command, opts *rootOptions) (*pipeline.Runner, *logger.Logger, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	log := logger.NewLoggerWithWriter(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	log.Debug("config loaded", "config", cfg.String())

	workingDir, err := config.ResolveWorkingDir()
	if err != nil {
		return nil, nil, err
	}

	m := metrics.NewMetrics()
	runner := pipeline.NewRunner(cfg, config.DataRoot(workingDir), cmd.OutOrStdout(), log, m).
		WithShowErrors(opts.showErrors)

	if opts.catalogFile != "" {
		client := crawler.NewClientWithDeps(crawler.NewScraper(), cfg.Default.Domain, cfg.Default.Tag, cfg.Default.PageSize, log, m)
		path := opts.catalogFile

		runner.WithCatalog(pipeline.CatalogFunc(func(_ context.Context) ([]models.Dataset, error) {
			return client.FetchDatasetsFromFile(path)
		}))
	}

	return runner, log, nil
}
