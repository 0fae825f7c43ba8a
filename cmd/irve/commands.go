package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"irve/internal/config"
	"irve/internal/crawler"
	"irve/internal/pipeline"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch the catalog, download CSV resources and validate them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}

			_, err = runner.Run(cmd.Context())

			return err
		},
	}
}

func newDownloadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Fetch the catalog and download CSV resources without validating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, err := setup(cmd, opts)
			if err != nil {
				return err
			}

			_, err = runner.Download(cmd.Context())

			return err
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var date, dir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the files of an existing day directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}

			dayDir := dir
			if dayDir == "" {
				dayDir = runner.DayDir()

				if date != "" {
					day, err := time.Parse("20060102", date)
					if err != nil {
						return fmt.Errorf("invalid --date %q, want YYYYMMDD: %w", date, err)
					}

					dayDir = filepath.Join(filepath.Dir(dayDir), day.Format("20060102"))
				}
			}

			log.Info(fmt.Sprintf("🔍 validating %s", dayDir))

			summary := &pipeline.RunSummary{DayDir: dayDir, StartedAt: time.Now()}

			summary.Files, err = runner.Validate(cmd.Context(), dayDir)
			if err != nil {
				return err
			}

			runner.Finish(cmd.Context(), summary)

			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day directory to validate, as YYYYMMDD (default: today)")
	cmd.Flags().StringVar(&dir, "dir", "", "Explicit directory to validate, overrides --date")

	return cmd
}

func newDeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive URL...",
		Short: "Print the filename and extension derived from resource URLs",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()

			for _, rawURL := range args {
				filename, ext := crawler.DeriveFilename(rawURL)

				verdict := "skip"
				if crawler.IsCSV(ext) {
					verdict = "download"
				}

				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", verdict, filename, ext, rawURL)
			}
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			workingDir, err := config.ResolveWorkingDir()
			if err != nil {
				return err
			}

			data, err := cfg.Redacted().YAML()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "# data root: %s\n%s", config.DataRoot(workingDir), data)

			return nil
		},
	}
}
