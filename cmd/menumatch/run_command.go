package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"menumatch/internal/analyzer"
	"menumatch/internal/batch"
	"menumatch/internal/catalog"
	"menumatch/internal/config"
	"menumatch/internal/logging"
	"menumatch/internal/matching"
	"menumatch/internal/store"
)

type runFlags struct {
	imagesDir          string
	resultsDir         string
	catalogFile        string
	imagePattern       string
	allowSingleService bool
	sample             int
	workers            int
	noCopy             bool
	jsonOutput         bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze a directory of images and match them to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, flags)
			logger, err := ctx.loggerFor(cmd)
			if err != nil {
				return err
			}
			runCtx := cmd.Context()

			entries, err := catalog.Load(cfg.Paths.CatalogFile)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			logger.Info("catalog loaded",
				logging.String("catalog_file", cfg.Paths.CatalogFile),
				logging.Int("entries", len(entries)),
			)

			describerClient, taggerClient := ctx.clients(cfg)
			var describer analyzer.CheckedDescriber
			if describerClient != nil {
				describer = describerClient
			}
			var tagger analyzer.CheckedTagger
			if taggerClient != nil {
				tagger = taggerClient
			}
			sources, err := analyzer.SelectSources(runCtx, describer, tagger, cfg.Batch.AllowSingleService, logger)
			if err != nil {
				return err
			}

			engine := matching.NewEngine(entries, logger)
			an, err := analyzer.New(engine, sources.Describer, sources.Tagger, logger)
			if err != nil {
				return err
			}

			opts := []batch.Option{
				batch.WithWorkers(cfg.Batch.Workers),
				batch.WithCopyMatched(cfg.Batch.CopyMatched),
				batch.WithProgress(func(total int) batch.Progress {
					return batch.NewProgress(total, cmd.ErrOrStderr(), logger)
				}),
			}
			if cfg.Ledger.Enabled {
				st, err := store.Open(runCtx, cfg.Ledger.Path)
				if err != nil {
					return fmt.Errorf("open ledger: %w", err)
				}
				defer st.Close()
				opts = append(opts, batch.WithLedger(st))
			}

			runner := batch.NewRunner(an, logger, opts...)
			report, runErr := runner.Run(runCtx, batch.Plan{
				ImagesDir:   cfg.Paths.ImagesDir,
				Pattern:     cfg.Batch.ImagePattern,
				Sample:      flags.sample,
				ResultsBase: cfg.Paths.ResultsDir,
				CatalogFile: cfg.Paths.CatalogFile,
				CatalogSize: len(entries),
				Mode:        string(an.Mode()),
			})
			if report != nil {
				if flags.jsonOutput {
					if err := writeJSON(cmd, runReportJSON(report, string(an.Mode()))); err != nil {
						return err
					}
				} else {
					printRunSummary(cmd.OutOrStdout(), report)
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&flags.imagesDir, "images-dir", "", "Directory containing images (overrides paths.images_dir)")
	cmd.Flags().StringVar(&flags.resultsDir, "results-dir", "", "Base directory for run results (overrides paths.results_dir)")
	cmd.Flags().StringVar(&flags.catalogFile, "catalog", "", "Catalog file with one description per line (overrides paths.catalog_file)")
	cmd.Flags().StringVar(&flags.imagePattern, "image-pattern", "", "Glob for image file names (overrides batch.image_pattern)")
	cmd.Flags().BoolVar(&flags.allowSingleService, "allow-single-service", false, "Continue when only one analysis service is available")
	cmd.Flags().IntVar(&flags.sample, "sample", 0, "Process N evenly spaced images instead of all")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Concurrent images (overrides batch.workers)")
	cmd.Flags().BoolVar(&flags.noCopy, "no-copy", false, "Do not copy images into the results directory")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) {
	if v := strings.TrimSpace(flags.imagesDir); v != "" {
		cfg.Paths.ImagesDir = expandOrKeep(v)
	}
	if v := strings.TrimSpace(flags.resultsDir); v != "" {
		cfg.Paths.ResultsDir = expandOrKeep(v)
	}
	if v := strings.TrimSpace(flags.catalogFile); v != "" {
		cfg.Paths.CatalogFile = expandOrKeep(v)
	}
	if v := strings.TrimSpace(flags.imagePattern); v != "" {
		cfg.Batch.ImagePattern = v
	}
	if cmd.Flags().Changed("allow-single-service") {
		cfg.Batch.AllowSingleService = flags.allowSingleService
	}
	if flags.workers > 0 {
		cfg.Batch.Workers = flags.workers
	}
	if flags.noCopy {
		cfg.Batch.CopyMatched = false
	}
}

func expandOrKeep(path string) string {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func printRunSummary(out io.Writer, report *batch.Report) {
	s := report.Summary
	rows := [][]string{
		{"Total images", strconv.Itoa(s.Total)},
		{"Matched", strconv.Itoa(s.Matched)},
		{"Unmatched", strconv.Itoa(s.Unmatched)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Match rate", fmt.Sprintf("%.1f%%", s.MatchRate)},
	}
	if report.Skipped > 0 {
		rows = append(rows, []string{"Not processed", strconv.Itoa(report.Skipped)})
	}
	printf(out, "Results saved to: %s\n", report.ResultsDir)
	printf(out, "Run ID: %s\n", report.RunID)
	printf(out, "%s\n", renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
}

type runJSON struct {
	RunID       string        `json:"run_id"`
	Mode        string        `json:"mode"`
	ResultsDir  string        `json:"results_dir"`
	ResultsFile string        `json:"results_file"`
	Cancelled   bool          `json:"cancelled"`
	Skipped     int           `json:"skipped"`
	Summary     batch.Summary `json:"summary"`
}

func runReportJSON(report *batch.Report, mode string) runJSON {
	return runJSON{
		RunID:       report.RunID,
		Mode:        mode,
		ResultsDir:  report.ResultsDir,
		ResultsFile: report.ResultsFile,
		Cancelled:   report.Cancelled,
		Skipped:     report.Skipped,
		Summary:     report.Summary,
	}
}
