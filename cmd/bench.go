package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ocrbench/internal/benchmark"
	"ocrbench/internal/config"
	"ocrbench/internal/logger"
	"ocrbench/internal/metrics"
	"ocrbench/internal/ocr"
	"ocrbench/internal/report"
	"ocrbench/internal/sheets"
)

var benchCmd = &cobra.Command{
	Use:   "bench [manifest.toml]",
	Short: "Benchmark OCR engines against ground-truth text",
	Long: `Run every selected OCR engine over every sample image, score each
transcription against its ground-truth text and report average CER, WER and
processing time per engine.

Samples come from exactly one source:
  a TOML manifest given as argument,
  --dir, pairing each image with the .txt file of the same name, or
  repeated --image/--truth flags, paired in order.

A failing engine is recorded for that sample and the run continues, unless
--fail-fast is set. Images with an alpha channel are flattened onto white
in place before any engine runs.`,
	Example: `  # Compare tesseract and ocrmypdf on two samples
  ocrbench bench --image a.png --truth a.txt --image b.png --truth b.txt

  # Every image in a directory, four pairs at a time, Levenshtein scoring
  ocrbench bench --dir samples --workers 4 --scorer levenshtein

  # Manifest run with cloud engines, JSON report and a Google Sheet
  ocrbench bench bench.toml --engine vision --engine tesseract \
    --json results.json --sheet https://docs.google.com/spreadsheets/d/ID/edit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	addBenchFlags(benchCmd)
}

func addBenchFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("image", nil, "Sample image (repeatable, paired with --truth)")
	cmd.Flags().StringArray("truth", nil, "Ground-truth text file (repeatable, paired with --image)")
	cmd.Flags().String("dir", "", "Directory of images with same-name .txt ground truth")
	cmd.Flags().StringSlice("engine", nil, "OCR engine to benchmark (repeatable; default from BENCH_ENGINES)")
	cmd.Flags().Int("workers", 0, "Number of engine runs in parallel (default from BENCH_WORKERS)")
	cmd.Flags().Bool("fail-fast", false, "Abort on the first failed engine run")
	cmd.Flags().String("scorer", "", "Scoring method: ratio or levenshtein (default from BENCH_SCORER)")
	cmd.Flags().String("scratch", "", "Directory for engine artifacts (default from BENCH_SCRATCH_DIR)")
	cmd.Flags().String("chart", "", "PNG chart path (default from BENCH_CHART_PATH)")
	cmd.Flags().Bool("no-chart", false, "Do not render the chart")
	cmd.Flags().String("json", "", "Write a JSON report to this path (- for stdout)")
	cmd.Flags().String("sheet", "", "Append results to this Google Sheet URL (default from GOOGLE_SHEET_URL)")
	cmd.Flags().String("sheet-name", "", "Worksheet for --sheet (default from GOOGLE_SHEET_WORKSHEET)")
	cmd.Flags().String("lang", "", "Tesseract language code (default from OCR_LANGUAGE)")
	cmd.Flags().Int("timeout", 0, "Per-engine timeout in seconds (default from OCR_TIMEOUT)")
	cmd.Flags().Bool("strict", false, "Exit with an error when any engine run failed")
}

// benchSettings is the resolved run configuration after flags, manifest
// and environment are merged, in that order of precedence.
type benchSettings struct {
	samples  []benchmark.SampleInput
	engines  []string
	scorer   string
	workers  int
	failFast bool
}

func runBench(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("bench")
	cfg := loadConfig(log)

	// Get flags
	scratchDir, _ := cmd.Flags().GetString("scratch")
	chartPath, _ := cmd.Flags().GetString("chart")
	noChart, _ := cmd.Flags().GetBool("no-chart")
	jsonPath, _ := cmd.Flags().GetString("json")
	sheetURL, _ := cmd.Flags().GetString("sheet")
	sheetName, _ := cmd.Flags().GetString("sheet-name")
	lang, _ := cmd.Flags().GetString("lang")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	strict, _ := cmd.Flags().GetBool("strict")

	applyOverrides(cfg, lang, timeoutSecs)
	if scratchDir == "" {
		scratchDir = cfg.ScratchDir
	}
	if chartPath == "" {
		chartPath = cfg.ChartPath
	}
	if sheetURL == "" {
		sheetURL = cfg.GoogleSheetURL
	}
	if sheetName == "" {
		sheetName = cfg.GoogleSheetWorksheet
	}

	settings, err := resolveBenchSettings(cmd, args, cfg)
	if err != nil {
		return err
	}

	scorer, err := metrics.ForName(settings.scorer)
	if err != nil {
		return err
	}

	log.Info().
		Int("samples", len(settings.samples)).
		Strs("engines", settings.engines).
		Str("scorer", scorer.Name()).
		Int("workers", settings.workers).
		Str("scratch", scratchDir).
		Msg("Starting benchmark")

	// The run itself has no deadline; each engine call is bounded by the process timeout.
	ctx, cancel := createContextWithTimeout(0, log)
	defer cancel()

	engines, err := ocr.NewAll(ctx, settings.engines, engineConfig(cfg))
	if err != nil {
		return handleOCRError(err, log)
	}
	defer ocr.CloseAll(engines)

	runner, err := benchmark.NewRunner(engines, benchmark.Options{
		ScratchDir: scratchDir,
		Workers:    settings.workers,
		FailFast:   settings.failFast,
		Scorer:     scorer,
	})
	if err != nil {
		return err
	}

	table, runErr := runner.Run(ctx, settings.samples)
	if table == nil {
		return handleOCRError(runErr, log)
	}

	if err := report.WriteSummary(os.Stdout, table); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if !noChart && chartPath != "" {
		if err := report.RenderChart(table, chartPath); err != nil {
			if !errors.Is(err, report.ErrNothingToPlot) {
				return fmt.Errorf("failed to render chart: %w", err)
			}
			log.Warn().Msg("Every engine failed on every sample, no chart rendered")
		} else {
			fmt.Printf("\nChart written to %s\n", chartPath)
		}
	}

	if jsonPath != "" {
		var buf bytes.Buffer
		if err := report.WriteJSON(&buf, runner.RunID(), table); err != nil {
			return fmt.Errorf("failed to create JSON report: %w", err)
		}
		if err := writeOutput(buf.Bytes(), jsonPath, false, log); err != nil {
			return err
		}
	}

	if sheetURL != "" {
		if err := exportToSheet(ctx, sheetURL, sheetName, runner.RunID(), scorer.Name(), table, log); err != nil {
			return err
		}
	}

	if runErr != nil {
		return handleOCRError(runErr, log)
	}
	if failures := table.Failures(); strict && len(failures) > 0 {
		return fmt.Errorf("%d of %d engine runs failed", len(failures), table.Len())
	}
	return nil
}

// resolveBenchSettings collects the samples from exactly one source and
// merges flag, manifest and environment settings.
func resolveBenchSettings(cmd *cobra.Command, args []string, cfg *config.Config) (*benchSettings, error) {
	images, _ := cmd.Flags().GetStringArray("image")
	truths, _ := cmd.Flags().GetStringArray("truth")
	dir, _ := cmd.Flags().GetString("dir")

	sources := 0
	for _, used := range []bool{len(args) == 1, dir != "", len(images) > 0 || len(truths) > 0} {
		if used {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("give exactly one sample source: a manifest, --dir, or --image/--truth pairs")
	}

	s := &benchSettings{
		engines:  cfg.Engines,
		scorer:   cfg.Scorer,
		workers:  cfg.Workers,
		failFast: cfg.FailFast,
	}

	var err error
	switch {
	case len(args) == 1:
		manifest, err := benchmark.LoadManifest(args[0])
		if err != nil {
			return nil, err
		}
		s.samples = manifest.SampleInputs()
		if len(manifest.Engines) > 0 {
			s.engines = manifest.Engines
		}
		if manifest.Scorer != "" {
			s.scorer = manifest.Scorer
		}
		if manifest.Workers > 0 {
			s.workers = manifest.Workers
		}
	case dir != "":
		if s.samples, err = benchmark.DiscoverSamples(dir); err != nil {
			return nil, err
		}
	default:
		if s.samples, err = benchmark.PairSamples(images, truths); err != nil {
			return nil, err
		}
	}
	if len(s.samples) == 0 {
		return nil, benchmark.ErrNoSamples
	}

	if cmd.Flags().Changed("engine") {
		s.engines, _ = cmd.Flags().GetStringSlice("engine")
	}
	if cmd.Flags().Changed("scorer") {
		s.scorer, _ = cmd.Flags().GetString("scorer")
	}
	if cmd.Flags().Changed("workers") {
		s.workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("fail-fast") {
		s.failFast, _ = cmd.Flags().GetBool("fail-fast")
	}
	if s.workers < 1 {
		return nil, fmt.Errorf("--workers must be at least 1, got %d", s.workers)
	}
	return s, nil
}

// exportToSheet appends the results table to a Google Sheet.
func exportToSheet(ctx context.Context, sheetURL, sheetName, runID, scorer string, table *benchmark.ResultsTable, log zerolog.Logger) error {
	// The run context may already be canceled; the export still gets a chance.
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	svc, err := sheets.NewSheetsService(ctx, sheetURL)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Google Sheets service")
		return fmt.Errorf("failed to connect to Google Sheets: %w", err)
	}
	if err := svc.WriteBenchmarkResults(ctx, runID, scorer, table, sheetName); err != nil {
		return fmt.Errorf("failed to write results to Google Sheets: %w", err)
	}
	fmt.Printf("Results appended to sheet %q\n", sheetName)
	return nil
}
