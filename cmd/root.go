package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ocrbench/internal/config"
	"ocrbench/internal/logger"
	"ocrbench/internal/metrics"
	"ocrbench/internal/ocr"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "ocrbench",
	Short: "ocrbench - compare OCR engines against ground-truth text",
	Long: `ocrbench runs several OCR engines over a set of images, scores every
transcription against a reference text and reports average character error
rate, word error rate and processing time per engine.

Engines shell out to tesseract and ocrmypdf or call Google Cloud Vision,
Document AI and OpenAI. Settings are read from the environment (and a .env
file); command-line flags take precedence.`,
	Version: version,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printInventory(cmd.OutOrStdout())
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}

// printInventory lists the engines and scorers a benchmark can use.
func printInventory(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENGINE\tAVAILABLE")
	for _, name := range ocr.Names() {
		available := "yes"
		if name == "gosseract" && !ocr.GosseractAvailable {
			available = "no (build with -tags gosseract)"
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, available)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nScorers: %s\nRun 'ocrbench bench --help' to start a benchmark.\n",
		strings.Join(metrics.Names(), ", "))
	return err
}

// loadConfig reads the environment configuration, falling back to defaults
// when it does not validate.
func loadConfig(log zerolog.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Invalid configuration, using defaults")
		return config.Default()
	}
	return cfg
}

// engineConfig maps the application configuration onto engine settings.
func engineConfig(cfg *config.Config) ocr.Config {
	return ocr.Config{
		Language:              cfg.OCRLanguage,
		DPI:                   cfg.OCRmyPDFDPI,
		Timeout:               cfg.ProcessTimeout,
		TesseractBinary:       cfg.TesseractBinary,
		OCRmyPDFBinary:        cfg.OCRmyPDFBinary,
		PdfToTextBinary:       cfg.PdfToTextBinary,
		GoogleCloudProject:    cfg.GoogleCloudProject,
		GoogleCloudLocation:   cfg.GoogleCloudLocation,
		DocumentAIProcessorID: cfg.DocumentAIProcessorID,
		VisionLanguageHints:   cfg.VisionLanguageHints,
		OpenAIAPIKey:          cfg.OpenAIAPIKey,
		OpenAIModel:           cfg.OpenAIModel,
	}
}
