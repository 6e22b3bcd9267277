package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ocrbench/internal/logger"
	"ocrbench/internal/pdf"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Extract the embedded text layer of a PDF",
	Long: `Read the text layer of a PDF without OCR, page by page. Useful for
producing ground-truth files from digitally generated documents.`,
	Example: `  # Print the text
  ocrbench extract invoice.pdf

  # Save it as ground truth next to the rasterized page
  ocrbench extract invoice.pdf -o samples/invoice.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")

	pdfPath := args[0]
	if _, err := validateInputFile(pdfPath, "PDF", []string{".pdf"}, log); err != nil {
		return err
	}

	text, err := pdf.ExtractText(pdfPath)
	if err != nil {
		log.Error().Err(err).Str("file", pdfPath).Msg("Text extraction failed")
		return fmt.Errorf("failed to extract PDF text: %w", err)
	}

	log.Info().
		Str("file", pdfPath).
		Int("text_length", len(text)).
		Msg("PDF text extracted")

	return writeOutput([]byte(text), outputPath, true, log)
}
