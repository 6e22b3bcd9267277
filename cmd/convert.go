package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ocrbench/internal/logger"
	"ocrbench/internal/pdf"
	"ocrbench/internal/proc"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdf-file]",
	Short: "Rasterize every PDF page to page_<n>.png",
	Long: `Render each page of a PDF to a PNG image with pdftoppm, producing
page_1.png, page_2.png, ... in the output directory. The images can then be
benchmarked like any other sample.`,
	Example: `  # Render invoice.pdf at 300 dpi into ./output
  ocrbench convert invoice.pdf

  # Lower resolution into a custom directory
  ocrbench convert invoice.pdf --out-dir pages --dpi 150`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("out-dir", "output", "Directory for the page images")
	convertCmd.Flags().Int("dpi", 0, "Rendering resolution (default from RASTER_DPI)")
	convertCmd.Flags().Int("timeout", 0, "Per-page timeout in seconds (default from OCR_TIMEOUT)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("convert")
	cfg := loadConfig(log)

	outDir, _ := cmd.Flags().GetString("out-dir")
	dpi, _ := cmd.Flags().GetInt("dpi")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	applyOverrides(cfg, "", timeoutSecs)
	if dpi <= 0 {
		dpi = cfg.RasterDPI
	}

	pdfPath := args[0]
	if _, err := validateInputFile(pdfPath, "PDF", []string{".pdf"}, log); err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(0, log)
	defer cancel()

	rasterizer := pdf.NewRasterizer(cfg.PdfToPPMBinary, dpi, proc.NewExecRunner(cfg.ProcessTimeout))
	pages, err := rasterizer.Rasterize(ctx, pdfPath, outDir)
	if err != nil {
		return handleOCRError(err, log)
	}

	for _, page := range pages {
		fmt.Println(page)
	}
	return nil
}
