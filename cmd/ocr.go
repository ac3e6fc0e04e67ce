package cmd

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/ocrpdf/internal/utils"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/searchable"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Run OCR on a PDF and save the response",
	Long: `Render every page of a PDF, send it to the OCR provider and save the
detections as a JSON array with one {"Blocks": [...]} entry per page.

The saved response can be passed to "ocrpdf create --response" to build the
searchable PDF without calling the provider again.`,
	RunE: runOCR,
}

func init() {
	RootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().String("pdf", "", "Location of the scanned PDF (required)")
	ocrCmd.Flags().StringP("output", "o", "", "Location to write the OCR response (required)")
	addOptionFlags(ocrCmd)

	for _, name := range []string{"pdf", "output"} {
		if err := ocrCmd.MarkFlagRequired(name); err != nil {
			utils.ExitOnError("Unable to mark flag as required", err)
		}
	}
}

func runOCR(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	pdfPath, _ := cmd.Flags().GetString("pdf")
	outputPath, _ := cmd.Flags().GetString("output")

	store := newStore()
	data, err := store.Read(ctx, pdfPath)
	if err != nil {
		return err
	}

	provider, err := newRegistry().Get(ctx, opts.Provider)
	if err != nil {
		return fmt.Errorf("unsupported provider: %w", err)
	}
	defer closeProvider(provider)

	conv := &searchable.Converter{
		Provider:   provider,
		Rasterizer: opts.Rasterizer(),
		Options:    opts.Searchable(),
	}

	slog.Info("Running OCR", "pdf", pdfPath, "provider", provider.Name())
	recognition, err := conv.Recognize(ctx, data)
	if err != nil {
		return err
	}
	if len(recognition.FailedPages) > 0 {
		slog.Warn("OCR failed for some pages", "pages", recognition.FailedPages)
	}

	var buf bytes.Buffer
	if err := detection.Save(&buf, recognition.Batches); err != nil {
		return err
	}
	if err := store.Write(ctx, outputPath, buf.Bytes(), "application/json"); err != nil {
		return err
	}

	slog.Info("Saved OCR response",
		"output", outputPath,
		"pages", len(recognition.Batches),
		"words", detection.CountWords(recognition.Batches),
		"failed_pages", len(recognition.FailedPages),
	)
	return nil
}
