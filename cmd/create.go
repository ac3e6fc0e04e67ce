package cmd

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/ocrpdf/internal/utils"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/hocr"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/searchable"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/storage"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a searchable PDF from a scanned PDF",
	Long: `Create a searchable PDF from a scanned PDF.

Every page is rendered and sent to the OCR provider, unless --response names a
saved OCR response (see the ocr command). Each recognized word is then placed
as invisible text over the page image at its original position, size and
rotation.

Locations may be local paths, "-" for stdin/stdout or s3://bucket/key URLs.`,
	Example: `  ocrpdf create --pdf scan.pdf -o searchable.pdf
  ocrpdf create --pdf scan.pdf --response response.json -o searchable.pdf --hocr scan.hocr
  ocrpdf create --pdf s3://scans/in.pdf -o s3://scans/out.pdf --provider vision`,
	RunE: runCreate,
}

func init() {
	RootCmd.AddCommand(createCmd)

	createCmd.Flags().String("pdf", "", "Location of the scanned PDF (required)")
	createCmd.Flags().String("response", "", "Location of a saved OCR response to use instead of calling a provider")
	createCmd.Flags().StringP("output", "o", "", "Location to write the searchable PDF (required)")
	createCmd.Flags().String("report", "", "Location to write a yaml summary of the run")
	createCmd.Flags().String("hocr", "", "Location to write an hOCR file of the placed words")
	addOptionFlags(createCmd)

	for _, name := range []string{"pdf", "output"} {
		if err := createCmd.MarkFlagRequired(name); err != nil {
			utils.ExitOnError("Unable to mark flag as required", err)
		}
	}
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	pdfPath, _ := f.GetString("pdf")
	responsePath, _ := f.GetString("response")
	outputPath, _ := f.GetString("output")
	reportPath, _ := f.GetString("report")
	hocrPath, _ := f.GetString("hocr")

	store := newStore()
	data, err := store.Read(ctx, pdfPath)
	if err != nil {
		return err
	}

	conv := &searchable.Converter{
		Rasterizer: opts.Rasterizer(),
		Options:    opts.Searchable(),
	}

	var batches []detection.Batch
	if responsePath != "" {
		raw, err := store.Read(ctx, responsePath)
		if err != nil {
			return err
		}
		batches, err = detection.Load(bytes.NewReader(raw))
		if err != nil {
			return err
		}
		slog.Info("Using saved OCR response", "response", responsePath, "pages", len(batches), "words", detection.CountWords(batches))
	} else {
		provider, err := newRegistry().Get(ctx, opts.Provider)
		if err != nil {
			return fmt.Errorf("unsupported provider: %w", err)
		}
		defer closeProvider(provider)
		conv.Provider = provider
	}

	slog.Info("Creating searchable PDF", "pdf", pdfPath, "output", outputPath, "provider", opts.Provider)

	result, err := conv.Convert(ctx, searchable.Request{PDF: data, Batches: batches})
	if err != nil {
		return err
	}

	if err := store.Write(ctx, outputPath, result.PDF, "application/pdf"); err != nil {
		return err
	}

	if hocrPath != "" {
		if err := store.Write(ctx, hocrPath, []byte(hocr.FromPlans(result.Plans)), "application/xhtml+xml"); err != nil {
			return err
		}
	}

	if reportPath != "" {
		var buf bytes.Buffer
		if err := result.Summary.WriteYAML(&buf); err != nil {
			return err
		}
		if err := store.Write(ctx, reportPath, buf.Bytes(), "application/yaml"); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if outputPath == storage.Stdio {
		out = cmd.ErrOrStderr()
	}
	result.Summary.Print(out)

	return nil
}
