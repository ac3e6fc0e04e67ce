package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/ocrpdf/internal/utils"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/accuracy"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/pdfdoc"
)

type PageCheck struct {
	Page    int              `yaml:"page"`
	Metrics accuracy.Metrics `yaml:"metrics"`
}

type VerifySummary struct {
	PDF       string           `yaml:"pdf"`
	Reference string           `yaml:"reference"`
	Pages     []PageCheck      `yaml:"pages"`
	Average   accuracy.Metrics `yaml:"average"`
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the text layer of a searchable PDF",
	Long: `Extract the text layer of a PDF and compare it with a reference.

With --response the reference is the words of the saved OCR response, page by
page, which shows how much of the OCR output survived placement. With
--transcript the whole document is compared with a ground truth text file.`,
	RunE: runVerify,
}

func init() {
	RootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("pdf", "", "Location of the searchable PDF (required)")
	verifyCmd.Flags().String("response", "", "Location of the OCR response used to build the PDF")
	verifyCmd.Flags().String("transcript", "", "Location of a ground truth transcript")
	verifyCmd.Flags().String("report", "", "Location to write the yaml results")
	verifyCmd.MarkFlagsOneRequired("response", "transcript")
	verifyCmd.MarkFlagsMutuallyExclusive("response", "transcript")

	if err := verifyCmd.MarkFlagRequired("pdf"); err != nil {
		utils.ExitOnError("Unable to mark pdf as required", err)
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()
	pdfPath, _ := f.GetString("pdf")
	responsePath, _ := f.GetString("response")
	transcriptPath, _ := f.GetString("transcript")
	reportPath, _ := f.GetString("report")

	store := newStore()
	data, err := store.Read(ctx, pdfPath)
	if err != nil {
		return err
	}
	texts, err := pdfdoc.PageText(data)
	if err != nil {
		return err
	}

	summary := VerifySummary{PDF: pdfPath}
	if responsePath != "" {
		summary.Reference = responsePath
		raw, err := store.Read(ctx, responsePath)
		if err != nil {
			return err
		}
		batches, err := detection.Load(bytes.NewReader(raw))
		if err != nil {
			return err
		}
		summary.Pages, err = comparePages(batches, texts)
		if err != nil {
			return err
		}
	} else {
		summary.Reference = transcriptPath
		raw, err := store.Read(ctx, transcriptPath)
		if err != nil {
			return err
		}
		summary.Pages = []PageCheck{{
			Page:    -1,
			Metrics: accuracy.Compare(string(raw), strings.Join(texts, " ")),
		}}
	}

	var all []accuracy.Metrics
	for _, p := range summary.Pages {
		printPageCheck(cmd.OutOrStdout(), p)
		all = append(all, p.Metrics)
	}
	summary.Average = accuracy.Average(all)
	printSummaryStats(cmd.OutOrStdout(), summary)

	if reportPath != "" {
		out, err := yaml.Marshal(summary)
		if err != nil {
			return err
		}
		return store.Write(ctx, reportPath, out, "application/yaml")
	}
	return nil
}

var errPageMismatch = errors.New("page count does not match the OCR response")

func comparePages(batches []detection.Batch, texts []string) ([]PageCheck, error) {
	if len(batches) > len(texts) {
		return nil, fmt.Errorf("%w: %d responses for %d pages", errPageMismatch, len(batches), len(texts))
	}
	var checks []PageCheck
	for i, b := range batches {
		if b.Error != "" {
			continue
		}
		checks = append(checks, PageCheck{
			Page:    i,
			Metrics: accuracy.Compare(b.Text(), texts[i]),
		})
	}
	return checks, nil
}

func printPageCheck(w io.Writer, p PageCheck) {
	if p.Page >= 0 {
		fmt.Fprintf(w, "\n=== Page %d ===\n", p.Page)
	} else {
		fmt.Fprintf(w, "\n=== Document ===\n")
	}
	m := p.Metrics
	fmt.Fprintf(w, "Character Similarity: %.3f\n", m.CharacterSimilarity)
	fmt.Fprintf(w, "Word Accuracy: %.3f\n", m.WordAccuracy)
	fmt.Fprintf(w, "Words (Reference): %d\n", m.ReferenceWords)
	fmt.Fprintf(w, "Words (Extracted): %d\n", m.ExtractedWords)
}

func printSummaryStats(w io.Writer, s VerifySummary) {
	if len(s.Pages) == 0 {
		return
	}
	fmt.Fprintf(w, "\n=== SUMMARY STATISTICS ===\n")
	fmt.Fprintf(w, "Pages Checked: %d\n", len(s.Pages))
	fmt.Fprintf(w, "Average Character Similarity: %.3f\n", s.Average.CharacterSimilarity)
	fmt.Fprintf(w, "Average Word Accuracy: %.3f\n", s.Average.WordAccuracy)
}
