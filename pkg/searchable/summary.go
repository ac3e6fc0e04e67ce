package searchable

import (
	"fmt"
	"io"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/overlay"
)

// Summary reports what a conversion did
type Summary struct {
	RunID         string        `yaml:"run_id"`
	Provider      string        `yaml:"provider,omitempty"`
	Started       time.Time     `yaml:"started"`
	Duration      time.Duration `yaml:"duration"`
	Pages         int           `yaml:"pages"`
	PagesWithText int           `yaml:"pages_with_existing_text"`
	PagesFailed   int           `yaml:"pages_failed"`
	FailedPages   []int         `yaml:"failed_pages,omitempty"`
	Stats         overlay.Stats `yaml:"words"`
	CharsReplaced int           `yaml:"chars_replaced"`
}

// Print writes a human readable summary
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Run:            %s\n", s.RunID)
	if s.Provider != "" {
		fmt.Fprintf(w, "OCR source:     %s\n", s.Provider)
	}
	fmt.Fprintf(w, "Pages:          %d\n", s.Pages)
	if s.PagesFailed > 0 {
		fmt.Fprintf(w, "Pages failed:   %d %v\n", s.PagesFailed, s.FailedPages)
	}
	fmt.Fprintf(w, "Words found:    %d\n", s.Stats.Words)
	fmt.Fprintf(w, "Words placed:   %d\n", s.Stats.Placed)
	if s.Stats.Skipped > 0 {
		fmt.Fprintf(w, "Words skipped:  %d\n", s.Stats.Skipped)
	}
	if s.Stats.Degenerate > 0 {
		fmt.Fprintf(w, "Minimum size:   %d\n", s.Stats.Degenerate)
	}
	fmt.Fprintf(w, "Duration:       %s\n", s.Duration.Round(time.Millisecond))
}

// WriteYAML writes the summary as a yaml report
func (s Summary) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return enc.Close()
}
