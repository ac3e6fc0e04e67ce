package pdfdoc

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextLayerPages returns the 0-based indexes of pages that already carry
// extractable text. Such pages were either born digital or OCRed before.
func TextLayerPages(data []byte) ([]int, error) {
	texts, err := PageText(data)
	if err != nil {
		return nil, err
	}

	var pages []int
	for i, text := range texts {
		if strings.TrimSpace(text) != "" {
			pages = append(pages, i)
		}
	}
	return pages, nil
}

// PageText extracts the plain text of every page, one entry per page.
// Pages that cannot be read yield an empty string.
func PageText(data []byte) (texts []string, err error) {
	defer func() {
		// the reader panics on some malformed cross reference tables
		if r := recover(); r != nil {
			texts = nil
			err = fmt.Errorf("failed to inspect text layer: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect text layer: %w", err)
	}

	texts = make([]string, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("Could not extract text from page", "page", i-1, "err", err)
			continue
		}
		texts[i-1] = text
	}

	return texts, nil
}
