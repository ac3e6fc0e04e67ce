package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
)

// Config represents the configuration for a provider
type Config struct {
	Provider string
	// Features selects extra analysis (e.g. TABLES, FORMS) where the service supports it
	Features  []string
	Languages []string
	// Timeout bounds a single page request. Zero means no per-page limit.
	Timeout time.Duration
}

// Page is one rasterized page sent for OCR
type Page struct {
	// Index is the 0-based page number in the source document
	Index    int
	Image    []byte
	MimeType string
	// Width and Height are the image size in pixels when known
	Width  int
	Height int
}

// Provider interface that all OCR providers must implement
type Provider interface {
	// Analyze runs word-level OCR on one page image. Geometry in the returned
	// batch is normalized to the page size.
	Analyze(ctx context.Context, config Config, page Page) (detection.Batch, error)
	// Name returns the provider's name
	Name() string
	// ValidateConfig validates the provider-specific configuration
	ValidateConfig(config Config) error
}

// TruncateBody truncates a response body to a maximum length for error messages.
// This helps keep error logs readable while still providing context.
// Default maxLen is 500 if not specified.
func TruncateBody(body []byte, maxLen ...int) string {
	limit := 500
	if len(maxLen) > 0 && maxLen[0] > 0 {
		limit = maxLen[0]
	}
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "... (truncated)"
	}
	return s
}

// ValidatePage rejects pages no provider can work with
func ValidatePage(page Page) error {
	if len(page.Image) == 0 {
		return fmt.Errorf("page %d has no image data", page.Index)
	}
	return nil
}
