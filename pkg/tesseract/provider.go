// Package tesseract runs word-level OCR locally with Tesseract through
// gosseract. It needs no credentials, which makes it the offline fallback.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/providers"
)

// Client is the part of the gosseract client the provider uses
type Client interface {
	SetImageFromBytes(data []byte) error
	SetLanguage(langs ...string) error
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Close() error
}

// Provider implements the Tesseract OCR provider
type Provider struct {
	clientFactory func() Client
}

// New creates a provider backed by the system Tesseract install
func New() *Provider {
	return &Provider{clientFactory: func() Client { return gosseract.NewClient() }}
}

// NewWithClient creates a provider that builds clients with factory
func NewWithClient(factory func() Client) *Provider {
	return &Provider{clientFactory: factory}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "tesseract"
}

// ValidateConfig validates the Tesseract configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if p.clientFactory == nil {
		return fmt.Errorf("tesseract client factory is not configured")
	}
	return nil
}

// Analyze recognizes the words of one page image. Tesseract reports
// axis-aligned word boxes, so every polygon describes an upright word.
func (p *Provider) Analyze(ctx context.Context, config providers.Config, page providers.Page) (detection.Batch, error) {
	if err := p.ValidateConfig(config); err != nil {
		return detection.Batch{}, err
	}
	if err := providers.ValidatePage(page); err != nil {
		return detection.Batch{}, err
	}
	if err := ctx.Err(); err != nil {
		return detection.Batch{}, err
	}

	width, height := page.Width, page.Height
	if width <= 0 || height <= 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(page.Image))
		if err != nil {
			return detection.Batch{}, fmt.Errorf("failed to read image size: %w", err)
		}
		width, height = cfg.Width, cfg.Height
	}

	c := p.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(page.Image); err != nil {
		return detection.Batch{}, fmt.Errorf("set image: %w", err)
	}
	if len(config.Languages) > 0 {
		if err := c.SetLanguage(config.Languages...); err != nil {
			return detection.Batch{}, fmt.Errorf("set languages: %w", err)
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return detection.Batch{}, fmt.Errorf("recognize words: %w", err)
	}

	return convertBoxes(boxes, float64(width), float64(height)), nil
}

func convertBoxes(boxes []gosseract.BoundingBox, width, height float64) detection.Batch {
	batch := detection.Batch{Blocks: make([]detection.Detection, 0, len(boxes))}
	for _, b := range boxes {
		left := float64(b.Box.Min.X) / width
		top := float64(b.Box.Min.Y) / height
		right := float64(b.Box.Max.X) / width
		bottom := float64(b.Box.Max.Y) / height

		batch.Blocks = append(batch.Blocks, detection.Detection{
			BlockType:  detection.BlockWord,
			Text:       b.Word,
			Confidence: b.Confidence,
			Geometry: &detection.Geometry{
				BoundingBox: &detection.NormalizedBox{
					Left:   left,
					Top:    top,
					Width:  right - left,
					Height: bottom - top,
				},
				Polygon: detection.Polygon{
					{X: left, Y: top},
					{X: right, Y: top},
					{X: right, Y: bottom},
					{X: left, Y: bottom},
				},
			},
		})
	}
	return batch
}
