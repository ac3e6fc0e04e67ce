// Package vision runs word-level OCR through Google Cloud Vision
// DOCUMENT_TEXT_DETECTION.
package vision

import (
	"context"
	"fmt"
	"math"
	"strings"

	visionapi "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/providers"
)

// Annotator sends a single annotate request
type Annotator interface {
	Annotate(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)
}

type clientAnnotator struct {
	client *visionapi.ImageAnnotatorClient
}

func (c clientAnnotator) Annotate(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
	return c.client.BatchAnnotateImages(ctx, req)
}

// Provider implements the Google Cloud Vision OCR provider
type Provider struct {
	annotator Annotator
	closer    func() error
}

// New creates a provider around an existing annotator
func New(a Annotator) *Provider {
	return &Provider{annotator: a}
}

// NewFromEnv connects with application default credentials
// (GOOGLE_APPLICATION_CREDENTIALS or the metadata server)
func NewFromEnv(ctx context.Context) (*Provider, error) {
	client, err := visionapi.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &Provider{
		annotator: clientAnnotator{client: client},
		closer:    client.Close,
	}, nil
}

// Close releases the underlying gRPC connection, if any
func (p *Provider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "vision"
}

// ValidateConfig validates the Vision configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if p.annotator == nil {
		return fmt.Errorf("vision client is not configured")
	}
	return nil
}

// Analyze runs document text detection on one page image
func (p *Provider) Analyze(ctx context.Context, config providers.Config, page providers.Page) (detection.Batch, error) {
	if err := p.ValidateConfig(config); err != nil {
		return detection.Batch{}, err
	}
	if err := providers.ValidatePage(page); err != nil {
		return detection.Batch{}, err
	}

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: page.Image},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}
	if len(config.Languages) > 0 {
		req.ImageContext = &visionpb.ImageContext{LanguageHints: config.Languages}
	}

	resp, err := p.annotator.Annotate(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return detection.Batch{}, fmt.Errorf("vision annotate failed: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return detection.Batch{}, fmt.Errorf("vision returned no responses")
	}

	r := resp.GetResponses()[0]
	if msg := r.GetError().GetMessage(); msg != "" {
		return detection.Batch{}, fmt.Errorf("vision annotate failed: %s", msg)
	}

	return convertAnnotation(r.GetFullTextAnnotation()), nil
}

// convertAnnotation flattens the first page into WORD detections. Vertices
// come in the word's reading order, which is what rotation classification
// expects.
func convertAnnotation(annotation *visionpb.TextAnnotation) detection.Batch {
	batch := detection.Batch{Blocks: []detection.Detection{}}
	pages := annotation.GetPages()
	if len(pages) == 0 {
		return batch
	}

	page := pages[0]
	width, height := float64(page.GetWidth()), float64(page.GetHeight())
	if width <= 0 || height <= 0 {
		return batch
	}

	batch.Blocks = append(batch.Blocks, detection.Detection{
		BlockType: detection.BlockPage,
		Geometry: &detection.Geometry{
			BoundingBox: &detection.NormalizedBox{Width: 1, Height: 1},
		},
	})

	for _, block := range page.GetBlocks() {
		for _, paragraph := range block.GetParagraphs() {
			for _, word := range paragraph.GetWords() {
				batch.Blocks = append(batch.Blocks, convertWord(word, width, height))
			}
		}
	}
	return batch
}

func convertWord(word *visionpb.Word, width, height float64) detection.Detection {
	var text strings.Builder
	for _, symbol := range word.GetSymbols() {
		text.WriteString(symbol.GetText())
	}

	d := detection.Detection{
		BlockType:  detection.BlockWord,
		Text:       text.String(),
		Confidence: float64(word.GetConfidence()) * 100,
	}

	vertices := word.GetBoundingBox().GetVertices()
	if len(vertices) < 4 {
		return d
	}

	polygon := make(detection.Polygon, 0, len(vertices))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range vertices {
		x, y := float64(v.GetX())/width, float64(v.GetY())/height
		polygon = append(polygon, detection.Point{X: x, Y: y})
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	d.Geometry = &detection.Geometry{
		BoundingBox: &detection.NormalizedBox{
			Left:   minX,
			Top:    minY,
			Width:  maxX - minX,
			Height: maxY - minY,
		},
		Polygon: polygon,
	}
	return d
}
