// Package textract runs word-level OCR through AWS Textract.
package textract

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awstextract "github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/providers"
)

// API is the subset of the Textract client the provider calls
type API interface {
	AnalyzeDocument(ctx context.Context, params *awstextract.AnalyzeDocumentInput, optFns ...func(*awstextract.Options)) (*awstextract.AnalyzeDocumentOutput, error)
	DetectDocumentText(ctx context.Context, params *awstextract.DetectDocumentTextInput, optFns ...func(*awstextract.Options)) (*awstextract.DetectDocumentTextOutput, error)
}

// Provider implements the Textract OCR provider
type Provider struct {
	client API
}

// New creates a provider around an existing client
func New(client API) *Provider {
	return &Provider{client: client}
}

// NewFromEnv builds a Textract client from the default AWS config chain
// (environment, shared config, instance role)
func NewFromEnv(ctx context.Context) (*Provider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return New(awstextract.NewFromConfig(cfg)), nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "textract"
}

// ValidateConfig validates the Textract configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if p.client == nil {
		return fmt.Errorf("textract client is not configured")
	}
	_, err := featureTypes(config.Features)
	return err
}

// Analyze sends one page image to Textract. With features it uses
// AnalyzeDocument, otherwise the cheaper DetectDocumentText.
func (p *Provider) Analyze(ctx context.Context, config providers.Config, page providers.Page) (detection.Batch, error) {
	if err := providers.ValidatePage(page); err != nil {
		return detection.Batch{}, err
	}
	features, err := featureTypes(config.Features)
	if err != nil {
		return detection.Batch{}, err
	}

	document := &types.Document{Bytes: page.Image}

	var blocks []types.Block
	if len(features) > 0 {
		out, err := p.client.AnalyzeDocument(ctx, &awstextract.AnalyzeDocumentInput{
			Document:     document,
			FeatureTypes: features,
		})
		if err != nil {
			return detection.Batch{}, fmt.Errorf("textract analyze document failed: %w", err)
		}
		blocks = out.Blocks
	} else {
		out, err := p.client.DetectDocumentText(ctx, &awstextract.DetectDocumentTextInput{
			Document: document,
		})
		if err != nil {
			return detection.Batch{}, fmt.Errorf("textract detect document text failed: %w", err)
		}
		blocks = out.Blocks
	}

	return convertBlocks(blocks), nil
}

func featureTypes(names []string) ([]types.FeatureType, error) {
	var features []types.FeatureType
	for _, name := range names {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		valid := false
		for _, known := range types.FeatureType("").Values() {
			if string(known) == name {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("unsupported textract feature %q", name)
		}
		features = append(features, types.FeatureType(name))
	}
	return features, nil
}

func convertBlocks(blocks []types.Block) detection.Batch {
	batch := detection.Batch{Blocks: make([]detection.Detection, 0, len(blocks))}
	for _, b := range blocks {
		d := detection.Detection{
			BlockType:  detection.BlockType(b.BlockType),
			Text:       aws.ToString(b.Text),
			Confidence: float64(aws.ToFloat32(b.Confidence)),
		}
		if b.Geometry != nil {
			d.Geometry = &detection.Geometry{}
			if bb := b.Geometry.BoundingBox; bb != nil {
				d.Geometry.BoundingBox = &detection.NormalizedBox{
					Left:   float64(bb.Left),
					Top:    float64(bb.Top),
					Width:  float64(bb.Width),
					Height: float64(bb.Height),
				}
			}
			for _, pt := range b.Geometry.Polygon {
				d.Geometry.Polygon = append(d.Geometry.Polygon, detection.Point{X: float64(pt.X), Y: float64(pt.Y)})
			}
		}
		batch.Blocks = append(batch.Blocks, d)
	}
	return batch
}
