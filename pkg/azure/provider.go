package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/providers"
)

// Provider implements the Azure OCR provider
type Provider struct {
	// PollInterval is the wait between result polls
	PollInterval time.Duration
	MaxPolls     int
	client       *http.Client
}

// New creates a new Azure provider
func New() *Provider {
	return &Provider{
		PollInterval: time.Second,
		MaxPolls:     30,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "azure"
}

// ValidateConfig validates the Azure configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	endpoint := os.Getenv("AZURE_OCR_ENDPOINT")
	apiKey := os.Getenv("AZURE_OCR_API_KEY")

	if endpoint == "" || apiKey == "" {
		return fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}
	return nil
}

// Analyze runs the Azure Computer Vision Read API on one page image
func (p *Provider) Analyze(ctx context.Context, config providers.Config, page providers.Page) (detection.Batch, error) {
	if err := p.ValidateConfig(config); err != nil {
		return detection.Batch{}, err
	}
	if err := providers.ValidatePage(page); err != nil {
		return detection.Batch{}, err
	}
	endpoint := os.Getenv("AZURE_OCR_ENDPOINT")
	apiKey := os.Getenv("AZURE_OCR_API_KEY")

	// Azure Computer Vision Read API 3.2 URL (more widely supported)
	readURL := fmt.Sprintf("%s/vision/v3.2/read/analyze", strings.TrimSuffix(endpoint, "/"))
	if len(config.Languages) > 0 {
		readURL += "?language=" + config.Languages[0]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, readURL, bytes.NewReader(page.Image))
	if err != nil {
		return detection.Batch{}, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return detection.Batch{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return detection.Batch{}, fmt.Errorf("azure OCR API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return detection.Batch{}, fmt.Errorf("no operation location returned from Azure OCR")
	}

	for attempts := 0; attempts < p.MaxPolls; attempts++ {
		select {
		case <-ctx.Done():
			return detection.Batch{}, ctx.Err()
		case <-time.After(p.PollInterval):
		}

		result, err := p.poll(ctx, operationURL, apiKey)
		if err != nil {
			return detection.Batch{}, err
		}
		if result == nil {
			continue
		}

		switch result.Status {
		case "succeeded":
			return convertResult(result), nil
		case "failed":
			return detection.Batch{}, fmt.Errorf("azure OCR analysis failed")
		}
		// Continue polling if status is "running" or "notStarted"
	}

	return detection.Batch{}, fmt.Errorf("azure OCR operation timed out")
}

// poll returns nil when the service answered with a non-200 status
func (p *Provider) poll(ctx context.Context, operationURL, apiKey string) (*readOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var result readOperation
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("invalid response format from Azure OCR: %w", err)
	}
	return &result, nil
}

type readOperation struct {
	Status        string        `json:"status"`
	AnalyzeResult analyzeResult `json:"analyzeResult"`
}

type analyzeResult struct {
	// v3.2
	ReadResults []readResult `json:"readResults"`
	// v4.0
	Pages []layoutPage `json:"pages"`
}

type readResult struct {
	Page   int        `json:"page"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Lines  []readLine `json:"lines"`
}

type readLine struct {
	BoundingBox []float64  `json:"boundingBox"`
	Text        string     `json:"text"`
	Words       []readWord `json:"words"`
}

type readWord struct {
	BoundingBox []float64 `json:"boundingBox"`
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
}

type layoutPage struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Lines  []layoutSpan `json:"lines"`
	Words  []layoutSpan `json:"words"`
}

type layoutSpan struct {
	Content    string    `json:"content"`
	Polygon    []float64 `json:"polygon"`
	Confidence float64   `json:"confidence"`
}

// convertResult flattens the first page of a read result into detections
// normalized to the page size. Both the v3.2 and v4.0 shapes are accepted.
func convertResult(result *readOperation) detection.Batch {
	batch := detection.Batch{Blocks: []detection.Detection{}}

	if len(result.AnalyzeResult.ReadResults) > 0 {
		rr := result.AnalyzeResult.ReadResults[0]
		for _, line := range rr.Lines {
			batch.Blocks = append(batch.Blocks, newDetection(detection.BlockLine, line.Text, 0, line.BoundingBox, rr.Width, rr.Height))
			for _, word := range line.Words {
				batch.Blocks = append(batch.Blocks, newDetection(detection.BlockWord, word.Text, word.Confidence*100, word.BoundingBox, rr.Width, rr.Height))
			}
		}
		return batch
	}

	if len(result.AnalyzeResult.Pages) > 0 {
		pg := result.AnalyzeResult.Pages[0]
		for _, line := range pg.Lines {
			batch.Blocks = append(batch.Blocks, newDetection(detection.BlockLine, line.Content, 0, line.Polygon, pg.Width, pg.Height))
		}
		for _, word := range pg.Words {
			batch.Blocks = append(batch.Blocks, newDetection(detection.BlockWord, word.Content, word.Confidence*100, word.Polygon, pg.Width, pg.Height))
		}
	}

	return batch
}

// newDetection normalizes a flat x1,y1,...,x4,y4 polygon. Missing or short
// polygons produce a detection without geometry, which the placer skips.
func newDetection(blockType detection.BlockType, text string, confidence float64, flat []float64, width, height float64) detection.Detection {
	d := detection.Detection{
		BlockType:  blockType,
		Text:       text,
		Confidence: confidence,
	}
	if len(flat) < 8 || width <= 0 || height <= 0 {
		return d
	}

	polygon := make(detection.Polygon, 0, len(flat)/2)
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i+1 < len(flat); i += 2 {
		x, y := flat[i]/width, flat[i+1]/height
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
