// Package searchable turns a scanned PDF and its OCR detections into a
// searchable PDF.
package searchable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/compose"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/dispatch"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/overlay"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/pdfdoc"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/providers"
)

var (
	// ErrExistingText is returned in strict mode when the input already has a text layer
	ErrExistingText = errors.New("pdf already contains text")
	ErrNoProvider   = errors.New("no OCR provider configured")
	ErrNoRasterizer = errors.New("no rasterizer configured")
)

// Options controls a conversion
type Options struct {
	Overlay overlay.Options
	// PreserveVectorBackground imports the original page content instead of
	// drawing the rendered image
	PreserveVectorBackground bool
	LayerName                string
	Optimize                 bool
	// Concurrency bounds rasterization and OCR requests in flight
	Concurrency int
	OCR         providers.Config
	// Strict refuses inputs that already carry a text layer
	Strict bool
}

// DefaultOptions mirrors the documented configuration defaults
func DefaultOptions() Options {
	return Options{
		Overlay:     overlay.DefaultOptions(),
		LayerName:   compose.DefaultLayer,
		Optimize:    true,
		Concurrency: 4,
		OCR: providers.Config{
			Provider: "textract",
			Features: []string{"TABLES", "FORMS"},
			Timeout:  2 * time.Minute,
		},
	}
}

// Converter runs the per-document pipeline
type Converter struct {
	Provider   providers.Provider
	Rasterizer pdfdoc.Rasterizer
	Options    Options
}

// Request is one document to convert. When Batches is nil every page is
// rendered and sent for OCR; otherwise the batches are used as given, one
// per page in order.
type Request struct {
	PDF     []byte
	Batches []detection.Batch
}

// Result is the converted document
type Result struct {
	PDF     []byte
	Batches []detection.Batch
	Plans   []overlay.PagePlan
	Summary Summary
}

// Recognition is the OCR output for a whole document
type Recognition struct {
	Batches     []detection.Batch
	FailedPages []int
}

// Recognize renders every page and sends it for OCR. Failing pages are
// reported in the result; only an unreadable document is an error.
func (c *Converter) Recognize(ctx context.Context, pdf []byte) (Recognition, error) {
	src, err := pdfdoc.Open(pdf)
	if err != nil {
		return Recognition{}, err
	}
	images, err := c.rasterize(ctx, src)
	if err != nil {
		return Recognition{}, err
	}
	return c.recognize(ctx, src, images)
}

func (c *Converter) recognize(ctx context.Context, src *pdfdoc.Source, images [][]byte) (Recognition, error) {
	if c.Provider == nil {
		return Recognition{}, ErrNoProvider
	}
	if err := c.Provider.ValidateConfig(c.Options.OCR); err != nil {
		return Recognition{}, fmt.Errorf("invalid %s configuration: %w", c.Provider.Name(), err)
	}

	pages := make([]providers.Page, src.PageCount())
	for i := range pages {
		pages[i] = providers.Page{Index: i, Image: images[i], MimeType: "image/jpeg"}
	}

	d := &dispatch.Dispatcher{
		Provider:    c.Provider,
		Config:      c.Options.OCR,
		Concurrency: c.Options.Concurrency,
	}
	results := d.Run(ctx, pages)

	return Recognition{
		Batches:     dispatch.Batches(results, src.PageCount()),
		FailedPages: dispatch.Failed(results),
	}, nil
}

// Convert produces the searchable PDF for req
func (c *Converter) Convert(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	summary := Summary{
		RunID:   uuid.NewString(),
		Started: start,
	}
	if c.Provider != nil {
		summary.Provider = c.Provider.Name()
	}

	src, err := pdfdoc.Open(req.PDF)
	if err != nil {
		return Result{}, err
	}
	summary.Pages = src.PageCount()
	slog.Info("Converting document", "run", summary.RunID, "pages", summary.Pages)

	textPages, err := pdfdoc.TextLayerPages(req.PDF)
	if err != nil {
		slog.Warn("Could not check for an existing text layer", "err", err)
	}
	summary.PagesWithText = len(textPages)
	if len(textPages) > 0 {
		if c.Options.Strict {
			return Result{}, fmt.Errorf("%w on %d of %d pages", ErrExistingText, len(textPages), summary.Pages)
		}
		slog.Warn("Input already contains text, output will carry both layers", "pages", textPages)
	}

	var images [][]byte
	if req.Batches == nil || !c.Options.PreserveVectorBackground {
		images, err = c.rasterize(ctx, src)
		if err != nil {
			return Result{}, err
		}
	}

	batches := req.Batches
	if batches == nil {
		recognition, err := c.recognize(ctx, src, images)
		if err != nil {
			return Result{}, err
		}
		batches = recognition.Batches
	} else {
		summary.Provider = "response"
		if len(batches) != summary.Pages {
			slog.Warn("OCR response does not match the page count", "responses", len(batches), "pages", summary.Pages)
		}
	}

	for i, b := range batches {
		if b.Error != "" && i < summary.Pages {
			summary.FailedPages = append(summary.FailedPages, i)
		}
	}
	summary.PagesFailed = len(summary.FailedPages)

	grouped := detection.Group(batches)
	placer := overlay.NewPlacer(c.Options.Overlay, compose.NewMeasurer())
	composer := compose.New(compose.Options{
		LayerName: c.Options.LayerName,
		Optimize:  c.Options.Optimize,
		Creator:   "ocrpdf",
	})

	plans := make([]overlay.PagePlan, 0, summary.Pages)
	for i := 0; i < summary.Pages; i++ {
		size, err := src.PageSize(i)
		if err != nil {
			return Result{}, err
		}

		plan := placer.PlacePage(i, size.Width, size.Height, grouped[i])
		if err := composer.AddPage(plan, c.background(src, images, i)); err != nil {
			return Result{}, err
		}

		slog.Debug("Composed page", "page", i, "placed", plan.Stats.Placed, "skipped", plan.Stats.Skipped)
		summary.Stats.Add(plan.Stats)
		plans = append(plans, plan)
	}

	out, err := composer.Bytes()
	if err != nil {
		return Result{}, err
	}

	summary.CharsReplaced = composer.Replaced()
	summary.Duration = time.Since(start)
	slog.Info("Conversion complete",
		"run", summary.RunID,
		"pages", summary.Pages,
		"words", summary.Stats.Words,
		"placed", summary.Stats.Placed,
		"failed_pages", summary.PagesFailed,
		"duration", summary.Duration,
	)

	return Result{
		PDF:     out,
		Batches: batches,
		Plans:   plans,
		Summary: summary,
	}, nil
}

func (c *Converter) background(src *pdfdoc.Source, images [][]byte, index int) compose.Background {
	if c.Options.PreserveVectorBackground {
		return compose.VectorBackground(src.Bytes(), index)
	}
	return compose.ImageBackground(images[index])
}

// rasterize renders every page. A page that cannot be rendered has no
// background, so it fails the whole document.
func (c *Converter) rasterize(ctx context.Context, src *pdfdoc.Source) ([][]byte, error) {
	if c.Rasterizer == nil {
		return nil, ErrNoRasterizer
	}

	images := make([][]byte, src.PageCount())

	limit := c.Options.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range images {
		g.Go(func() error {
			img, err := c.Rasterizer.Rasterize(gctx, src.Bytes(), i)
			if err != nil {
				return fmt.Errorf("failed to render page %d: %w", i, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("Rendered pages", "pages", len(images))
	return images, nil
}
