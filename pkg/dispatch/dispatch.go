// Package dispatch fans page images out to an OCR provider with bounded
// concurrency and reassembles the responses in page order.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/ocrpdf/internal/utils"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/providers"
)

// Result is the outcome of one page request, tagged with its page index
type Result struct {
	Index    int
	Batch    detection.Batch
	Err      error
	Duration time.Duration
}

// Dispatcher sends pages to a provider
type Dispatcher struct {
	Provider    providers.Provider
	Config      providers.Config
	Concurrency int
}

// Run analyzes every page and returns one result per page, in page order.
// A failing page never cancels its siblings; its error is carried in the
// result instead.
func (d *Dispatcher) Run(ctx context.Context, pages []providers.Page) []Result {
	results := make([]Result, len(pages))

	limit := d.Concurrency
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for slot, page := range pages {
		g.Go(func() error {
			results[slot] = d.analyze(ctx, page)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) analyze(ctx context.Context, page providers.Page) Result {
	start := time.Now()
	result := Result{Index: page.Index}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	pageCtx := ctx
	if d.Config.Timeout > 0 {
		var cancel context.CancelFunc
		pageCtx, cancel = context.WithTimeout(ctx, d.Config.Timeout)
		defer cancel()
	}

	slog.Debug("Sending page for OCR", "page", page.Index, "provider", d.Provider.Name(), "bytes", len(page.Image))
	batch, err := d.Provider.Analyze(pageCtx, d.Config, page)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = fmt.Errorf("page %d: %w", page.Index, err)
		slog.Error("OCR failed for page", "page", page.Index, "provider", d.Provider.Name(), "err", utils.MaskSensitiveError(err))
		return result
	}

	result.Batch = batch
	slog.Info("OCR complete for page", "page", page.Index, "blocks", len(batch.Blocks), "duration", result.Duration)
	return result
}

// Batches builds the dense per-page response list for a document of
// pageCount pages. Failed pages get an empty batch with Error set, and pages
// without any result get an empty batch.
func Batches(results []Result, pageCount int) []detection.Batch {
	batches := make([]detection.Batch, pageCount)
	for i := range batches {
		batches[i].Blocks = []detection.Detection{}
	}

	for _, r := range results {
		if r.Index < 0 || r.Index >= pageCount {
			slog.Warn("Dropping OCR result for page outside the document", "page", r.Index, "pages", pageCount)
			continue
		}
		if r.Err != nil {
			batches[r.Index].Error = utils.MaskSensitiveError(r.Err).Error()
			continue
		}
		batches[r.Index] = r.Batch
		if batches[r.Index].Blocks == nil {
			batches[r.Index].Blocks = []detection.Detection{}
		}
	}
	return batches
}

// Failed lists the page indexes whose request failed
func Failed(results []Result) []int {
	var failed []int
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Index)
		}
	}
	return failed
}
