package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
)

const (
	DefaultDPI     = 100
	DefaultQuality = 85
)

// Rasterizer renders one page of a PDF to a JPEG image
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, index int) ([]byte, error)
}

// MagickRasterizer renders pages with ImageMagick (which delegates to
// Ghostscript for PDF input)
type MagickRasterizer struct {
	DPI     int
	Quality int
	// Binary defaults to "magick"
	Binary string
}

// Rasterize renders the 0-based page index at the configured resolution
func (m MagickRasterizer) Rasterize(ctx context.Context, data []byte, index int) ([]byte, error) {
	tmp, err := os.CreateTemp("", "ocrpdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	args := m.args(tmp.Name(), index)
	slog.Debug("Rasterizing page", "page", index, "dpi", m.dpi(), "quality", m.quality())

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.binary(), args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize page %d: %w: %s", index, err, bytes.TrimSpace(stderr.Bytes()))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("failed to rasterize page %d: no image produced", index)
	}

	return out, nil
}

func (m MagickRasterizer) args(path string, index int) []string {
	return []string{
		"-density", strconv.Itoa(m.dpi()),
		fmt.Sprintf("%s[%d]", path, index),
		"-background", "white",
		"-alpha", "remove",
		"-colorspace", "sRGB",
		"-quality", strconv.Itoa(m.quality()),
		"jpg:-",
	}
}

func (m MagickRasterizer) binary() string {
	if m.Binary == "" {
		return "magick"
	}
	return m.Binary
}

func (m MagickRasterizer) dpi() int {
	if m.DPI <= 0 {
		return DefaultDPI
	}
	return m.DPI
}

func (m MagickRasterizer) quality() int {
	if m.Quality <= 0 || m.Quality > 100 {
		return DefaultQuality
	}
	return m.Quality
}
