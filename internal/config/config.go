// Package config holds the conversion settings that can be read from a yaml
// file and overridden by flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/compose"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/overlay"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/pdfdoc"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/providers"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/searchable"
)

var ErrInvalid = errors.New("invalid configuration")

type Options struct {
	RenderDPI                int           `yaml:"render_dpi"`
	ImageQuality             int           `yaml:"image_quality"`
	ShowDebugText            bool          `yaml:"show_debug_text"`
	ShowDebugBoxes           bool          `yaml:"show_debug_boxes"`
	PreserveVectorBackground bool          `yaml:"preserve_vector_background"`
	RotationAware            bool          `yaml:"rotation_aware"`
	Provider                 string        `yaml:"provider"`
	Concurrency              int           `yaml:"concurrency"`
	Timeout                  time.Duration `yaml:"timeout"`
	Features                 []string      `yaml:"features"`
	Languages                []string      `yaml:"languages"`
	LayerName                string        `yaml:"layer_name"`
	Optimize                 bool          `yaml:"optimize"`
	Strict                   bool          `yaml:"strict"`
}

func Default() Options {
	return Options{
		RenderDPI:     pdfdoc.DefaultDPI,
		ImageQuality:  pdfdoc.DefaultQuality,
		RotationAware: true,
		Provider:      "textract",
		Concurrency:   4,
		Timeout:       2 * time.Minute,
		Features:      []string{"TABLES", "FORMS"},
		LayerName:     compose.DefaultLayer,
		Optimize:      true,
	}
}

// Load reads path on top of the defaults. Unknown keys are an error.
func Load(path string) (Options, error) {
	opts := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return opts, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return opts, opts.Validate()
}

func (o Options) Validate() error {
	switch {
	case o.RenderDPI < 36 || o.RenderDPI > 1200:
		return fmt.Errorf("%w: render_dpi %d must be between 36 and 1200", ErrInvalid, o.RenderDPI)
	case o.ImageQuality < 1 || o.ImageQuality > 100:
		return fmt.Errorf("%w: image_quality %d must be between 1 and 100", ErrInvalid, o.ImageQuality)
	case o.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalid)
	case o.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalid)
	case o.Provider == "":
		return fmt.Errorf("%w: provider is required", ErrInvalid)
	}
	return nil
}

// Rasterizer returns the page renderer for these options
func (o Options) Rasterizer() pdfdoc.MagickRasterizer {
	return pdfdoc.MagickRasterizer{DPI: o.RenderDPI, Quality: o.ImageQuality}
}

// Searchable converts the options into conversion settings
func (o Options) Searchable() searchable.Options {
	placement := overlay.DefaultOptions()
	placement.RotationAware = o.RotationAware
	placement.ShowText = o.ShowDebugText
	placement.ShowBoxes = o.ShowDebugBoxes

	return searchable.Options{
		Overlay:                  placement,
		PreserveVectorBackground: o.PreserveVectorBackground,
		LayerName:                o.LayerName,
		Optimize:                 o.Optimize,
		Concurrency:              o.Concurrency,
		Strict:                   o.Strict,
		OCR: providers.Config{
			Provider:  o.Provider,
			Features:  o.Features,
			Languages: o.Languages,
			Timeout:   o.Timeout,
		},
	}
}
