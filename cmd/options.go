package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/ocrpdf/internal/config"
)

// addOptionFlags registers one flag per configuration key. Flags that are
// set on the command line override the --config file.
func addOptionFlags(cmd *cobra.Command) {
	d := config.Default()
	f := cmd.Flags()
	f.String("config", "", "Path to a yaml configuration file")
	f.Int("render-dpi", d.RenderDPI, "Resolution pages are rendered at for OCR")
	f.Int("image-quality", d.ImageQuality, "JPEG quality of rendered pages (1-100)")
	f.Bool("show-debug-text", d.ShowDebugText, "Draw the text layer visibly")
	f.Bool("show-debug-boxes", d.ShowDebugBoxes, "Outline every word box in red")
	f.Bool("preserve-vector-background", d.PreserveVectorBackground, "Keep the original page content instead of the rendered image")
	f.Bool("rotation-aware", d.RotationAware, "Rotate words to match their polygon")
	f.String("provider", d.Provider, "OCR provider to use: textract, azure, vision, tesseract")
	f.Int("concurrency", d.Concurrency, "Pages rendered and recognized at the same time")
	f.Duration("timeout", d.Timeout, "Timeout for a single page OCR request")
	f.StringSlice("features", d.Features, "Textract analysis features; empty for plain text detection")
	f.StringSlice("languages", d.Languages, "Language hints for the OCR provider")
	f.String("layer-name", d.LayerName, "Name of the optional content layer holding the text")
	f.Bool("optimize", d.Optimize, "Optimize the output PDF")
	f.Bool("strict", d.Strict, "Refuse input that already has a text layer")
}

// loadOptions reads --config, applies explicitly set flags and validates
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	f := cmd.Flags()
	opts := config.Default()

	path, err := f.GetString("config")
	if err != nil {
		return opts, err
	}
	if path != "" {
		opts, err = config.Load(path)
		if err != nil {
			return opts, err
		}
	}

	ints := map[string]*int{
		"render-dpi":    &opts.RenderDPI,
		"image-quality": &opts.ImageQuality,
		"concurrency":   &opts.Concurrency,
	}
	for name, dst := range ints {
		if f.Changed(name) {
			if *dst, err = f.GetInt(name); err != nil {
				return opts, err
			}
		}
	}

	bools := map[string]*bool{
		"show-debug-text":            &opts.ShowDebugText,
		"show-debug-boxes":           &opts.ShowDebugBoxes,
		"preserve-vector-background": &opts.PreserveVectorBackground,
		"rotation-aware":             &opts.RotationAware,
		"optimize":                   &opts.Optimize,
		"strict":                     &opts.Strict,
	}
	for name, dst := range bools {
		if f.Changed(name) {
			if *dst, err = f.GetBool(name); err != nil {
				return opts, err
			}
		}
	}

	strs := map[string]*string{
		"provider":   &opts.Provider,
		"layer-name": &opts.LayerName,
	}
	for name, dst := range strs {
		if f.Changed(name) {
			if *dst, err = f.GetString(name); err != nil {
				return opts, err
			}
		}
	}

	slices := map[string]*[]string{
		"features":  &opts.Features,
		"languages": &opts.Languages,
	}
	for name, dst := range slices {
		if f.Changed(name) {
			if *dst, err = f.GetStringSlice(name); err != nil {
				return opts, err
			}
		}
	}

	if f.Changed("timeout") {
		if opts.Timeout, err = f.GetDuration("timeout"); err != nil {
			return opts, err
		}
	}

	return opts, opts.Validate()
}
