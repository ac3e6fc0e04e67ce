// Package overlay maps OCR word detections onto page coordinates and resolves
// each word into a positioned, rotated and sized text instruction.
package overlay

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
)

// RGB is a color with components in [0,1]
type RGB struct {
	R, G, B float64
}

// Options controls how words are placed
type Options struct {
	// RotationAware derives each word's rotation from its polygon. When false
	// every word is placed at 0 degrees.
	RotationAware bool
	// ShowText makes the overlay visible, for debugging placement
	ShowText bool
	// ShowBoxes adds an outline of every word's bounding box
	ShowBoxes         bool
	Color             RGB
	ReferenceFontSize float64
}

// DefaultOptions places invisible, rotation-aware black text
func DefaultOptions() Options {
	return Options{
		RotationAware:     true,
		Color:             RGB{0, 0, 0},
		ReferenceFontSize: ReferenceFontSize,
	}
}

// Instruction is a fully resolved directive to draw one word
type Instruction struct {
	Text     string
	Anchor   Point
	Rotation Rotation
	FontSize float64
	// Opacity is 0 for invisible selectable text or 1 for visible text
	Opacity    float64
	Color      RGB
	Box        AbsoluteBox
	Degenerate bool
	// Confidence is passed through from the OCR engine, 0-100
	Confidence float64
}

// Stats counts what happened to the words of a page
type Stats struct {
	Words      int
	Placed     int
	Skipped    int
	Degenerate int
}

func (s *Stats) Add(o Stats) {
	s.Words += o.Words
	s.Placed += o.Placed
	s.Skipped += o.Skipped
	s.Degenerate += o.Degenerate
}

// PagePlan holds every instruction for a single output page
type PagePlan struct {
	Index        int
	Width        float64
	Height       float64
	Instructions []Instruction
	DebugBoxes   []AbsoluteBox
	Stats        Stats
}

// Placer turns detections into instructions. It keeps no state between calls
// and is safe for concurrent use if its Measurer is.
type Placer struct {
	opts     Options
	measurer Measurer
}

// NewPlacer creates a placer measuring text with m
func NewPlacer(opts Options, m Measurer) *Placer {
	if opts.ReferenceFontSize <= 0 {
		opts.ReferenceFontSize = ReferenceFontSize
	}
	return &Placer{opts: opts, measurer: m}
}

// PlacePage resolves every WORD detection of a page. A malformed word is
// logged and skipped; it never aborts the page.
func (p *Placer) PlacePage(index int, width, height float64, detections []detection.Detection) PagePlan {
	plan := PagePlan{
		Index:  index,
		Width:  width,
		Height: height,
	}

	for i, d := range detections {
		if !d.IsWord() {
			continue
		}
		plan.Stats.Words++

		instruction, err := p.PlaceWord(width, height, d)
		if err != nil {
			slog.Warn("Skipping malformed word", "page", index, "block", i, "text", d.Text, "err", err)
			plan.Stats.Skipped++
			continue
		}

		plan.Instructions = append(plan.Instructions, instruction)
		plan.Stats.Placed++
		if instruction.Degenerate {
			slog.Debug("Word has no measurable width, using minimum font size", "page", index, "block", i, "text", d.Text)
			plan.Stats.Degenerate++
		}
		if p.opts.ShowBoxes {
			plan.DebugBoxes = append(plan.DebugBoxes, instruction.Box)
		}
	}

	return plan
}

// PlaceWord resolves a single WORD detection on a page of the given size
func (p *Placer) PlaceWord(width, height float64, d detection.Detection) (Instruction, error) {
	if err := d.Validate(p.opts.RotationAware); err != nil {
		return Instruction{}, fmt.Errorf("invalid word detection: %w", err)
	}

	box := FromNormalized(*d.Geometry.BoundingBox).Scale(width, height)

	rotation := Rotate0
	if p.opts.RotationAware {
		quad, err := d.Geometry.Polygon.Quad()
		if err != nil {
			return Instruction{}, fmt.Errorf("invalid word polygon: %w", err)
		}
		rotation = Classify(quad)
	}

	size, degenerate := FitFontSize(d.Text, box.Width, p.opts.ReferenceFontSize, p.measurer)

	opacity := 0.0
	if p.opts.ShowText {
		opacity = 1
	}

	return Instruction{
		Text:       d.Text,
		Anchor:     Anchor(box, rotation),
		Rotation:   rotation,
		FontSize:   size,
		Opacity:    opacity,
		Color:      p.opts.Color,
		Box:        box,
		Degenerate: degenerate,
		Confidence: d.Confidence,
	}, nil
}

// Anchor returns the baseline origin for text drawn at rotation inside box
func Anchor(box AbsoluteBox, rotation Rotation) Point {
	switch rotation {
	case Rotate90:
		return Point{box.Right, box.Top}
	case Rotate180:
		return Point{box.Right, box.Top - box.Height}
	case Rotate270:
		return Point{box.Left, box.Top}
	default:
		return Point{box.Left, box.Bottom}
	}
}
