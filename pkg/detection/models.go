package detection

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BlockType identifies the kind of region an OCR service detected
type BlockType string

const (
	BlockPage             BlockType = "PAGE"
	BlockLine             BlockType = "LINE"
	BlockWord             BlockType = "WORD"
	BlockTable            BlockType = "TABLE"
	BlockCell             BlockType = "CELL"
	BlockKeyValueSet      BlockType = "KEY_VALUE_SET"
	BlockSelectionElement BlockType = "SELECTION_ELEMENT"
)

var (
	ErrEmptyText          = errors.New("detection has no text")
	ErrMissingGeometry    = errors.New("detection has no geometry")
	ErrMissingBoundingBox = errors.New("detection has no bounding box")
	ErrDegenerateBox      = errors.New("detection bounding box has no area")
	ErrShortPolygon       = errors.New("detection polygon has fewer than four points")
	ErrIncompleteBox      = errors.New("detection bounding box is missing a coordinate")
	ErrIncompletePolygon  = errors.New("detection polygon point is missing a coordinate")
	ErrMalformed          = errors.New("detection could not be decoded")
)

// Batch is the OCR response for a single page
type Batch struct {
	Blocks []Detection `json:"Blocks"`
	Error  string      `json:"Error,omitempty"`
}

type Detection struct {
	BlockType  BlockType `json:"BlockType"`
	Text       string    `json:"Text,omitempty"`
	Confidence float64   `json:"Confidence,omitempty"`
	Geometry   *Geometry `json:"Geometry,omitempty"`

	// decodeErr is set when the block in an OCR response could not be read
	decodeErr error
}

type Geometry struct {
	BoundingBox *NormalizedBox `json:"BoundingBox,omitempty"`
	Polygon     Polygon        `json:"Polygon,omitempty"`
}

// NormalizedBox holds coordinates as ratios of the page width and height
type NormalizedBox struct {
	Left   float64 `json:"Left"`
	Top    float64 `json:"Top"`
	Width  float64 `json:"Width"`
	Height float64 `json:"Height"`

	incomplete bool
}

// UnmarshalJSON records whether every coordinate was present, since a
// missing one would otherwise read as 0
func (b *NormalizedBox) UnmarshalJSON(data []byte) error {
	var raw struct {
		Left   *float64 `json:"Left"`
		Top    *float64 `json:"Top"`
		Width  *float64 `json:"Width"`
		Height *float64 `json:"Height"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = NormalizedBox{
		Left:       deref(raw.Left),
		Top:        deref(raw.Top),
		Width:      deref(raw.Width),
		Height:     deref(raw.Height),
		incomplete: raw.Left == nil || raw.Top == nil || raw.Width == nil || raw.Height == nil,
	}
	return nil
}

// Complete reports whether the box was decoded with all four coordinates
func (b NormalizedBox) Complete() bool {
	return !b.incomplete
}

type Point struct {
	X float64 `json:"X"`
	Y float64 `json:"Y"`

	incomplete bool
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var raw struct {
		X *float64 `json:"X"`
		Y *float64 `json:"Y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Point{X: deref(raw.X), Y: deref(raw.Y), incomplete: raw.X == nil || raw.Y == nil}
	return nil
}

// Complete reports whether the point was decoded with both coordinates
func (p Point) Complete() bool {
	return !p.incomplete
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Polygon lists corners in the order top-left, top-right, bottom-right,
// bottom-left of the word as the OCR engine read it.
type Polygon []Point

// Quad names the corners of a word outline. The corners are in the word's own
// frame, so TopLeft is not necessarily the upper-left point on the page.
type Quad struct {
	TopLeft     Point
	TopRight    Point
	BottomRight Point
	BottomLeft  Point
}

// Quad returns the named corners of the first four polygon points
func (p Polygon) Quad() (Quad, error) {
	if len(p) < 4 {
		return Quad{}, ErrShortPolygon
	}
	return Quad{
		TopLeft:     p[0],
		TopRight:    p[1],
		BottomRight: p[2],
		BottomLeft:  p[3],
	}, nil
}

// PageDetections maps a 0-based page index to that page's detections
type PageDetections map[int][]Detection

// IsWord reports whether the detection drives a text overlay
func (d Detection) IsWord() bool {
	return d.BlockType == BlockWord
}

// Validate checks that the detection carries everything needed to place it.
// The polygon is only required when rotation is derived from it.
func (d Detection) Validate(requirePolygon bool) error {
	if d.decodeErr != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, d.decodeErr)
	}
	if d.Text == "" {
		return ErrEmptyText
	}
	if d.Geometry == nil {
		return ErrMissingGeometry
	}
	if d.Geometry.BoundingBox == nil {
		return ErrMissingBoundingBox
	}
	if !d.Geometry.BoundingBox.Complete() {
		return ErrIncompleteBox
	}
	if d.Geometry.BoundingBox.Width <= 0 || d.Geometry.BoundingBox.Height <= 0 {
		return ErrDegenerateBox
	}
	if !requirePolygon {
		return nil
	}
	if len(d.Geometry.Polygon) < 4 {
		return ErrShortPolygon
	}
	for _, pt := range d.Geometry.Polygon[:4] {
		if !pt.Complete() {
			return ErrIncompletePolygon
		}
	}
	return nil
}
