package overlay

import "github.com/lehigh-university-libraries/ocrpdf/pkg/detection"

// BoundingBox holds a detected region in normalized page coordinates
type BoundingBox struct {
	Left, Top, Width, Height float64
}

// AbsoluteBox is a region in output page units (points)
type AbsoluteBox struct {
	Left, Top, Right, Bottom, Width, Height float64
}

// Point is a position in output page units
type Point struct {
	X, Y float64
}

// FromNormalized copies the normalized fields of an OCR bounding box
func FromNormalized(b detection.NormalizedBox) BoundingBox {
	return BoundingBox{
		Left:   b.Left,
		Top:    b.Top,
		Width:  b.Width,
		Height: b.Height,
	}
}

// Scale converts the box to absolute units for a page of the given size.
// Values outside [0,1] are passed through unchanged.
func (b BoundingBox) Scale(pageWidth, pageHeight float64) AbsoluteBox {
	abs := AbsoluteBox{
		Left:   b.Left * pageWidth,
		Top:    b.Top * pageHeight,
		Width:  b.Width * pageWidth,
		Height: b.Height * pageHeight,
	}
	abs.Right = abs.Left + abs.Width
	abs.Bottom = abs.Top + abs.Height
	return abs
}
