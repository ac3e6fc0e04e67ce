package overlay

import (
	"math"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/detection"
)

// Rotation is a text angle in degrees. Composers turn the text
// counter-clockwise by this angle around its anchor.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Classify derives the word rotation from the direction of its top edge.
// OCR engines report the corners in the word's own frame, so the vector from
// TopLeft to TopRight points along the reading direction.
func Classify(q detection.Quad) Rotation {
	dy := q.TopRight.Y - q.TopLeft.Y
	dx := q.TopRight.X - q.TopLeft.X
	return classifyAngle(math.Atan2(dy, dx) * 180 / math.Pi)
}

// classifyAngle buckets an angle in (-180, 180] into 90 degree sectors
// centered on the cardinal directions.
func classifyAngle(angle float64) Rotation {
	switch {
	case angle >= -45 && angle < 45:
		return Rotate0
	case angle >= 45 && angle < 135:
		return Rotate90
	case angle >= 135 || angle < -135:
		return Rotate180
	default:
		return Rotate270
	}
}
