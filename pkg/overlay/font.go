package overlay

import "math"

const (
	// ReferenceFontSize is the size text is measured at before scaling
	ReferenceFontSize = 15.0
	// MinFontSize is used when a word cannot be fitted
	MinFontSize = 1.0
)

// Measurer returns the rendered width of text in the overlay face at size
type Measurer interface {
	TextWidth(text string, size float64) float64
}

// MeasurerFunc adapts a function to Measurer
type MeasurerFunc func(text string, size float64) float64

func (f MeasurerFunc) TextWidth(text string, size float64) float64 {
	return f(text, size)
}

// FitFontSize scales the reference size so text spans boxWidth, assuming the
// glyph run grows linearly with font size. degenerate is true when the text
// has no measurable width and the minimum size was used instead.
func FitFontSize(text string, boxWidth, referenceSize float64, m Measurer) (size float64, degenerate bool) {
	if referenceSize <= 0 {
		referenceSize = ReferenceFontSize
	}
	if text == "" {
		return MinFontSize, true
	}

	measured := m.TextWidth(text, referenceSize)
	if !(measured > 0) || math.IsInf(measured, 0) {
		return MinFontSize, true
	}

	size = math.Floor(boxWidth / measured * referenceSize)
	if size < MinFontSize {
		size = MinFontSize
	}
	return size, false
}
