package compose

import (
	"sync"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/overlay"
)

const replacementChar = '?'

// encodeText converts text to the Windows-1252 bytes the core Helvetica
// font is written with. Characters outside the code page become '?'.
func encodeText(text string) (string, int) {
	out := make([]byte, 0, len(text))
	replaced := 0
	for _, r := range text {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = replacementChar
			replaced++
		}
		out = append(out, b)
	}
	return string(out), replaced
}

// fontMeasurer measures with the same font metrics the composer draws with
type fontMeasurer struct {
	mu  sync.Mutex
	pdf *fpdf.Fpdf
}

// NewMeasurer returns an overlay.Measurer for the overlay font. It keeps its
// own document so measuring never disturbs a page being composed, and it is
// safe for concurrent use.
func NewMeasurer() overlay.Measurer {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetFont(fontFamily, "", overlay.ReferenceFontSize)
	return &fontMeasurer{pdf: pdf}
}

func (m *fontMeasurer) TextWidth(text string, size float64) float64 {
	encoded, _ := encodeText(text)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFontSize(size)
	return m.pdf.GetStringWidth(encoded)
}
