// Package compose writes page plans into a PDF: a background for every page
// and the positioned OCR words on an optional-content layer above it.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/overlay"
)

const (
	fontFamily      = "Helvetica"
	DefaultLayer    = "OCR Text"
	debugLineWidth  = 0.5
	debugBoxChannel = 255
)

var ErrNoPages = errors.New("document has no pages")

// Options configures the output document
type Options struct {
	// LayerName names the optional-content group holding the words. Empty
	// writes the words straight onto the page.
	LayerName string
	// Optimize runs the finished document through pdfcpu to drop unused
	// objects
	Optimize bool
	Creator  string
}

// BackgroundKind selects what is drawn under the words
type BackgroundKind int

const (
	BackgroundNone BackgroundKind = iota
	BackgroundImage
	BackgroundVector
)

// Background is the visible content of an output page
type Background struct {
	Kind BackgroundKind
	// JPEG holds the rendered page for BackgroundImage
	JPEG []byte
	// Source and Page (0-based) name the page to import for BackgroundVector
	Source []byte
	Page   int
}

// ImageBackground draws a rendered JPEG over the whole page
func ImageBackground(jpeg []byte) Background {
	return Background{Kind: BackgroundImage, JPEG: jpeg}
}

// VectorBackground imports the original page content unchanged
func VectorBackground(source []byte, page int) Background {
	return Background{Kind: BackgroundVector, Source: source, Page: page}
}

// Composer builds one output document. It is not safe for concurrent use.
type Composer struct {
	opts     Options
	pdf      *fpdf.Fpdf
	importer *gofpdi.Importer
	layer    int
	hasLayer bool
	pages    int
	replaced int
}

// New creates an empty document measured in points
func New(opts Options) *Composer {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	pdf.SetFont(fontFamily, "", overlay.ReferenceFontSize)
	if opts.Creator != "" {
		pdf.SetCreator(opts.Creator, true)
		pdf.SetProducer(opts.Creator, true)
	}

	c := &Composer{
		opts:     opts,
		pdf:      pdf,
		importer: gofpdi.NewImporter(),
	}
	if opts.LayerName != "" {
		c.layer = pdf.AddLayer(opts.LayerName, true)
		c.hasLayer = true
	}
	return c
}

// AddPage appends a page of the plan's size, draws bg and then every
// instruction and debug box of the plan
func (c *Composer) AddPage(plan overlay.PagePlan, bg Background) error {
	if plan.Width <= 0 || plan.Height <= 0 {
		return fmt.Errorf("page %d has invalid size %gx%g", plan.Index, plan.Width, plan.Height)
	}

	c.pdf.AddPageFormat("P", fpdf.SizeType{Wd: plan.Width, Ht: plan.Height})
	c.pages++

	if err := c.drawBackground(plan, bg); err != nil {
		return err
	}

	if c.hasLayer {
		c.pdf.BeginLayer(c.layer)
	}
	for _, inst := range plan.Instructions {
		c.drawWord(inst)
	}
	c.drawBoxes(plan.DebugBoxes)
	if c.hasLayer {
		c.pdf.EndLayer()
	}

	if err := c.pdf.Error(); err != nil {
		return fmt.Errorf("failed to compose page %d: %w", plan.Index, err)
	}
	return nil
}

func (c *Composer) drawBackground(plan overlay.PagePlan, bg Background) error {
	switch bg.Kind {
	case BackgroundImage:
		if len(bg.JPEG) == 0 {
			return fmt.Errorf("page %d has an empty background image", plan.Index)
		}
		name := fmt.Sprintf("page-%d", c.pages)
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(bg.JPEG))
		c.pdf.ImageOptions(name, 0, 0, plan.Width, plan.Height, false, opts, 0, "")
	case BackgroundVector:
		rs := io.ReadSeeker(bytes.NewReader(bg.Source))
		tpl := c.importer.ImportPageFromStream(c.pdf, &rs, bg.Page+1, "/MediaBox")
		c.importer.UseImportedTemplate(c.pdf, tpl, 0, 0, plan.Width, plan.Height)
	case BackgroundNone:
	default:
		return fmt.Errorf("unknown background kind %d", bg.Kind)
	}

	if err := c.pdf.Error(); err != nil {
		return fmt.Errorf("failed to draw background of page %d: %w", plan.Index, err)
	}
	return nil
}

func (c *Composer) drawWord(inst overlay.Instruction) {
	text, replaced := encodeText(inst.Text)
	if replaced > 0 {
		c.replaced += replaced
		slog.Debug("Replaced characters outside the overlay font", "text", inst.Text, "replaced", replaced)
	}

	c.pdf.SetFontSize(inst.FontSize)
	c.pdf.SetTextColor(channel(inst.Color.R), channel(inst.Color.G), channel(inst.Color.B))
	c.pdf.SetAlpha(inst.Opacity, "Normal")

	if inst.Rotation != overlay.Rotate0 {
		c.pdf.TransformBegin()
		c.pdf.TransformRotate(float64(inst.Rotation), inst.Anchor.X, inst.Anchor.Y)
		c.pdf.Text(inst.Anchor.X, inst.Anchor.Y, text)
		c.pdf.TransformEnd()
	} else {
		c.pdf.Text(inst.Anchor.X, inst.Anchor.Y, text)
	}

	c.pdf.SetAlpha(1, "Normal")
}

func (c *Composer) drawBoxes(boxes []overlay.AbsoluteBox) {
	if len(boxes) == 0 {
		return
	}
	c.pdf.SetDrawColor(debugBoxChannel, 0, 0)
	c.pdf.SetLineWidth(debugLineWidth)
	for _, b := range boxes {
		c.pdf.Rect(b.Left, b.Top, b.Width, b.Height, "D")
	}
}

// PageCount returns the number of pages added so far
func (c *Composer) PageCount() int {
	return c.pages
}

// Replaced returns how many characters had no glyph in the overlay font
func (c *Composer) Replaced() int {
	return c.replaced
}

// Bytes finishes the document. The composer cannot be used afterwards.
func (c *Composer) Bytes() ([]byte, error) {
	if c.pages == 0 {
		return nil, ErrNoPages
	}

	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	if !c.opts.Optimize {
		return buf.Bytes(), nil
	}

	var optimized bytes.Buffer
	if err := api.Optimize(bytes.NewReader(buf.Bytes()), &optimized, model.NewDefaultConfiguration()); err != nil {
		slog.Warn("Could not optimize output, writing it unoptimized", "err", err)
		return buf.Bytes(), nil
	}
	slog.Debug("Optimized output", "before", buf.Len(), "after", optimized.Len())
	return optimized.Bytes(), nil
}

func channel(v float64) int {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return int(v*255 + 0.5)
	}
}
