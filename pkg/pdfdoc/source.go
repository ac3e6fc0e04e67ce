// Package pdfdoc inspects source PDFs and renders their pages to images.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrNoPages = errors.New("pdf has no pages")

// PageSize is a page's width and height in PDF points
type PageSize struct {
	Width  float64
	Height float64
}

// Source is a parsed input document
type Source struct {
	data  []byte
	sizes []PageSize
}

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Open parses data and reads the size of every page. An unreadable document
// is an error; nothing can be produced from it.
func Open(data []byte) (*Source, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to read pdf: empty input")
	}

	dims, err := api.PageDims(bytes.NewReader(data), configuration())
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	if len(dims) == 0 {
		return nil, ErrNoPages
	}

	sizes := make([]PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = PageSize{Width: d.Width, Height: d.Height}
	}

	return &Source{data: data, sizes: sizes}, nil
}

// PageCount returns the number of pages
func (s *Source) PageCount() int {
	return len(s.sizes)
}

// PageSize returns the size of the 0-based page index
func (s *Source) PageSize(index int) (PageSize, error) {
	if index < 0 || index >= len(s.sizes) {
		return PageSize{}, fmt.Errorf("page %d out of range [0,%d)", index, len(s.sizes))
	}
	return s.sizes[index], nil
}

// Bytes returns the original document
func (s *Source) Bytes() []byte {
	return s.data
}
