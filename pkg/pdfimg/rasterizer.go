// Package pdfimg renders PDF pages to JPEG artifacts suitable for OCR-based
// grading. Rendering is backed by MuPDF via go-fitz.
package pdfimg

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"
)

// ErrRenderFailed indicates a page could not be rendered. The failure is
// fatal for the whole PDF; no partial page set is returned.
var ErrRenderFailed = errors.New("pdf render failed")

const (
	// renderDPI is 2.0x the PDF base resolution of 72 DPI. The upscale keeps
	// checkmarks and handwriting legible for the OCR model.
	renderDPI = 144

	jpegQuality = 85
)

// Page is a single rendered page image.
type Page struct {
	Name string
	Data []byte
}

// Rasterizer converts PDF bytes into ordered page images.
type Rasterizer struct {
	logger zerolog.Logger
}

// New constructs a Rasterizer.
func New(logger zerolog.Logger) *Rasterizer {
	return &Rasterizer{
		logger: logger.With().Str("component", "pdf_rasterizer").Logger(),
	}
}

// Rasterize renders every page of the PDF, in page order, at a fixed 2.0x
// upscale. Page names follow the form <base>_page_<n>.jpg with n starting
// at 1, where base is the original file name without its extension.
func (r *Rasterizer) Rasterize(pdf []byte, originalName string) ([]Page, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: open document: %v", ErrRenderFailed, err)
	}
	defer doc.Close()

	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	if base == "" {
		base = "document"
	}

	pages := make([]Page, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, renderDPI)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrRenderFailed, i+1, err)
		}

		buf := bytes.Buffer{}
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return nil, fmt.Errorf("%w: encode page %d: %v", ErrRenderFailed, i+1, err)
		}

		pages = append(pages, Page{
			Name: fmt.Sprintf("%s_page_%d.jpg", base, i+1),
			Data: buf.Bytes(),
		})
	}

	r.logger.Debug().Str("file", originalName).Int("pages", len(pages)).Msg("pdf rasterized")

	return pages, nil
}
