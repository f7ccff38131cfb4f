// Package raster renders PDF pages to RGBA bitmaps for on-screen placement
// of form values and signatures.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log"
	"math"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/fontface"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/wrapper"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultScale is the zoom factor applied to page sizes in points.
const DefaultScale = 1.5

// maxPagePixels bounds the canvas allocated for one page.
const maxPagePixels = 1 << 28

// Letter dimensions used when a page carries no media box.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// Page is a rendered page and its geometry.
type Page struct {
	Geometry geometry.PageGeometry
	Image    *image.RGBA
}

// Rasterizer renders every page of a document at a fixed scale.
type Rasterizer struct {
	Scale  float64
	Logger *log.Logger
}

// NewRasterizer creates a rasterizer. A non-positive scale selects DefaultScale.
func NewRasterizer(scale float64, logger *log.Logger) *Rasterizer {
	if scale <= 0 {
		scale = DefaultScale
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Rasterizer{Scale: scale, Logger: logger}
}

// Rasterize renders all pages in order. Any failure aborts the whole load
// with a DocumentLoad error; there is no partial result.
func (r *Rasterizer) Rasterize(ctx context.Context, doc []byte) ([]Page, error) {
	buf := bytes.Clone(doc)

	pctx, err := wrapper.OpenContext(buf)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrorTypeDocumentLoad, err, "cannot parse document")
	}
	if pctx.PageCount == 0 {
		return nil, errors.NewPDFError(errors.ErrorTypeDocumentLoad, "document has no pages")
	}

	runs, err := readTextRuns(buf)
	if err != nil {
		r.Logger.Printf("text decoding unavailable, rendering without text: %v", err)
	}

	faces := fontface.NewCache()
	defer faces.Close()

	pages := make([]Page, 0, pctx.PageCount)
	for i := 1; i <= pctx.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapError(errors.ErrorTypeDocumentLoad, err)
		}

		var pageRuns []textRun
		if len(runs) == pctx.PageCount {
			pageRuns = runs[i-1]
		}
		page, err := r.renderPage(pctx, i, pageRuns, faces)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrorTypeDocumentLoad, err, "cannot render page %d", i).WithPage(i)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (r *Rasterizer) renderPage(pctx *model.Context, pageNr int, runs []textRun, faces *fontface.Cache) (page Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			page, err = Page{}, fmt.Errorf("panic rendering page: %v", rec)
		}
	}()

	_, _, inh, err := pctx.PageDict(pageNr, true)
	if err != nil {
		return Page{}, err
	}
	if inh == nil {
		return Page{}, fmt.Errorf("missing page attributes")
	}

	llx, lly, urx, ury := 0.0, 0.0, float64(defaultPageWidth), float64(defaultPageHeight)
	if mb := inh.MediaBox; mb != nil {
		llx, lly, urx, ury = mb.LL.X, mb.LL.Y, mb.UR.X, mb.UR.Y
	}
	width, height := math.Abs(urx-llx), math.Abs(ury-lly)
	if width == 0 || height == 0 {
		return Page{}, fmt.Errorf("empty media box")
	}

	geom := geometry.NewPageGeometry(pageNr-1, width, height, r.Scale)
	if geom.PixelWidth <= 0 || geom.PixelHeight <= 0 || geom.PixelWidth > maxPagePixels/geom.PixelHeight {
		return Page{}, fmt.Errorf("page too large to render: %dx%d px", geom.PixelWidth, geom.PixelHeight)
	}
	geom = geom.WithViewport(geometry.Size{Width: width * r.Scale, Height: height * r.Scale})
	img := image.NewRGBA(image.Rect(0, 0, geom.PixelWidth, geom.PixelHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	base := deviceMatrix(math.Min(llx, urx), math.Max(lly, ury), r.Scale)

	content, err := pdfcpu.ExtractPageContent(pctx, pageNr)
	if err != nil {
		return Page{}, err
	}
	if content != nil {
		data, err := io.ReadAll(content)
		if err != nil {
			return Page{}, err
		}
		in := newInterpreter(pctx, img, base, pageNr, r.Logger)
		in.run(data, inh.Resources)
	}

	drawTextRuns(img, runs, base, faces)

	return Page{Geometry: geom, Image: img}, nil
}
