package raster

import (
	"fmt"
	"image"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/fontface"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/wrapper"
	"github.com/ledongthuc/pdf"
	"golang.org/x/image/font"
)

// textRun is a positioned string in PDF user space.
type textRun struct {
	x, y, size float64
	s          string
}

// readTextRuns decodes the text of every page, one slice per page.
func readTextRuns(doc []byte) (runs [][]textRun, err error) {
	defer func() {
		if r := recover(); r != nil {
			runs, err = nil, fmt.Errorf("text decoder panicked: %v", r)
		}
	}()

	reader, err := wrapper.OpenText(doc)
	if err != nil {
		return nil, err
	}

	n := reader.NumPage()
	runs = make([][]textRun, n)
	for i := 1; i <= n; i++ {
		runs[i-1] = pageTextRuns(reader, i)
	}
	return runs, nil
}

func pageTextRuns(reader *pdf.Reader, i int) (runs []textRun) {
	defer func() {
		if recover() != nil {
			runs = nil
		}
	}()

	page := reader.Page(i)
	if page.V.IsNull() {
		return nil
	}
	for _, t := range page.Content().Text {
		if t.S == "" || t.FontSize <= 0 || t.FontSize > 500 {
			continue
		}
		runs = append(runs, textRun{x: t.X, y: t.Y, size: t.FontSize, s: t.S})
	}
	return runs
}

func drawTextRuns(dst *image.RGBA, runs []textRun, base matrix, faces *fontface.Cache) {
	s := base.scale()
	for _, r := range runs {
		x, y := base.apply(r.x, r.y)
		d := font.Drawer{
			Dst:  dst,
			Src:  image.Black,
			Face: faces.Face(r.size * s),
			Dot:  fontface.Point(x, y),
		}
		d.DrawString(r.s)
	}
}
