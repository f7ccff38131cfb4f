package raster

import (
	"context"
	"image/color"
	"testing"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func near(t *testing.T, want, got color.RGBA) {
	t.Helper()
	diff := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	assert.True(t, diff(want.R, got.R) < 40 && diff(want.G, got.G) < 40 && diff(want.B, got.B) < 40,
		"want %v, got %v", want, got)
}

func TestRasterizeGeometry(t *testing.T) {
	r := NewRasterizer(1.5, nil)
	pages, err := r.Rasterize(context.Background(), pdftest.NameAndSign())
	require.NoError(t, err)
	require.Len(t, pages, 2)

	for i, p := range pages {
		assert.Equal(t, i, p.Geometry.Index)
		assert.Equal(t, 918, p.Geometry.PixelWidth)
		assert.Equal(t, 1188, p.Geometry.PixelHeight)
		assert.Equal(t, 612.0, p.Geometry.OriginalWidth)
		assert.Equal(t, 918, p.Image.Bounds().Dx())
		assert.Equal(t, 1188, p.Image.Bounds().Dy())
	}
}

func TestRasterizePaintsContent(t *testing.T) {
	doc := pdftest.Build(pdftest.Page{
		Width:  612,
		Height: 792,
		Content: "1 0 0 rg 100 100 50 50 re f\n" +
			"0 0 1 RG 4 w 50 400 m 250 400 l S\n" +
			"q 100 0 0 50 300 300 cm /Im1 Do Q",
		Images: map[string]pdftest.Image{
			"Im1": {Width: 2, Height: 1, RGB: []byte{255, 0, 0, 0, 255, 0}},
		},
	})

	pages, err := NewRasterizer(1, nil).Rasterize(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	img := pages[0].Image

	near(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(10, 10))
	near(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(125, 667))
	near(t, color.RGBA{0, 0, 255, 255}, img.RGBAAt(150, 392))
	near(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(310, 467))
	near(t, color.RGBA{0, 255, 0, 255}, img.RGBAAt(390, 467))
}

func TestRasterizeRejectsInvalidInput(t *testing.T) {
	_, err := NewRasterizer(1.5, nil).Rasterize(context.Background(), []byte("not a pdf"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDocumentLoad))
}

func TestRasterizeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRasterizer(1.5, nil).Rasterize(ctx, pdftest.NameAndSign())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRasterizeDoesNotRetainInput(t *testing.T) {
	doc := pdftest.NameAndSign()
	orig := append([]byte(nil), doc...)

	_, err := NewRasterizer(1.5, nil).Rasterize(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, orig, doc)
}

func TestRasterizeSkipsOversizedImage(t *testing.T) {
	doc := pdftest.Build(pdftest.Page{
		Width:   200,
		Height:  200,
		Content: "q 100 0 0 100 50 50 cm /Im0 Do Q",
		Images: map[string]pdftest.Image{
			"Im0": {Width: 1 << 32, Height: 1 << 32, RGB: []byte{255, 0, 0}},
		},
	})

	var pages []Page
	var err error
	require.NotPanics(t, func() {
		pages, err = NewRasterizer(1, nil).Rasterize(context.Background(), doc)
	})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	near(t, color.RGBA{255, 255, 255, 255}, pages[0].Image.RGBAAt(100, 100))
}

func TestRasterizeRejectsOversizedPage(t *testing.T) {
	doc := pdftest.Build(pdftest.Page{Width: 200000, Height: 200000})

	var err error
	require.NotPanics(t, func() {
		_, err = NewRasterizer(1.5, nil).Rasterize(context.Background(), doc)
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDocumentLoad))
}

func TestRasterizeMapsAgainstExactScale(t *testing.T) {
	doc := pdftest.Build(pdftest.Page{Width: 100.3, Height: 50.1})

	pages, err := NewRasterizer(1.5, nil).Rasterize(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	g := pages[0].Geometry
	assert.Equal(t, 151, g.PixelWidth)
	assert.Equal(t, 76, g.PixelHeight)
	sx, sy := g.Factors()
	assert.InDelta(t, 1.5, sx, 1e-9)
	assert.InDelta(t, 1.5, sy, 1e-9)
}
