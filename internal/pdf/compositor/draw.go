package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/fontface"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/vector"
)

// pixelRect converts a canvas rect to the covering pixel rectangle.
func pixelRect(r geometry.Rect) image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height)),
	)
}

func fillRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

// strokeRect draws a border of width t inside r.
func strokeRect(dst *image.RGBA, r image.Rectangle, t int, c color.Color) {
	if t < 1 {
		t = 1
	}
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y+t, r.Min.X+t, r.Max.Y-t), c)
	fillRect(dst, image.Rect(r.Max.X-t, r.Min.Y+t, r.Max.X, r.Max.Y-t), c)
}

// polygon fills a polygon whose points are given in canvas pixels.
func polygon(dst *image.RGBA, pts []geometry.Point, c color.Color) {
	if len(pts) < 3 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	box := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
	clip := box.Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}

	// The rasterizer does not clip to dst, so it covers only the visible part.
	z := vector.NewRasterizer(clip.Dx(), clip.Dy())
	ox, oy := float64(clip.Min.X), float64(clip.Min.Y)
	z.MoveTo(float32(pts[0].X-ox), float32(pts[0].Y-oy))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	z.ClosePath()
	z.Draw(dst, clip, image.NewUniform(c), image.Point{})
}

// checkGlyph draws a tick inside r.
func checkGlyph(dst *image.RGBA, r geometry.Rect, c color.Color) {
	unit := []geometry.Point{
		{X: 0.12, Y: 0.55}, {X: 0.26, Y: 0.42}, {X: 0.42, Y: 0.6},
		{X: 0.76, Y: 0.16}, {X: 0.9, Y: 0.28}, {X: 0.42, Y: 0.86},
	}
	side := math.Min(r.Width, r.Height)
	x0 := r.X + (r.Width-side)/2
	y0 := r.Y + (r.Height-side)/2
	pts := make([]geometry.Point, len(unit))
	for i, u := range unit {
		pts[i] = geometry.Point{X: x0 + u.X*side, Y: y0 + u.Y*side}
	}
	polygon(dst, pts, c)
}

// caret draws a downward triangle at the right edge of r.
func caret(dst *image.RGBA, r geometry.Rect, c color.Color) {
	h := math.Min(r.Height*0.3, 10)
	w := h * 1.6
	cx := r.X + r.Width - w/2 - 6
	cy := r.Y + r.Height/2
	polygon(dst, []geometry.Point{
		{X: cx - w/2, Y: cy - h/2},
		{X: cx + w/2, Y: cy - h/2},
		{X: cx, Y: cy + h/2},
	}, c)
}

// text draws s left-aligned and vertically centred in r, clipped to r.
func text(dst *image.RGBA, r geometry.Rect, s string, face font.Face, c color.Color) {
	clip := pixelRect(r).Intersect(dst.Bounds())
	if clip.Empty() || s == "" {
		return
	}
	sub, ok := dst.SubImage(clip).(*image.RGBA)
	if !ok {
		return
	}
	ascent, descent := fontface.Ascent(face), fontface.Descent(face)
	baseline := r.Y + (r.Height+ascent-descent)/2
	d := font.Drawer{
		Dst:  sub,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fontface.Point(r.X+textInset, baseline),
	}
	d.DrawString(s)
}

const textInset = 4

// bitmap scales src into r.
func bitmap(dst *image.RGBA, r geometry.Rect, src image.Image) {
	pr := pixelRect(r)
	if pr.Empty() || src == nil {
		return
	}
	xdraw.CatmullRom.Scale(dst, pr, src, src.Bounds(), xdraw.Over, nil)
}
