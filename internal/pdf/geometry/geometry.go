// Package geometry maps rectangles between PDF user space and the
// top-left-origin pixel space of rasterized page canvases.
package geometry

import "math"

// Point is a position in canvas pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width and height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle. In canvas space X,Y is the top-left corner;
// in PDF space it is the bottom-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// PageGeometry is the metadata of a rasterized page.
type PageGeometry struct {
	Index          int     `json:"index"`
	PixelWidth     int     `json:"pixel_width"`
	PixelHeight    int     `json:"pixel_height"`
	RenderScale    float64 `json:"render_scale"`
	OriginalWidth  float64 `json:"original_width"`
	OriginalHeight float64 `json:"original_height"`

	// Viewport, when set, replaces the rounded pixel size as the forward and
	// inverse mapping target.
	Viewport *Size `json:"viewport,omitempty"`
}

// NewPageGeometry computes the pixel dimensions of a page rendered at scale.
func NewPageGeometry(index int, width, height, scale float64) PageGeometry {
	return PageGeometry{
		Index:          index,
		PixelWidth:     int(math.Ceil(width * scale)),
		PixelHeight:    int(math.Ceil(height * scale)),
		RenderScale:    scale,
		OriginalWidth:  width,
		OriginalHeight: height,
	}
}

// WithViewport returns a copy of g mapped against an explicit viewport.
func (g PageGeometry) WithViewport(v Size) PageGeometry {
	g.Viewport = &v
	return g
}

func (g PageGeometry) target() (float64, float64) {
	if g.Viewport != nil {
		return g.Viewport.Width, g.Viewport.Height
	}
	return float64(g.PixelWidth), float64(g.PixelHeight)
}

// Factors returns the horizontal and vertical pixels-per-point ratios.
func (g PageGeometry) Factors() (sx, sy float64) {
	tw, th := g.target()
	if g.OriginalWidth <= 0 || g.OriginalHeight <= 0 {
		return g.RenderScale, g.RenderScale
	}
	return tw / g.OriginalWidth, th / g.OriginalHeight
}

// Policy holds the size floors applied when mapping annotations.
type Policy struct {
	MinCanvasWidth  float64
	MinCanvasHeight float64
	MinFieldWidth   float64
	MinFieldHeight  float64
}

// DefaultPolicy returns the standard floors: 30x15 px on canvas, 100x20 pt for
// annotation rectangles.
func DefaultPolicy() Policy {
	return Policy{
		MinCanvasWidth:  30,
		MinCanvasHeight: 15,
		MinFieldWidth:   100,
		MinFieldHeight:  20,
	}
}

// ToCanvas maps a PDF rectangle to canvas pixels without any size floor.
func ToCanvas(g PageGeometry, pdf Rect) Rect {
	sx, sy := g.Factors()
	_, th := g.target()
	return Rect{
		X:      pdf.X * sx,
		Y:      th - (pdf.Y+pdf.Height)*sy,
		Width:  pdf.Width * sx,
		Height: pdf.Height * sy,
	}
}

// ToCanvasClamped maps like ToCanvas and then raises the size to
// max(MinCanvasWidth, half the scaled width) and likewise for height.
func ToCanvasClamped(g PageGeometry, pdf Rect, p Policy) Rect {
	r := ToCanvas(g, pdf)
	r.Width = math.Max(r.Width, math.Max(p.MinCanvasWidth, 0.5*r.Width))
	r.Height = math.Max(r.Height, math.Max(p.MinCanvasHeight, 0.5*r.Height))
	return r
}

// ToPDF is the inverse of ToCanvas.
func ToPDF(g PageGeometry, canvas Rect) Rect {
	sx, sy := g.Factors()
	_, th := g.target()
	return Rect{
		X:      canvas.X / sx,
		Y:      (th - canvas.Y - canvas.Height) / sy,
		Width:  canvas.Width / sx,
		Height: canvas.Height / sy,
	}
}

// NormalizeAnnotRect orders the corners of an annotation /Rect and applies the
// minimum field size in points.
func NormalizeAnnotRect(x1, y1, x2, y2 float64, p Policy) Rect {
	llx, urx := math.Min(x1, x2), math.Max(x1, x2)
	lly, ury := math.Min(y1, y2), math.Max(y1, y2)
	return Rect{
		X:      llx,
		Y:      lly,
		Width:  math.Max(urx-llx, p.MinFieldWidth),
		Height: math.Max(ury-lly, p.MinFieldHeight),
	}
}

// FitRect returns the largest rectangle with the aspect ratio of src centred
// inside box.
func FitRect(src Size, box Rect) Rect {
	if src.Width <= 0 || src.Height <= 0 || box.Width <= 0 || box.Height <= 0 {
		return box
	}
	k := math.Min(box.Width/src.Width, box.Height/src.Height)
	w, h := src.Width*k, src.Height*k
	return Rect{
		X:      box.X + (box.Width-w)/2,
		Y:      box.Y + (box.Height-h)/2,
		Width:  w,
		Height: h,
	}
}

// Centered returns the top-left position that centres a box of size s on p.
func Centered(p Point, s Size) Point {
	return Point{X: p.X - s.Width/2, Y: p.Y - s.Height/2}
}
