package raster

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"
)

type point struct{ x, y float64 }

// path is a list of flattened subpaths in device space.
type path struct {
	subpaths [][]point
	closed   []bool
}

func (p *path) moveTo(pt point) {
	p.subpaths = append(p.subpaths, []point{pt})
	p.closed = append(p.closed, false)
}

func (p *path) lineTo(pt point) {
	if len(p.subpaths) == 0 {
		p.moveTo(pt)
		return
	}
	i := len(p.subpaths) - 1
	p.subpaths[i] = append(p.subpaths[i], pt)
}

func (p *path) current() (point, bool) {
	if len(p.subpaths) == 0 {
		return point{}, false
	}
	sp := p.subpaths[len(p.subpaths)-1]
	return sp[len(sp)-1], true
}

const curveSteps = 16

// curveTo flattens a cubic Bézier from the current point.
func (p *path) curveTo(c1, c2, end point) {
	start, ok := p.current()
	if !ok {
		p.moveTo(end)
		return
	}
	for i := 1; i <= curveSteps; i++ {
		t := float64(i) / curveSteps
		mt := 1 - t
		a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
		p.lineTo(point{
			x: a*start.x + b*c1.x + c*c2.x + d*end.x,
			y: a*start.y + b*c1.y + c*c2.y + d*end.y,
		})
	}
}

func (p *path) closePath() {
	if len(p.closed) > 0 {
		p.closed[len(p.closed)-1] = true
	}
}

func (p *path) reset() {
	p.subpaths = p.subpaths[:0]
	p.closed = p.closed[:0]
}

func (p *path) empty() bool {
	return len(p.subpaths) == 0
}

// painter fills device-space polygons onto an RGBA surface.
type painter struct {
	dst *image.RGBA
	z   *vector.Rasterizer
}

func newPainter(dst *image.RGBA) *painter {
	b := dst.Bounds()
	return &painter{dst: dst, z: vector.NewRasterizer(b.Dx(), b.Dy())}
}

func (pt *painter) draw(c color.Color) {
	b := pt.dst.Bounds()
	pt.z.Draw(pt.dst, b, image.NewUniform(c), image.Point{})
	pt.z.Reset(b.Dx(), b.Dy())
}

// fill paints the interior of every subpath. Even-odd fills are rendered
// with the non-zero rule.
func (pt *painter) fill(p *path, c color.Color) {
	drew := false
	for _, sp := range p.subpaths {
		if len(sp) < 3 {
			continue
		}
		pt.z.MoveTo(float32(sp[0].x), float32(sp[0].y))
		for _, q := range sp[1:] {
			pt.z.LineTo(float32(q.x), float32(q.y))
		}
		pt.z.ClosePath()
		drew = true
	}
	if drew {
		pt.draw(c)
	}
}

// stroke paints each segment as a quad of the given device width.
func (pt *painter) stroke(p *path, width float64, c color.Color) {
	hw := math.Max(width, 1) / 2
	drew := false
	for i, sp := range p.subpaths {
		pts := sp
		if p.closed[i] && len(sp) > 1 {
			pts = append(append([]point(nil), sp...), sp[0])
		}
		for j := 1; j < len(pts); j++ {
			a, b := pts[j-1], pts[j]
			dx, dy := b.x-a.x, b.y-a.y
			l := math.Hypot(dx, dy)
			if l == 0 {
				continue
			}
			nx, ny := -dy/l*hw, dx/l*hw
			pt.z.MoveTo(float32(a.x+nx), float32(a.y+ny))
			pt.z.LineTo(float32(b.x+nx), float32(b.y+ny))
			pt.z.LineTo(float32(b.x-nx), float32(b.y-ny))
			pt.z.LineTo(float32(a.x-nx), float32(a.y-ny))
			pt.z.ClosePath()
			drew = true
		}
	}
	if drew {
		pt.draw(c)
	}
}
