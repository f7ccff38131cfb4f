// Package fontface supplies font faces for drawing onto page canvases.
package fontface

import (
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	parseOnce sync.Once
	regular   *opentype.Font
	parseErr  error
)

func regularFont() (*opentype.Font, error) {
	parseOnce.Do(func() {
		regular, parseErr = opentype.Parse(goregular.TTF)
	})
	return regular, parseErr
}

// Cache hands out faces by size. Faces are not safe for concurrent use, so a
// Cache belongs to a single render pass.
type Cache struct {
	faces map[float64]font.Face
}

// NewCache returns an empty face cache.
func NewCache() *Cache {
	return &Cache{faces: make(map[float64]font.Face)}
}

// Face returns a face of roughly size pixels, falling back to a fixed bitmap
// face if the outline font cannot be loaded.
func (c *Cache) Face(size float64) font.Face {
	size = math.Max(1, math.Round(size*2)/2)
	if f, ok := c.faces[size]; ok {
		return f
	}
	var face font.Face = basicfont.Face7x13
	if otf, err := regularFont(); err == nil {
		if f, err := opentype.NewFace(otf, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		}); err == nil {
			face = f
		}
	}
	c.faces[size] = face
	return face
}

// Close releases the cached faces.
func (c *Cache) Close() {
	for _, f := range c.faces {
		_ = f.Close()
	}
	c.faces = make(map[float64]font.Face)
}

// Measure returns the advance width of s in pixels.
func Measure(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}

// Ascent returns the face ascent in pixels.
func Ascent(face font.Face) float64 {
	return float64(face.Metrics().Ascent) / 64
}

// Descent returns the face descent in pixels.
func Descent(face font.Face) float64 {
	return float64(face.Metrics().Descent) / 64
}

// Point converts pixel coordinates to a 26.6 fixed point dot.
func Point(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{X: fixed.Int26_6(math.Round(x * 64)), Y: fixed.Int26_6(math.Round(y * 64))}
}

// Truncate shortens s with a trailing ellipsis until it fits width pixels.
func Truncate(face font.Face, s string, width float64) string {
	if Measure(face, s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if Measure(face, candidate) <= width {
			return candidate
		}
	}
	return ""
}
