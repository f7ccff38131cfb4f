// Package compositor draws the visible layer of every page: the raster, the
// field boxes, the entered values and the placed signatures.
package compositor

import (
	"image/color"
	"math"
)

// Options tune the drawing.
type Options struct {
	// PreviewPadding is added to measured text width when a field grows in
	// Preview.
	PreviewPadding float64
	// PreviewWidthCap bounds Preview growth as a multiple of the field width.
	PreviewWidthCap float64
	// Border is the field box stroke width in pixels.
	Border float64
	// DragBorder is the overlay stroke width while it is dragged.
	DragBorder float64
	MinFontSize float64
	MaxFontSize float64
}

// DefaultOptions returns the stock drawing options.
func DefaultOptions() Options {
	return Options{
		PreviewPadding:  8,
		PreviewWidthCap: 3,
		Border:          2,
		DragBorder:      3,
		MinFontSize:     8,
		MaxFontSize:     28,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.PreviewPadding < 0 {
		o.PreviewPadding = d.PreviewPadding
	}
	if o.PreviewWidthCap < 1 {
		o.PreviewWidthCap = d.PreviewWidthCap
	}
	if o.Border <= 0 {
		o.Border = d.Border
	}
	if o.DragBorder <= 0 {
		o.DragBorder = d.DragBorder
	}
	if o.MinFontSize <= 0 {
		o.MinFontSize = d.MinFontSize
	}
	if o.MaxFontSize < o.MinFontSize {
		o.MaxFontSize = math.Max(d.MaxFontSize, o.MinFontSize)
	}
	return o
}

// Box classes, in the order they are checked.
var (
	colorActive   = color.NRGBA{R: 245, G: 158, B: 11, A: 255}
	colorSigned   = color.NRGBA{R: 107, G: 114, B: 128, A: 255}
	colorUnsigned = color.NRGBA{R: 225, G: 29, B: 72, A: 255}
	colorVirtual  = color.NRGBA{R: 124, G: 58, B: 237, A: 255}
	colorDetected = color.NRGBA{R: 37, G: 99, B: 235, A: 255}

	colorText        = color.NRGBA{R: 17, G: 24, B: 39, A: 255}
	colorPlaceholder = color.NRGBA{R: 156, G: 163, B: 175, A: 255}
	colorOverlay     = color.NRGBA{R: 148, G: 163, B: 184, A: 255}
)

const fillAlpha = 40

func tint(c color.NRGBA) color.NRGBA {
	c.A = fillAlpha
	return c
}

type colorPair struct {
	stroke color.NRGBA
	fill   color.NRGBA
}

func pair(c color.NRGBA) colorPair {
	return colorPair{stroke: c, fill: tint(c)}
}
