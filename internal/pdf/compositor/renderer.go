package compositor

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"math"
	"sync"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/fontface"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/interaction"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/raster"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/store"
	"golang.org/x/image/font"
)

// Renderer composes page canvases. Decoded signature images are cached by
// data URI.
type Renderer struct {
	Options Options

	mu     sync.Mutex
	images map[string]image.Image
}

// NewRenderer creates a renderer.
func NewRenderer(opts Options) *Renderer {
	return &Renderer{Options: opts.normalized(), images: make(map[string]image.Image)}
}

// Scene is everything drawn on top of the rasters.
type Scene struct {
	Fields   []annotation.FieldRecord
	Values   map[string]store.Value
	Overlays []store.Overlay
	Mode     interaction.Mode
}

// Render composes every page, keyed by page index.
func (r *Renderer) Render(pages []raster.Page, scene Scene) map[int]*image.RGBA {
	faces := fontface.NewCache()
	defer faces.Close()

	out := make(map[int]*image.RGBA, len(pages))
	for _, p := range pages {
		out[p.Geometry.Index] = r.compose(p, scene, faces)
	}
	return out
}

// Compose draws a single page.
func (r *Renderer) Compose(page raster.Page, scene Scene) *image.RGBA {
	faces := fontface.NewCache()
	defer faces.Close()
	return r.compose(page, scene, faces)
}

func (r *Renderer) compose(page raster.Page, scene Scene, faces *fontface.Cache) *image.RGBA {
	idx := page.Geometry.Index
	dst := image.NewRGBA(page.Image.Bounds())
	draw.Draw(dst, dst.Bounds(), page.Image, page.Image.Bounds().Min, draw.Src)

	mode := scene.Mode
	if mode == nil {
		mode = interaction.View{}
	}
	preview := interaction.IsPreview(mode)
	active, _ := interaction.ActiveField(mode)

	var fields []annotation.FieldRecord
	for _, f := range scene.Fields {
		if f.Page == idx {
			fields = append(fields, f)
		}
	}

	if !preview {
		for _, f := range fields {
			r.drawBox(dst, f, scene.Values[f.ID], f.ID == active)
		}
	}
	for _, f := range fields {
		r.drawContent(dst, f, scene.Values[f.ID], preview, faces)
	}

	dragged, _ := interaction.DraggedOverlay(mode)
	for _, o := range scene.Overlays {
		if o.Page != idx {
			continue
		}
		bitmap(dst, o.Rect(), o.Bitmap)
		switch {
		case o.ID == dragged:
			strokeRect(dst, pixelRect(o.Rect()), int(r.Options.DragBorder), colorActive)
		case !preview:
			strokeRect(dst, pixelRect(o.Rect()), 1, colorOverlay)
		}
	}
	return dst
}

// boxColor classifies a field for its border.
func boxColor(f annotation.FieldRecord, v store.Value, active bool) (c colorPair) {
	switch {
	case active:
		return pair(colorActive)
	case f.Kind == annotation.SignatureField && v != nil && !v.Empty():
		return pair(colorSigned)
	case f.Kind == annotation.SignatureField:
		return pair(colorUnsigned)
	case annotation.IsVirtual(f.Origin):
		return pair(colorVirtual)
	default:
		return pair(colorDetected)
	}
}

func (r *Renderer) drawBox(dst *image.RGBA, f annotation.FieldRecord, v store.Value, active bool) {
	c := boxColor(f, v, active)
	pr := pixelRect(f.CanvasRect)
	fillRect(dst, pr, c.fill)
	border := r.Options.Border
	if active {
		border++
	}
	strokeRect(dst, pr, int(border), c.stroke)
}

func (r *Renderer) fontSize(h float64) float64 {
	return math.Max(r.Options.MinFontSize, math.Min(r.Options.MaxFontSize, h*0.55))
}

func (r *Renderer) drawContent(dst *image.RGBA, f annotation.FieldRecord, v store.Value, preview bool, faces *fontface.Cache) {
	rect := f.CanvasRect
	face := faces.Face(r.fontSize(rect.Height))

	switch f.Kind {
	case annotation.CheckBox:
		box := geometry.Rect{X: rect.X + 2, Y: rect.Y + 2, Width: rect.Width - 4, Height: rect.Height - 4}
		side := math.Min(box.Width, box.Height)
		glyph := geometry.Rect{X: box.X, Y: box.Y + (box.Height-side)/2, Width: side, Height: side}
		strokeRect(dst, pixelRect(glyph), 1, colorText)
		if v != nil && store.Truthy(v) {
			checkGlyph(dst, glyph, colorText)
		}

	case annotation.SignatureField:
		if img, ok := v.(store.Image); ok && img != "" {
			if bmp := r.decode(string(img)); bmp != nil {
				b := bmp.Bounds()
				fit := geometry.FitRect(geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, rect)
				bitmap(dst, fit, bmp)
				return
			}
		}
		if !preview {
			text(dst, rect, f.Placeholder, face, colorPlaceholder)
		}

	case annotation.TextField, annotation.Dropdown:
		s := ""
		if v != nil {
			s = store.String(v)
		}
		if s == "" {
			if !preview {
				text(dst, rect, f.Placeholder, face, colorPlaceholder)
			}
		} else {
			area, shown := rect, s
			if preview {
				area, shown = r.previewLayout(rect, s, face)
			}
			text(dst, area, shown, face, colorText)
		}
		if f.Kind == annotation.Dropdown && !preview {
			caret(dst, rect, colorText)
		}
	}
}

// previewLayout widens rect to fit s plus padding, up to the cap, and
// truncates s with an ellipsis beyond it.
func (r *Renderer) previewLayout(rect geometry.Rect, s string, face font.Face) (geometry.Rect, string) {
	width := previewWidth(rect.Width, fontface.Measure(face, s), r.Options.PreviewPadding, r.Options.PreviewWidthCap)
	rect.Width = width
	return rect, fontface.Truncate(face, s, width-r.Options.PreviewPadding)
}

// previewWidth is max(original, text+padding) capped at limit×original.
func previewWidth(original, textWidth, padding, limit float64) float64 {
	w := math.Max(original, textWidth+padding)
	return math.Min(w, original*limit)
}

// decode returns the image behind a data URI, or nil if it cannot be
// decoded.
func (r *Renderer) decode(uri string) image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.images[uri]; ok {
		return img
	}
	img, err := store.DecodeDataURI(uri)
	if err != nil {
		img = nil
	}
	r.images[uri] = img
	return img
}

// Forget drops cached images.
func (r *Renderer) Forget() {
	r.mu.Lock()
	r.images = make(map[string]image.Image)
	r.mu.Unlock()
}

// EncodePNG encodes a canvas for outer surfaces.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
