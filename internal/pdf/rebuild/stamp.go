package rebuild

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/text/encoding/charmap"
)

const (
	// pixelsPerPoint is the resolution images are resampled to.
	pixelsPerPoint = 2
	maxImageSide   = 2048

	stampFont = "SignerHelv"
)

// stamp is one drawing added on top of a page. Rect is in page-relative
// PDF points.
type stamp struct {
	label string
	rect  geometry.Rect
	image image.Image
	text  string
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(math.Round(f*10000)/10000, 'f', -1, 64)
}

// newStream adds a Flate compressed stream object holding buf.
func newStream(pctx *model.Context, buf []byte, entries types.Dict) (*types.IndirectRef, error) {
	sd, err := pctx.NewStreamDictForBuf(buf)
	if err != nil {
		return nil, err
	}
	for k, v := range entries {
		sd.Dict[k] = v
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return pctx.IndRefForNewObject(*sd)
}

// resampled scales img to the pixel size a rect of w×h points needs.
func resampled(img image.Image, w, h float64) *image.NRGBA {
	pw := int(math.Ceil(w * pixelsPerPoint))
	ph := int(math.Ceil(h * pixelsPerPoint))
	if m := math.Max(float64(pw), float64(ph)); m > maxImageSide {
		k := maxImageSide / m
		pw, ph = int(float64(pw)*k), int(float64(ph)*k)
	}
	pw, ph = max(pw, 1), max(ph, 1)

	dst := image.NewNRGBA(image.Rect(0, 0, pw, ph))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// imageXObject adds img as an RGB image with an alpha soft mask when it has
// transparency.
func imageXObject(pctx *model.Context, img *image.NRGBA) (*types.IndirectRef, error) {
	b := img.Bounds()
	rgb := make([]byte, 0, b.Dx()*b.Dy()*3)
	alpha := make([]byte, 0, b.Dx()*b.Dy())
	opaque := true
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			rgb = append(rgb, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
			if c.A != 0xff {
				opaque = false
			}
		}
	}

	entries := types.Dict{
		"Type":             types.Name("XObject"),
		"Subtype":          types.Name("Image"),
		"Width":            types.Integer(b.Dx()),
		"Height":           types.Integer(b.Dy()),
		"ColorSpace":       types.Name("DeviceRGB"),
		"BitsPerComponent": types.Integer(8),
	}
	if !opaque {
		mask, err := newStream(pctx, alpha, types.Dict{
			"Type":             types.Name("XObject"),
			"Subtype":          types.Name("Image"),
			"Width":            types.Integer(b.Dx()),
			"Height":           types.Integer(b.Dy()),
			"ColorSpace":       types.Name("DeviceGray"),
			"BitsPerComponent": types.Integer(8),
		})
		if err != nil {
			return nil, err
		}
		entries["SMask"] = *mask
	}
	return newStream(pctx, rgb, entries)
}

// pageResources returns the page's own resource dictionary, copying
// inherited resources onto the page when it has none.
func pageResources(pctx *model.Context, pageNr int) (types.Dict, types.Dict, error) {
	pageDict, _, inh, err := pctx.PageDict(pageNr, true)
	if err != nil {
		return nil, nil, err
	}
	if pageDict == nil {
		return nil, nil, fmt.Errorf("missing page dictionary")
	}
	if o, found := pageDict.Find("Resources"); found {
		res, err := pctx.DereferenceDict(o)
		if err != nil {
			return nil, nil, err
		}
		if res != nil {
			return pageDict, res, nil
		}
	}
	res := types.NewDict()
	if inh != nil {
		for k, v := range inh.Resources {
			res[k] = v
		}
	}
	pageDict["Resources"] = res
	return pageDict, res, nil
}

// subDict returns res[key] as a dictionary, creating it when absent.
func subDict(pctx *model.Context, res types.Dict, key string) (types.Dict, error) {
	if o, found := res.Find(key); found {
		d, err := pctx.DereferenceDict(o)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	d := types.NewDict()
	res[key] = d
	return d, nil
}

func freeName(d types.Dict, prefix string) string {
	for i := 0; ; i++ {
		name := prefix + strconv.Itoa(i)
		if _, taken := d[name]; !taken {
			return name
		}
	}
}

// winAnsi encodes s for the standard Helvetica font, replacing characters
// it cannot represent.
func winAnsi(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, c)
		} else {
			out = append(out, '?')
		}
	}
	return out
}

func literalBytes(b []byte) string {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case '\\', '(', ')':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		default:
			if c < 0x20 || c > 0x7e {
				fmt.Fprintf(&buf, "\\%03o", c)
			} else {
				buf.WriteByte(c)
			}
		}
	}
	return buf.String()
}

// applyStamps draws stamps onto the 1-based page pageNr. The existing page
// content is wrapped in q/Q so its graphics state cannot leak into ours.
// A stamp that fails is reported through fail and skipped. It returns the
// number of stamps drawn.
func applyStamps(pctx *model.Context, pageNr int, origin geometry.Point, stamps []stamp, fail func(stamp, error)) (int, error) {
	pageDict, res, err := pageResources(pctx, pageNr)
	if err != nil {
		return 0, err
	}
	xobjects, err := subDict(pctx, res, "XObject")
	if err != nil {
		return 0, err
	}

	var content bytes.Buffer
	content.WriteString("Q\n")
	drawn := 0
	for _, s := range stamps {
		x, y := s.rect.X+origin.X, s.rect.Y+origin.Y
		switch {
		case s.image != nil:
			ref, err := imageXObject(pctx, resampled(s.image, s.rect.Width, s.rect.Height))
			if err != nil {
				fail(s, err)
				continue
			}
			name := freeName(xobjects, "SignerIm")
			xobjects[name] = *ref
			fmt.Fprintf(&content, "q %s 0 0 %s %s %s cm /%s Do Q\n",
				fmtNum(s.rect.Width), fmtNum(s.rect.Height), fmtNum(x), fmtNum(y), name)
			drawn++

		case s.text != "":
			fonts, err := subDict(pctx, res, "Font")
			if err != nil {
				fail(s, err)
				continue
			}
			if _, ok := fonts[stampFont]; !ok {
				fonts[stampFont] = types.Dict{
					"Type":     types.Name("Font"),
					"Subtype":  types.Name("Type1"),
					"BaseFont": types.Name("Helvetica"),
					"Encoding": types.Name("WinAnsiEncoding"),
				}
			}
			size := math.Max(4, math.Min(12, s.rect.Height*0.7))
			baseline := y + (s.rect.Height-size*0.7)/2
			fmt.Fprintf(&content, "q BT /%s %s Tf %s %s Td (%s) Tj ET Q\n",
				stampFont, fmtNum(size), fmtNum(x+2), fmtNum(baseline), literalBytes(winAnsi(s.text)))
			drawn++
		}
	}
	if drawn == 0 {
		return 0, nil
	}

	pre, err := newStream(pctx, []byte("q\n"), nil)
	if err != nil {
		return 0, err
	}
	post, err := newStream(pctx, content.Bytes(), nil)
	if err != nil {
		return 0, err
	}

	contents := types.Array{*pre}
	if o, found := pageDict.Find("Contents"); found {
		switch v := o.(type) {
		case types.IndirectRef:
			d, err := pctx.Dereference(v)
			if err != nil {
				return 0, err
			}
			if arr, ok := d.(types.Array); ok {
				contents = append(contents, arr...)
			} else {
				contents = append(contents, v)
			}
		case types.Array:
			contents = append(contents, v...)
		}
	}
	pageDict["Contents"] = append(contents, *post)
	return drawn, nil
}
