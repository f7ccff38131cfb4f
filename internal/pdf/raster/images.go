package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// loadStream dereferences o into a stream dictionary and decodes its content
// unless the only filter is an image codec.
func loadStream(ctx *model.Context, o types.Object) (*types.StreamDict, error) {
	sd, _, err := ctx.DereferenceStreamDict(o)
	if err != nil {
		return nil, err
	}
	if sd == nil {
		return nil, fmt.Errorf("object is not a stream")
	}
	if imageFilter(ctx, sd) != "" {
		return sd, nil
	}
	if len(sd.Content) == 0 && len(sd.Raw) > 0 {
		if err := sd.Decode(); err != nil {
			return nil, err
		}
	}
	return sd, nil
}

// imageFilter returns DCTDecode or JPXDecode when that is the stream's
// filter, otherwise "".
func imageFilter(ctx *model.Context, sd *types.StreamDict) string {
	o, found := sd.Find("Filter")
	if !found {
		return ""
	}
	o, _ = ctx.Dereference(o)
	var last types.Object = o
	if arr, ok := o.(types.Array); ok && len(arr) > 0 {
		last = arr[len(arr)-1]
	}
	if n, ok := last.(types.Name); ok {
		switch s := string(n); s {
		case "DCTDecode", "JPXDecode":
			return s
		}
	}
	return ""
}

// maxImagePixels bounds the sample count of a decoded image XObject.
const maxImagePixels = 1 << 28

// decodeImage turns an image XObject into a Go image. JPEG data goes through
// the standard decoder; other images are read as 8-bit Gray, RGB or CMYK samples.
func decodeImage(ctx *model.Context, sd *types.StreamDict) (image.Image, error) {
	switch imageFilter(ctx, sd) {
	case "DCTDecode":
		img, _, err := image.Decode(bytes.NewReader(sd.Raw))
		return img, err
	case "JPXDecode":
		return nil, fmt.Errorf("JPX images are not supported")
	}

	w, err := dictInt(ctx, sd.Dict, "Width")
	if err != nil {
		return nil, err
	}
	h, err := dictInt(ctx, sd.Dict, "Height")
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 || w > maxImagePixels/h {
		return nil, fmt.Errorf("invalid image size %dx%d", w, h)
	}
	if bpc, err := dictInt(ctx, sd.Dict, "BitsPerComponent"); err == nil && bpc != 8 {
		return nil, fmt.Errorf("unsupported bits per component %d", bpc)
	}

	components := colorComponents(ctx, sd.Dict)
	data := sd.Content
	if len(data) < w*h*components {
		return nil, fmt.Errorf("image data too short: %d < %d", len(data), w*h*components)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * components
			var c color.RGBA
			switch components {
			case 1:
				c = color.RGBA{data[i], data[i], data[i], 0xff}
			case 4:
				r, g, b := color.CMYKToRGB(data[i], data[i+1], data[i+2], data[i+3])
				c = color.RGBA{r, g, b, 0xff}
			default:
				c = color.RGBA{data[i], data[i+1], data[i+2], 0xff}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

func colorComponents(ctx *model.Context, d types.Dict) int {
	o, found := d.Find("ColorSpace")
	if !found {
		return 3
	}
	o, _ = ctx.Dereference(o)
	switch cs := o.(type) {
	case types.Name:
		switch string(cs) {
		case "DeviceGray", "CalGray", "G":
			return 1
		case "DeviceCMYK", "CMYK":
			return 4
		}
	case types.Array:
		if len(cs) > 1 {
			if n, ok := cs[0].(types.Name); ok && string(n) == "ICCBased" {
				if sd, _, err := ctx.DereferenceStreamDict(cs[1]); err == nil && sd != nil {
					if n, err := dictInt(ctx, sd.Dict, "N"); err == nil && (n == 1 || n == 4) {
						return n
					}
				}
			}
		}
	}
	return 3
}

func dictInt(ctx *model.Context, d types.Dict, key string) (int, error) {
	o, found := d.Find(key)
	if !found {
		return 0, fmt.Errorf("missing %s", key)
	}
	v, err := ctx.DereferenceNumber(o)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
