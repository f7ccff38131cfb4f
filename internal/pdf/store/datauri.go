package store

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/url"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxImagePixels bounds the size of a signature image.
const MaxImagePixels = 1 << 24

// ErrImageTooLarge is returned for images above MaxImagePixels.
var ErrImageTooLarge = errors.New("signature image too large")

// DecodeDataURI decodes a data: URI holding a PNG, JPEG, GIF, BMP or WebP image.
func DecodeDataURI(uri string) (image.Image, error) {
	data, err := DataURIBytes(uri)
	if err != nil {
		return nil, err
	}
	return DecodeImage(data)
}

// DecodeImage decodes encoded image bytes after checking the declared
// dimensions against MaxImagePixels.
func DecodeImage(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxImagePixels/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode image: %w", err)
	}
	return img, nil
}

// DataURIBytes returns the payload of a data: URI.
func DataURIBytes(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, fmt.Errorf("not a data URI")
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := uri[len("data:"):comma], uri[comma+1:]

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed base64 payload: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data URI payload: %w", err)
	}
	return []byte(s), nil
}

// EncodeDataURI encodes img as a base64 PNG data URI.
func EncodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
