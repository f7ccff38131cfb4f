package store

import (
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"testing"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []annotation.FieldRecord {
	return []annotation.FieldRecord{
		{ID: "p0-a0", Name: "Name", Kind: annotation.TextField, Page: 0},
		{ID: "p0-a1", Name: "Agree", Kind: annotation.CheckBox, Page: 0},
		{ID: "p1-a0", Name: "Sign", Kind: annotation.SignatureField, Page: 1},
		{ID: "p1-a1", Name: "Country", Kind: annotation.Dropdown, Page: 1},
	}
}

func testImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{0, 0, 0, 255})
		}
	}
	return img
}

func TestFieldStoreOrderAndPages(t *testing.T) {
	s := NewFieldStore(sampleRecords())
	assert.Equal(t, 4, s.Len())

	records := s.Records()
	assert.Equal(t, "p0-a0", records[0].ID)
	assert.Equal(t, "p1-a1", records[3].ID)

	page1 := s.OnPage(1)
	require.Len(t, page1, 2)
	assert.Equal(t, "Sign", page1[0].Name)
}

func TestFieldStoreSet(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		value   Value
		wantErr error
	}{
		{"text on text field", "p0-a0", Text("Ada"), nil},
		{"bool on checkbox", "p0-a1", Bool(true), nil},
		{"text on checkbox", "p0-a1", Text("yes"), nil},
		{"image on signature", "p1-a0", Image("data:image/png;base64,AAAA"), nil},
		{"text on dropdown", "p1-a1", Text("USA"), nil},
		{"image on text field", "p0-a0", Image("data:x"), errors.ErrUnsupportedValue},
		{"text on signature", "p1-a0", Text("nope"), errors.ErrUnsupportedValue},
		{"unknown id", "p9-a9", Text("x"), errors.ErrUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewFieldStore(sampleRecords())
			err := s.Set(tt.id, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, ok := s.Get(tt.id)
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			_, ok := s.Get(tt.id)
			assert.True(t, ok)
		})
	}
}

func TestFieldStoreCheckboxCoercion(t *testing.T) {
	s := NewFieldStore(sampleRecords())
	require.NoError(t, s.Set("p0-a1", Text("on")))
	v, _ := s.Get("p0-a1")
	assert.Equal(t, Bool(true), v)

	require.NoError(t, s.Set("p0-a1", Text("no")))
	v, _ = s.Get("p0-a1")
	assert.Equal(t, Bool(false), v)
}

func TestFieldStoreFilled(t *testing.T) {
	s := NewFieldStore(sampleRecords())
	assert.Equal(t, 0, s.Filled())

	require.NoError(t, s.Set("p0-a0", Text("Ada")))
	require.NoError(t, s.Set("p0-a1", Bool(false)))
	require.NoError(t, s.Set("p1-a0", Image("data:image/png;base64,AAAA")))
	assert.Equal(t, 2, s.Filled())
	assert.Equal(t, 1, s.SignedFields())

	require.NoError(t, s.Clear("p0-a0"))
	assert.Equal(t, 1, s.Filled())
	assert.ErrorIs(t, s.Clear("missing"), errors.ErrUnknownField)

	values := s.Values()
	values["p0-a0"] = Text("mutated")
	_, ok := s.Get("p0-a0")
	assert.False(t, ok)
}

func TestSignatureStore(t *testing.T) {
	s := NewSignatureStore(2)

	a, err := s.Place(0, geometry.Point{X: 10, Y: 10}, geometry.Size{Width: 100, Height: 40}, testImage(10, 4))
	require.NoError(t, err)
	b, err := s.Place(0, geometry.Point{X: 50, Y: 50}, geometry.Size{}, testImage(20, 8))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, a.Order, b.Order)
	assert.Equal(t, geometry.Size{Width: 20, Height: 8}, b.Size)
	assert.Equal(t, geometry.Rect{X: 10, Y: 10, Width: 100, Height: 40}, a.Rect())

	require.NoError(t, s.Move(a.ID, 1, geometry.Point{X: 5, Y: 6}))
	moved, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, 1, moved.Page)
	assert.Equal(t, geometry.Point{X: 5, Y: 6}, moved.Position)

	assert.Len(t, s.OnPage(0), 1)
	assert.Len(t, s.OnPage(1), 1)
	assert.Equal(t, []string{a.ID, b.ID}, []string{s.All()[0].ID, s.All()[1].ID})

	assert.ErrorIs(t, s.Move(a.ID, 2, geometry.Point{}), errors.ErrInvalidPage)
	assert.ErrorIs(t, s.Move("nope", 0, geometry.Point{}), errors.ErrUnknownOverlay)

	_, err = s.Place(-1, geometry.Point{}, geometry.Size{}, testImage(1, 1))
	assert.ErrorIs(t, err, errors.ErrInvalidPage)

	require.NoError(t, s.Remove(b.ID))
	assert.Equal(t, 1, s.Len())
	assert.ErrorIs(t, s.Remove(b.ID), errors.ErrUnknownOverlay)
}

func TestDataURIRoundTrip(t *testing.T) {
	uri, err := EncodeDataURI(testImage(8, 3))
	require.NoError(t, err)
	assert.Contains(t, uri, "data:image/png;base64,")

	img, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())

	_, err = DecodeDataURI("http://example.com/a.png")
	assert.Error(t, err)
	_, err = DecodeDataURI("data:image/png;base64,!!!")
	assert.Error(t, err)
	_, err = DecodeDataURI("data:text/plain,hello")
	assert.Error(t, err)
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h pixels
// with no image data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 6

	chunk := append([]byte("IHDR"), ihdr...)
	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, uint32(len(ihdr)))
	out = append(out, chunk...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(chunk))
}

func TestDecodeRejectsOversizedImage(t *testing.T) {
	huge := pngHeader(100000, 100000)

	_, err := DecodeImage(huge)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = DecodeDataURI("data:image/png;base64," + base64.StdEncoding.EncodeToString(huge))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = DecodeImage(pngHeader(64, 32))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrImageTooLarge)
}

func TestTruthy(t *testing.T) {
	for _, v := range []Value{Bool(true), Text("true"), Text("Yes"), Text(" on "), Text("1")} {
		assert.True(t, Truthy(v), "%v", v)
	}
	for _, v := range []Value{Bool(false), Text(""), Text("false"), Text("off"), Image("data:")} {
		assert.False(t, Truthy(v), "%v", v)
	}
}
