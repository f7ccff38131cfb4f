package interaction

import (
	"image"
	"testing"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Controller, *store.SignatureStore) {
	t.Helper()
	fields := store.NewFieldStore([]annotation.FieldRecord{
		{ID: "p0-a0", Name: "Name", Kind: annotation.TextField, Page: 0,
			CanvasRect: geometry.Rect{X: 100, Y: 100, Width: 200, Height: 30}},
		{ID: "p0-a1", Name: "Sign", Kind: annotation.SignatureField, Page: 0,
			CanvasRect: geometry.Rect{X: 100, Y: 400, Width: 200, Height: 60}},
		{ID: "p1-a0", Name: "Agree", Kind: annotation.CheckBox, Page: 1,
			CanvasRect: geometry.Rect{X: 50, Y: 50, Width: 30, Height: 30}},
	})
	sigs := store.NewSignatureStore(2)
	return NewController(fields, sigs, nil), sigs
}

func place(t *testing.T, sigs *store.SignatureStore, page int, x, y float64) store.Overlay {
	t.Helper()
	o, err := sigs.Place(page, geometry.Point{X: x, Y: y}, geometry.Size{Width: 100, Height: 40},
		image.NewRGBA(image.Rect(0, 0, 10, 4)))
	require.NoError(t, err)
	return o
}

func TestPointerDownOnTextFieldEdits(t *testing.T) {
	c, _ := setup(t)

	out := c.PointerDown(0, geometry.Point{X: 150, Y: 110})
	assert.Equal(t, BeginEdit, out.Kind)
	assert.Equal(t, "p0-a0", out.FieldID)
	assert.True(t, out.Redraw)
	assert.Equal(t, EditField{FieldID: "p0-a0"}, c.Mode())

	out = c.PointerDown(0, geometry.Point{X: 5, Y: 5})
	assert.Equal(t, Cleared, out.Kind)
	assert.True(t, out.Redraw)
	assert.Equal(t, View{}, c.Mode())
}

func TestPointerDownOnSignatureFieldOpensCapture(t *testing.T) {
	c, _ := setup(t)
	c.PointerDown(0, geometry.Point{X: 150, Y: 110})

	out := c.PointerDown(0, geometry.Point{X: 150, Y: 420})
	assert.Equal(t, OpenSignatureCapture, out.Kind)
	assert.Equal(t, "p0-a1", out.FieldID)
	assert.Equal(t, View{}, c.Mode())
}

func TestFieldsTakePrecedenceOverOverlays(t *testing.T) {
	c, sigs := setup(t)
	place(t, sigs, 0, 120, 90)

	out := c.PointerDown(0, geometry.Point{X: 150, Y: 110})
	assert.Equal(t, BeginEdit, out.Kind)
}

func TestTopmostOverlayWins(t *testing.T) {
	c, sigs := setup(t)
	place(t, sigs, 0, 500, 500)
	top := place(t, sigs, 0, 520, 510)

	out := c.PointerDown(0, geometry.Point{X: 530, Y: 520})
	assert.Equal(t, BeginDrag, out.Kind)
	assert.Equal(t, top.ID, out.OverlayID)
}

func TestDragAcrossPages(t *testing.T) {
	c, sigs := setup(t)
	o := place(t, sigs, 0, 500, 500)

	require.Equal(t, BeginDrag, c.PointerDown(0, geometry.Point{X: 510, Y: 510}).Kind)

	out := c.PointerMove(1, geometry.Point{X: 300, Y: 200})
	assert.Equal(t, Dragged, out.Kind)
	assert.True(t, out.Redraw)

	out = c.PointerUp(1, geometry.Point{X: 320, Y: 220})
	assert.Equal(t, Dropped, out.Kind)
	assert.Equal(t, View{}, c.Mode())

	moved, ok := sigs.Get(o.ID)
	require.True(t, ok)
	assert.Equal(t, 1, moved.Page)
	assert.Equal(t, geometry.Point{X: 270, Y: 200}, moved.Position)
}

func TestDragToInvalidPageIsIgnored(t *testing.T) {
	c, sigs := setup(t)
	o := place(t, sigs, 0, 500, 500)
	c.PointerDown(0, geometry.Point{X: 510, Y: 510})

	out := c.PointerMove(7, geometry.Point{X: 10, Y: 10})
	assert.Equal(t, None, out.Kind)

	got, _ := sigs.Get(o.ID)
	assert.Equal(t, 0, got.Page)
	assert.Equal(t, DraggingSignature{OverlayID: o.ID}, c.Mode())
}

func TestPreviewDisablesHitTesting(t *testing.T) {
	c, sigs := setup(t)
	place(t, sigs, 0, 500, 500)

	on, err := c.TogglePreview()
	require.NoError(t, err)
	assert.True(t, on)

	points := []geometry.Point{{X: 150, Y: 110}, {X: 150, Y: 420}, {X: 510, Y: 510}, {X: 1, Y: 1}}
	for _, p := range points {
		out := c.PointerDown(0, p)
		assert.Equal(t, None, out.Kind)
		assert.True(t, IsPreview(c.Mode()))
	}
}

func TestPreviewKeepsActiveField(t *testing.T) {
	c, _ := setup(t)
	c.PointerDown(1, geometry.Point{X: 60, Y: 60})

	_, err := c.TogglePreview()
	require.NoError(t, err)
	id, ok := ActiveField(c.Mode())
	assert.True(t, ok)
	assert.Equal(t, "p1-a0", id)

	on, err := c.TogglePreview()
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, EditField{FieldID: "p1-a0"}, c.Mode())
}

func TestPreviewRefusedWhileDragging(t *testing.T) {
	c, sigs := setup(t)
	o := place(t, sigs, 0, 500, 500)
	c.PointerDown(0, geometry.Point{X: 510, Y: 510})

	_, err := c.TogglePreview()
	assert.ErrorIs(t, err, errors.ErrDragInProgress)
	assert.Equal(t, DraggingSignature{OverlayID: o.ID}, c.Mode())
}

func TestCloseEditor(t *testing.T) {
	c, _ := setup(t)
	assert.Equal(t, None, c.CloseEditor().Kind)

	c.PointerDown(0, geometry.Point{X: 150, Y: 110})
	out := c.CloseEditor()
	assert.Equal(t, Cleared, out.Kind)
	assert.Equal(t, "p0-a0", out.FieldID)
	assert.Equal(t, View{}, c.Mode())
}

func TestOverlayRemovedEndsDrag(t *testing.T) {
	c, sigs := setup(t)
	o := place(t, sigs, 0, 500, 500)
	c.PointerDown(0, geometry.Point{X: 510, Y: 510})

	require.NoError(t, sigs.Remove(o.ID))
	c.OverlayRemoved(o.ID)
	assert.Equal(t, View{}, c.Mode())
	assert.Equal(t, None, c.PointerMove(0, geometry.Point{X: 1, Y: 1}).Kind)
}
