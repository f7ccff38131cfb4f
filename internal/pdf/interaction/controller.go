package interaction

import (
	"log"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/store"
)

// Fields is the read side of the field store used for hit testing.
type Fields interface {
	OnPage(page int) []annotation.FieldRecord
	Record(id string) (annotation.FieldRecord, bool)
}

// Overlays is the part of the signature store the controller drives.
type Overlays interface {
	OnPage(page int) []store.Overlay
	Get(id string) (store.Overlay, bool)
	Move(id string, page int, pos geometry.Point) error
}

// Controller is the pointer state machine. It is not safe for concurrent
// use; the owning session serializes calls.
type Controller struct {
	fields   Fields
	overlays Overlays
	mode     Mode
	logger   *log.Logger
}

// NewController creates a controller in View mode.
func NewController(fields Fields, overlays Overlays, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{fields: fields, overlays: overlays, mode: View{}, logger: logger}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// PointerDown hit tests fields first, then overlays topmost first. A
// signature field opens the capture flow and leaves the mode at View. In
// Preview nothing is hit tested.
func (c *Controller) PointerDown(page int, p geometry.Point) Outcome {
	switch m := c.mode.(type) {
	case Preview, DraggingSignature:
		return Outcome{Kind: None}
	case View, EditField:
		_, wasEditing := m.(EditField)

		if f, ok := c.hitField(page, p); ok {
			if f.Kind == annotation.SignatureField {
				c.mode = View{}
				return Outcome{Kind: OpenSignatureCapture, FieldID: f.ID, Redraw: wasEditing}
			}
			if cur, ok := m.(EditField); ok && cur.FieldID == f.ID {
				return Outcome{Kind: BeginEdit, FieldID: f.ID}
			}
			c.mode = EditField{FieldID: f.ID}
			return Outcome{Kind: BeginEdit, FieldID: f.ID, Redraw: true}
		}

		if o, ok := c.hitOverlay(page, p); ok {
			c.mode = DraggingSignature{OverlayID: o.ID}
			return Outcome{Kind: BeginDrag, OverlayID: o.ID, Redraw: true}
		}

		c.mode = View{}
		return Outcome{Kind: Cleared, Redraw: wasEditing}
	}
	return Outcome{Kind: None}
}

// PointerMove moves the dragged overlay so that it is centred on the
// pointer, on the page the pointer is over.
func (c *Controller) PointerMove(page int, p geometry.Point) Outcome {
	d, ok := c.mode.(DraggingSignature)
	if !ok {
		return Outcome{Kind: None}
	}
	if !c.follow(d.OverlayID, page, p) {
		return Outcome{Kind: None, OverlayID: d.OverlayID}
	}
	return Outcome{Kind: Dragged, OverlayID: d.OverlayID, Redraw: true}
}

// PointerUp drops the dragged overlay at the pointer and returns to View.
func (c *Controller) PointerUp(page int, p geometry.Point) Outcome {
	d, ok := c.mode.(DraggingSignature)
	if !ok {
		return Outcome{Kind: None}
	}
	c.follow(d.OverlayID, page, p)
	c.mode = View{}
	return Outcome{Kind: Dropped, OverlayID: d.OverlayID, Redraw: true}
}

// CloseEditor closes the value editor. In Preview the resumed mode becomes
// View.
func (c *Controller) CloseEditor() Outcome {
	switch m := c.mode.(type) {
	case EditField:
		c.mode = View{}
		return Outcome{Kind: Cleared, FieldID: m.FieldID, Redraw: true}
	case Preview:
		if id, ok := ActiveField(m); ok {
			c.mode = Preview{Resume: View{}}
			return Outcome{Kind: Cleared, FieldID: id}
		}
	case View, DraggingSignature:
	}
	return Outcome{Kind: None}
}

// TogglePreview enters or leaves Preview. It is refused while a signature
// is being dragged.
func (c *Controller) TogglePreview() (bool, error) {
	switch m := c.mode.(type) {
	case DraggingSignature:
		return false, errors.ErrDragInProgress
	case Preview:
		if m.Resume == nil {
			c.mode = View{}
		} else {
			c.mode = m.Resume
		}
		return false, nil
	case View, EditField:
		c.mode = Preview{Resume: m}
		return true, nil
	}
	return false, nil
}

// OverlayRemoved ends a drag of an overlay that no longer exists.
func (c *Controller) OverlayRemoved(id string) {
	if d, ok := c.mode.(DraggingSignature); ok && d.OverlayID == id {
		c.mode = View{}
	}
}

// FieldCaptured returns to View after the signature capture flow saved or
// was dismissed.
func (c *Controller) FieldCaptured() {
	if _, ok := c.mode.(EditField); ok {
		c.mode = View{}
	}
}

func (c *Controller) follow(id string, page int, p geometry.Point) bool {
	o, ok := c.overlays.Get(id)
	if !ok {
		c.mode = View{}
		return false
	}
	pos := geometry.Centered(p, o.Size)
	if err := c.overlays.Move(id, page, pos); err != nil {
		c.logger.Printf("interaction: drag of %s ignored: %v", id, err)
		return false
	}
	return true
}

// hitField returns the topmost field on page containing p. Later records
// are drawn above earlier ones.
func (c *Controller) hitField(page int, p geometry.Point) (annotation.FieldRecord, bool) {
	fields := c.fields.OnPage(page)
	for i := len(fields) - 1; i >= 0; i-- {
		if fields[i].CanvasRect.Contains(p) {
			return fields[i], true
		}
	}
	return annotation.FieldRecord{}, false
}

func (c *Controller) hitOverlay(page int, p geometry.Point) (store.Overlay, bool) {
	overlays := c.overlays.OnPage(page)
	for i := len(overlays) - 1; i >= 0; i-- {
		if overlays[i].Rect().Contains(p) {
			return overlays[i], true
		}
	}
	return store.Overlay{}, false
}
