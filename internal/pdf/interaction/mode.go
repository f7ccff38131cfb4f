// Package interaction interprets pointer events over the page canvases and
// keeps the single interaction mode of a signing session.
package interaction

import "fmt"

// Mode is the interaction mode. Exactly one is active at a time.
type Mode interface {
	isMode()
	String() string
}

// View is the default mode.
type View struct{}

// EditField holds the field whose value editor is open.
type EditField struct {
	FieldID string
}

// DraggingSignature holds the overlay attached to the pointer.
type DraggingSignature struct {
	OverlayID string
}

// Preview is the read-only review mode. Resume is the mode restored when
// preview ends; it is never DraggingSignature or Preview.
type Preview struct {
	Resume Mode
}

func (View) isMode()              {}
func (EditField) isMode()         {}
func (DraggingSignature) isMode() {}
func (Preview) isMode()           {}

func (View) String() string { return "view" }

func (m EditField) String() string { return fmt.Sprintf("edit(%s)", m.FieldID) }

func (m DraggingSignature) String() string { return fmt.Sprintf("dragging(%s)", m.OverlayID) }

func (m Preview) String() string {
	if m.Resume == nil {
		return "preview"
	}
	return fmt.Sprintf("preview(%s)", m.Resume)
}

// ActiveField returns the field being edited in m, looking through Preview.
func ActiveField(m Mode) (string, bool) {
	switch v := m.(type) {
	case EditField:
		return v.FieldID, true
	case Preview:
		if v.Resume != nil {
			return ActiveField(v.Resume)
		}
	case View, DraggingSignature:
	}
	return "", false
}

// DraggedOverlay returns the overlay being dragged in m.
func DraggedOverlay(m Mode) (string, bool) {
	if d, ok := m.(DraggingSignature); ok {
		return d.OverlayID, true
	}
	return "", false
}

// IsPreview reports whether m is Preview.
func IsPreview(m Mode) bool {
	_, ok := m.(Preview)
	return ok
}

// OutcomeKind names what a pointer event did.
type OutcomeKind int

const (
	None OutcomeKind = iota
	OpenSignatureCapture
	BeginEdit
	BeginDrag
	Dragged
	Dropped
	Cleared
)

var outcomeNames = [...]string{"none", "open_signature_capture", "begin_edit", "begin_drag", "dragged", "dropped", "cleared"}

func (k OutcomeKind) String() string {
	if int(k) < len(outcomeNames) {
		return outcomeNames[k]
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome reports the result of an event. Redraw is set when the canvases
// need to be composed again.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	FieldID   string      `json:"field_id,omitempty"`
	OverlayID string      `json:"overlay_id,omitempty"`
	Redraw    bool        `json:"redraw"`
}
