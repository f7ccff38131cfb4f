// Package annotation discovers fillable form widgets on PDF pages and maps
// them to canvas rectangles.
package annotation

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
)

// Kind is the kind of a fillable field.
type Kind int

const (
	TextField Kind = iota
	CheckBox
	Dropdown
	SignatureField
)

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case TextField:
		return "text"
	case CheckBox:
		return "checkbox"
	case Dropdown:
		return "dropdown"
	case SignatureField:
		return "signature"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses the names produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "tx":
		return TextField, nil
	case "checkbox", "btn":
		return CheckBox, nil
	case "dropdown", "ch", "choice":
		return Dropdown, nil
	case "signature", "sig":
		return SignatureField, nil
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// Origin tells whether a field came from the document or was synthesized.
type Origin interface {
	isOrigin()
}

// Declared marks a field backed by a widget annotation in the document.
type Declared struct {
	ObjectNumber int `json:"object_number"`
}

// Virtual marks a field that has no native widget.
type Virtual struct {
	SyntheticID string `json:"synthetic_id"`
}

func (Declared) isOrigin() {}
func (Virtual) isOrigin()  {}

// IsVirtual reports whether o is a Virtual origin.
func IsVirtual(o Origin) bool {
	_, ok := o.(Virtual)
	return ok
}

// FieldRecord is a fillable field as presented on the canvas. PDFRect is in
// points relative to the lower-left corner of the page's media box.
type FieldRecord struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Kind        Kind          `json:"kind"`
	Page        int           `json:"page"`
	CanvasRect  geometry.Rect `json:"canvas_rect"`
	PDFRect     geometry.Rect `json:"pdf_rect"`
	Placeholder string        `json:"placeholder"`
	Options     []string      `json:"options,omitempty"`
	Origin      Origin        `json:"-"`
}

// VirtualField describes a field to synthesize on a page.
type VirtualField struct {
	Page        int           `json:"page"`
	Name        string        `json:"name"`
	Kind        Kind          `json:"kind"`
	Rect        geometry.Rect `json:"rect"`
	Placeholder string        `json:"placeholder,omitempty"`
}

// VirtualFieldSource supplies virtual fields per page index.
type VirtualFieldSource interface {
	VirtualFields(page int) []VirtualField
}

// StaticVirtualFields is a fixed list of virtual fields.
type StaticVirtualFields []VirtualField

// VirtualFields returns the entries declared for page.
func (s StaticVirtualFields) VirtualFields(page int) []VirtualField {
	var out []VirtualField
	for _, f := range s {
		if f.Page == page {
			out = append(out, f)
		}
	}
	return out
}
