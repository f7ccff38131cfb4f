package annotation

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// HiddenFlags is the annotation flag value (Print | NoView) of widgets that
// are never offered for filling.
const HiddenFlags = 132

// Field flag bits from the AcroForm field dictionary.
const (
	FlagRadio      = 1 << 15
	FlagPushButton = 1 << 16
	FlagCombo      = 1 << 17
	FlagEdit       = 1 << 18
)

const maxParentDepth = 32

// Option is one entry of a choice field's /Opt array.
type Option struct {
	Export string `json:"export"`
	Label  string `json:"label"`
}

// Widget is a native widget annotation together with the field dictionary
// that carries its name and value.
type Widget struct {
	ObjectNumber int
	Page         int
	Index        int
	Name         string
	Kind         Kind
	Supported    bool
	Flags        int
	Rect         [4]float64
	Tooltip      string
	Options      []Option
	OnState      string

	Dict  types.Dict
	Field types.Dict
}

// Hidden reports whether the widget carries the hidden flag combination.
func (w *Widget) Hidden() bool {
	return w.Flags == HiddenFlags
}

// OptionLabels returns the display labels of a choice field.
func (w *Widget) OptionLabels() []string {
	if len(w.Options) == 0 {
		return nil
	}
	out := make([]string, len(w.Options))
	for i, o := range w.Options {
		out[i] = o.Label
	}
	return out
}

// inherited looks key up on d and then along the /Parent chain.
func inherited(ctx *model.Context, d types.Dict, key string) (types.Object, bool) {
	for i := 0; d != nil && i < maxParentDepth; i++ {
		if o, found := d.Find(key); found {
			return o, true
		}
		parent, found := d.Find("Parent")
		if !found {
			return nil, false
		}
		next, err := ctx.DereferenceDict(parent)
		if err != nil {
			return nil, false
		}
		d = next
	}
	return nil, false
}

// fieldDict returns the nearest dictionary on the /Parent chain carrying /T.
func fieldDict(ctx *model.Context, d types.Dict) types.Dict {
	for cur, i := d, 0; cur != nil && i < maxParentDepth; i++ {
		if _, found := cur.Find("T"); found {
			return cur
		}
		parent, found := cur.Find("Parent")
		if !found {
			break
		}
		next, err := ctx.DereferenceDict(parent)
		if err != nil {
			break
		}
		cur = next
	}
	return d
}

func textEntry(ctx *model.Context, d types.Dict, key string) string {
	if d == nil {
		return ""
	}
	o, found := d.Find(key)
	if !found {
		return ""
	}
	s, err := ctx.DereferenceStringOrHexLiteral(o, model.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

func intEntry(ctx *model.Context, o types.Object) int {
	i, err := ctx.DereferenceInteger(o)
	if err != nil || i == nil {
		return 0
	}
	return int(*i)
}

// readWidget inspects the idx-th entry of a page's /Annots array. It returns
// nil for annotations that are not widgets.
func readWidget(ctx *model.Context, obj types.Object, page, idx int) (*Widget, error) {
	d, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	if st := d.NameEntry("Subtype"); st == nil || *st != "Widget" {
		return nil, nil
	}

	w := &Widget{Page: page, Index: idx, Dict: d}
	if ref, ok := obj.(types.IndirectRef); ok {
		w.ObjectNumber = int(ref.ObjectNumber)
	}
	if o, found := d.Find("F"); found {
		w.Flags = intEntry(ctx, o)
	}

	rectObj, found := d.Find("Rect")
	if !found {
		return nil, fmt.Errorf("widget %d has no /Rect", idx)
	}
	rect, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rect) != 4 {
		return nil, fmt.Errorf("widget %d has a malformed /Rect", idx)
	}
	for i, c := range rect {
		v, err := ctx.DereferenceNumber(c)
		if err != nil {
			return nil, fmt.Errorf("widget %d: %w", idx, err)
		}
		w.Rect[i] = v
	}

	w.Field = fieldDict(ctx, d)
	w.Name = textEntry(ctx, d, "T")
	if w.Name == "" {
		if parent, found := d.Find("Parent"); found {
			if pd, err := ctx.DereferenceDict(parent); err == nil {
				w.Name = textEntry(ctx, pd, "T")
			}
		}
	}
	if w.Name == "" {
		w.Name = fmt.Sprintf("Field_%d_%d", page+1, idx)
	}
	w.Tooltip = textEntry(ctx, w.Field, "TU")

	w.Kind, w.Supported = widgetKind(ctx, d)
	switch w.Kind {
	case Dropdown:
		w.Options = options(ctx, d)
	case CheckBox:
		w.OnState = onState(ctx, d)
	}
	return w, nil
}

// widgetKind maps /FT and /Ff to a Kind. Radio buttons and push buttons are
// reported as unsupported.
func widgetKind(ctx *model.Context, d types.Dict) (Kind, bool) {
	ftObj, found := inherited(ctx, d, "FT")
	if !found {
		return 0, false
	}
	ft, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return 0, false
	}

	flags := 0
	if o, found := inherited(ctx, d, "Ff"); found {
		flags = intEntry(ctx, o)
	}

	switch ft {
	case "Btn":
		if flags&(FlagRadio|FlagPushButton) != 0 {
			return CheckBox, false
		}
		return CheckBox, true
	case "Tx":
		return TextField, true
	case "Ch":
		return Dropdown, true
	case "Sig":
		return SignatureField, true
	}
	return 0, false
}

func options(ctx *model.Context, d types.Dict) []Option {
	optObj, found := inherited(ctx, d, "Opt")
	if !found {
		return nil
	}
	arr, err := ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}

	var out []Option
	for _, opt := range arr {
		if s, err := ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			out = append(out, Option{Export: s, Label: s})
			continue
		}
		pair, err := ctx.DereferenceArray(opt)
		if err != nil || len(pair) < 2 {
			continue
		}
		export, err1 := ctx.DereferenceStringOrHexLiteral(pair[0], model.V10, nil)
		label, err2 := ctx.DereferenceStringOrHexLiteral(pair[1], model.V10, nil)
		if err1 == nil && err2 == nil {
			out = append(out, Option{Export: export, Label: label})
		}
	}
	return out
}

// onState returns the checked appearance name of a checkbox, "Yes" if the
// widget has no normal appearance dictionary.
func onState(ctx *model.Context, d types.Dict) string {
	apObj, found := d.Find("AP")
	if !found {
		return "Yes"
	}
	ap, err := ctx.DereferenceDict(apObj)
	if err != nil || ap == nil {
		return "Yes"
	}
	nObj, found := ap.Find("N")
	if !found {
		return "Yes"
	}
	n, err := ctx.DereferenceDict(nObj)
	if err != nil || n == nil {
		return "Yes"
	}
	for key := range n {
		if key != "Off" {
			return key
		}
	}
	return "Yes"
}

// Index maps field names to every widget on every page, hidden ones included.
func Index(ctx *model.Context) (map[string][]*Widget, error) {
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	index := make(map[string][]*Widget)
	for p := 1; p <= ctx.PageCount; p++ {
		widgets, err := pageWidgets(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", p, err)
		}
		for _, w := range widgets {
			index[w.Name] = append(index[w.Name], w)
		}
	}
	return index, nil
}

// pageWidgets reads every widget annotation of the 1-based page pageNr.
func pageWidgets(ctx *model.Context, pageNr int) ([]*Widget, error) {
	pageDict, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, err
	}
	if pageDict == nil {
		return nil, fmt.Errorf("missing page dictionary")
	}
	annotsObj, found := pageDict.Find("Annots")
	if !found {
		return nil, nil
	}
	annots, err := ctx.DereferenceArray(annotsObj)
	if err != nil {
		return nil, err
	}

	var out []*Widget
	for i, obj := range annots {
		w, err := readWidget(ctx, obj, pageNr-1, i)
		if err != nil {
			return nil, err
		}
		if w != nil {
			out = append(out, w)
		}
	}
	return out, nil
}

// NativeValue returns the current value of w's field: the text of text and
// choice fields and the state name of checkboxes.
func NativeValue(ctx *model.Context, w *Widget) string {
	o, found := inherited(ctx, w.Dict, "V")
	if !found {
		return ""
	}
	if w.Kind == CheckBox {
		n, err := ctx.DereferenceName(o, model.V10, nil)
		if err != nil {
			return ""
		}
		return string(n)
	}
	s, err := ctx.DereferenceStringOrHexLiteral(o, model.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

// IsChecked reports whether a checkbox value names an on-state.
func IsChecked(state string) bool {
	return state != "" && !strings.EqualFold(state, "Off")
}
