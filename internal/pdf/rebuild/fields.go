package rebuild

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/store"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/unicode"
)

// textString encodes s as a PDF text string: a literal for printable ASCII,
// otherwise UTF-16BE with a byte order mark.
func textString(s string) (types.Object, error) {
	ascii := true
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c > 0x7e {
			ascii = false
			break
		}
	}
	if ascii {
		return types.StringLiteral(escapeLiteral(s)), nil
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	b, err := enc.String(s)
	if err != nil {
		return nil, err
	}
	return types.HexLiteral(strings.ToUpper(hex.EncodeToString([]byte(b)))), nil
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", `\r`, "\n", `\n`)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

// target picks the widget a record refers to: the one with the record's
// object number, else the first visible widget of the same kind.
func target(index map[string][]*annotation.Widget, f annotation.FieldRecord) (*annotation.Widget, error) {
	widgets := index[f.Name]
	if d, ok := f.Origin.(annotation.Declared); ok && d.ObjectNumber > 0 {
		for _, w := range widgets {
			if w.ObjectNumber == d.ObjectNumber {
				return w, nil
			}
		}
	}
	for _, w := range widgets {
		if !w.Hidden() && w.Supported && w.Kind == f.Kind {
			return w, nil
		}
	}
	return nil, fmt.Errorf("field %q not found in document", f.Name)
}

// setField writes v into the native field behind f.
func setField(pctx *model.Context, index map[string][]*annotation.Widget, f annotation.FieldRecord, v store.Value) error {
	w, err := target(index, f)
	if err != nil {
		return err
	}

	switch f.Kind {
	case annotation.TextField:
		return setText(w, store.String(v))
	case annotation.CheckBox:
		setCheckbox(index[f.Name], w, store.Truthy(v))
		return nil
	case annotation.Dropdown:
		return setChoice(pctx, w, store.String(v))
	case annotation.SignatureField:
		return fmt.Errorf("signature fields are stamped, not set")
	}
	return fmt.Errorf("unsupported field kind %v", f.Kind)
}

func setText(w *annotation.Widget, s string) error {
	o, err := textString(s)
	if err != nil {
		return err
	}
	w.Field["V"] = o
	delete(w.Dict, "AP")
	return nil
}

// setCheckbox sets V on the field and AS on each visible widget of it.
func setCheckbox(widgets []*annotation.Widget, w *annotation.Widget, checked bool) {
	state := func(x *annotation.Widget) types.Name {
		if checked {
			return types.Name(x.OnState)
		}
		return types.Name("Off")
	}
	w.Field["V"] = state(w)
	for _, x := range widgets {
		if x.Hidden() || x.Kind != annotation.CheckBox {
			continue
		}
		x.Dict["AS"] = state(x)
	}
}

// setChoice selects the option labelled s. Other values turn the field into
// an editable combo box holding s verbatim.
func setChoice(pctx *model.Context, w *annotation.Widget, s string) error {
	for _, opt := range w.Options {
		if opt.Label == s {
			o, err := textString(opt.Export)
			if err != nil {
				return err
			}
			w.Field["V"] = o
			delete(w.Dict, "AP")
			return nil
		}
	}

	flags := 0
	if o, found := w.Field.Find("Ff"); found {
		if i, err := pctx.DereferenceInteger(o); err == nil && i != nil {
			flags = int(*i)
		}
	}
	w.Field["Ff"] = types.Integer(flags | annotation.FlagCombo | annotation.FlagEdit)
	return setText(w, s)
}

// needAppearances asks viewers to regenerate field appearances.
func needAppearances(pctx *model.Context) error {
	root, err := pctx.Catalog()
	if err != nil {
		return err
	}
	o, found := root.Find("AcroForm")
	if !found {
		return nil
	}
	form, err := pctx.DereferenceDict(o)
	if err != nil {
		return err
	}
	if form != nil {
		form["NeedAppearances"] = types.Boolean(true)
	}
	return nil
}
