// Package pdftest builds small, valid PDF documents with AcroForm widgets for
// tests. Offsets in the cross-reference table are computed while writing.
package pdftest

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Field types as written to /FT.
const (
	Text      = "Tx"
	Button    = "Btn"
	Choice    = "Ch"
	Signature = "Sig"
)

// Annotation flag values.
const (
	FlagPrint  = 4
	FlagHidden = 132
)

// Field flag bits.
const (
	FlagRadio      = 1 << 15
	FlagPushButton = 1 << 16
	FlagCombo      = 1 << 17
	FlagEdit       = 1 << 18
)

// Widget describes one widget annotation. Value is a raw PDF object such as
// "(Ada)" or "/Yes". With Kid set the field dictionary and the widget are
// written as separate objects linked through /Parent and /Kids.
type Widget struct {
	Name       string
	Type       string
	Subtype    string
	Rect       [4]float64
	Flags      int
	FieldFlags int
	Value      string
	Options    []string
	Tooltip    string
	OnState    string
	Kid        bool

	// Raw, when set, is written verbatim as the annotation dictionary.
	Raw string
}

// Image is an uncompressed DeviceRGB image XObject.
type Image struct {
	Width  int
	Height int
	RGB    []byte
}

// Page describes one page. Content is the raw content stream; /F1 is bound to
// Helvetica and images are bound under their map keys.
type Page struct {
	Width   float64
	Height  float64
	Content string
	Widgets []Widget
	Images  map[string]Image
}

type builder struct {
	objs []string
}

func (b *builder) reserve() int {
	b.objs = append(b.objs, "")
	return len(b.objs)
}

func (b *builder) set(n int, body string) {
	b.objs[n-1] = body
}

func (b *builder) add(body string) int {
	n := b.reserve()
	b.set(n, body)
	return n
}

func (b *builder) stream(dict, data string) int {
	return b.add(fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data))
}

// Build writes a document containing pages in order.
func Build(pages ...Page) []byte {
	b := &builder{}
	catalog := b.reserve()
	pagesObj := b.reserve()
	acroForm := b.reserve()
	font := b.add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids, fields []string
	for _, p := range pages {
		pageObj := b.reserve()
		kids = append(kids, ref(pageObj))

		content := b.stream("", p.Content)

		var xobjs []string
		names := make([]string, 0, len(p.Images))
		for name := range p.Images {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			img := p.Images[name]
			var hex strings.Builder
			for _, c := range img.RGB {
				fmt.Fprintf(&hex, "%02x", c)
			}
			hex.WriteString(">")
			n := b.stream(fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /ASCIIHexDecode",
				img.Width, img.Height), hex.String())
			xobjs = append(xobjs, fmt.Sprintf("/%s %s", name, ref(n)))
		}

		var annots []string
		for _, w := range p.Widgets {
			annot, field := b.widget(w, pageObj)
			annots = append(annots, ref(annot))
			if field > 0 {
				fields = append(fields, ref(field))
			}
		}

		res := fmt.Sprintf("/Resources << /Font << /F1 %s >>", ref(font))
		if len(xobjs) > 0 {
			res += " /XObject << " + strings.Join(xobjs, " ") + " >>"
		}
		res += " >>"
		body := fmt.Sprintf("<< /Type /Page /Parent %s /MediaBox [0 0 %s %s] %s /Contents %s",
			ref(pagesObj), num(p.Width), num(p.Height), res, ref(content))
		if len(annots) > 0 {
			body += " /Annots [" + strings.Join(annots, " ") + "]"
		}
		b.set(pageObj, body+" >>")
	}

	b.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s /AcroForm %s >>", ref(pagesObj), ref(acroForm)))
	b.set(pagesObj, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	b.set(acroForm, fmt.Sprintf("<< /Fields [%s] /DR << /Font << /Helv %s >> >> /DA (/Helv 0 Tf 0 g) >>",
		strings.Join(fields, " "), ref(font)))

	return b.bytes(catalog)
}

// widget writes w and returns the annotation object and the terminal field
// object to list in /Fields, or 0 for non-widget annotations.
func (b *builder) widget(w Widget, pageObj int) (annot, field int) {
	if w.Raw != "" {
		return b.add(w.Raw), 0
	}
	subtype := w.Subtype
	if subtype == "" {
		subtype = "Widget"
	}
	flags := w.Flags
	if flags == 0 {
		flags = FlagPrint
	}
	rect := fmt.Sprintf("[%s %s %s %s]", num(w.Rect[0]), num(w.Rect[1]), num(w.Rect[2]), num(w.Rect[3]))

	if subtype != "Widget" {
		return b.add(fmt.Sprintf("<< /Type /Annot /Subtype /%s /Rect %s /F %d /P %s >>",
			subtype, rect, flags, ref(pageObj))), 0
	}

	var fieldPart, widgetPart strings.Builder
	if w.Type != "" {
		fmt.Fprintf(&fieldPart, " /FT /%s", w.Type)
	}
	if w.Name != "" {
		fmt.Fprintf(&fieldPart, " /T %s", Literal(w.Name))
	}
	if w.FieldFlags != 0 {
		fmt.Fprintf(&fieldPart, " /Ff %d", w.FieldFlags)
	}
	if w.Value != "" {
		fmt.Fprintf(&fieldPart, " /V %s", w.Value)
	}
	if w.Tooltip != "" {
		fmt.Fprintf(&fieldPart, " /TU %s", Literal(w.Tooltip))
	}
	if len(w.Options) > 0 {
		opts := make([]string, len(w.Options))
		for i, o := range w.Options {
			opts[i] = Literal(o)
		}
		fmt.Fprintf(&fieldPart, " /Opt [%s]", strings.Join(opts, " "))
	}
	if w.Type == Text || w.Type == Choice {
		fieldPart.WriteString(" /DA (/Helv 0 Tf 0 g)")
	}

	fmt.Fprintf(&widgetPart, "/Type /Annot /Subtype /Widget /Rect %s /F %d /P %s", rect, flags, ref(pageObj))
	if w.Type == Button && w.FieldFlags&(FlagRadio|FlagPushButton) == 0 {
		on := w.OnState
		if on == "" {
			on = "Yes"
		}
		onAP := b.stream("/Type /XObject /Subtype /Form /BBox [0 0 20 20]", "0 0 1 rg 4 4 12 12 re f")
		offAP := b.stream("/Type /XObject /Subtype /Form /BBox [0 0 20 20]", "")
		state := "Off"
		if w.Value == "/"+on {
			state = on
		}
		fmt.Fprintf(&widgetPart, " /AP << /N << /%s %s /Off %s >> >> /AS /%s", on, ref(onAP), ref(offAP), state)
	}

	if !w.Kid {
		n := b.add("<< " + widgetPart.String() + fieldPart.String() + " >>")
		return n, n
	}

	parent := b.reserve()
	kid := b.add(fmt.Sprintf("<< %s /Parent %s >>", widgetPart.String(), ref(parent)))
	b.set(parent, fmt.Sprintf("<<%s /Kids [%s] >>", fieldPart.String(), ref(kid)))
	return kid, parent
}

func (b *builder) bytes(root int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(b.objs))
	for i, body := range b.objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(b.objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %s >>\nstartxref\n%d\n%%%%EOF\n", len(b.objs)+1, ref(root), xref)
	return buf.Bytes()
}

// Literal returns s as an escaped PDF literal string.
func Literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\r", `\r`, "\n", `\n`)
	return "(" + r.Replace(s) + ")"
}

func ref(n int) string {
	return fmt.Sprintf("%d 0 R", n)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
