package annotation

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/wrapper"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Extractor turns widget annotations into FieldRecords.
type Extractor struct {
	Policy  geometry.Policy
	Virtual VirtualFieldSource
	Logger  *log.Logger
}

// NewExtractor creates an extractor. virtual may be nil.
func NewExtractor(policy geometry.Policy, virtual VirtualFieldSource, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{Policy: policy, Virtual: virtual, Logger: logger}
}

// Extract discovers fields on every page described by pages. A page whose
// annotations cannot be read contributes no declared fields and one
// AnnotationExtraction entry in the returned collection.
func (e *Extractor) Extract(ctx context.Context, doc []byte, pages []geometry.PageGeometry) ([]FieldRecord, *errors.ErrorCollection) {
	report := errors.NewErrorCollection("")

	pctx, err := wrapper.OpenContext(bytes.Clone(doc))
	if err != nil {
		e.Logger.Printf("annotation extraction: cannot parse document: %v", err)
		for _, g := range pages {
			report.Add(errors.Wrapf(errors.ErrorTypeAnnotationExtraction, err, "cannot read annotations").WithPage(g.Index + 1))
		}
		pctx = nil
	} else if perms := security.DocumentPermissions(pctx); !perms.AllowsFilling() {
		e.Logger.Printf("annotation extraction: document permissions deny form filling (%s)", perms)
		report.Add(errors.NewPDFErrorWithContext(errors.ErrorTypeAnnotationExtraction,
			"document permissions do not allow filling form fields", perms.String()))
	}

	var records []FieldRecord
	for _, g := range pages {
		if ctx.Err() != nil {
			report.Add(errors.WrapError(errors.ErrorTypeAnnotationExtraction, ctx.Err()).WithPage(g.Index + 1))
			break
		}
		if pctx != nil {
			declared, err := e.extractPage(pctx, g)
			if err != nil {
				e.Logger.Printf("annotation extraction: page %d: %v", g.Index+1, err)
				report.Add(errors.Wrapf(errors.ErrorTypeAnnotationExtraction, err, "cannot read annotations").WithPage(g.Index + 1))
			} else {
				records = append(records, declared...)
			}
		}
		records = append(records, e.virtualFields(g)...)
	}
	return records, report
}

func (e *Extractor) extractPage(pctx *model.Context, g geometry.PageGeometry) (records []FieldRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("panic reading annotations: %v", r)
		}
	}()

	pageNr := g.Index + 1
	if pageNr > pctx.PageCount {
		return nil, fmt.Errorf("page %d not in document", pageNr)
	}
	_, _, inh, err := pctx.PageDict(pageNr, false)
	if err != nil {
		return nil, err
	}
	var llx, lly float64
	if inh != nil && inh.MediaBox != nil {
		llx = math.Min(inh.MediaBox.LL.X, inh.MediaBox.UR.X)
		lly = math.Min(inh.MediaBox.LL.Y, inh.MediaBox.UR.Y)
	}

	widgets, err := pageWidgets(pctx, pageNr)
	if err != nil {
		return nil, err
	}

	for _, w := range widgets {
		if w.Hidden() {
			continue
		}
		if !w.Supported {
			e.Logger.Printf("annotation extraction: page %d: skipping unsupported widget %q", pageNr, w.Name)
			continue
		}
		pdfRect := geometry.NormalizeAnnotRect(w.Rect[0]-llx, w.Rect[1]-lly, w.Rect[2]-llx, w.Rect[3]-lly, e.Policy)
		placeholder := w.Tooltip
		if placeholder == "" {
			placeholder = w.Name
		}
		records = append(records, FieldRecord{
			ID:          fmt.Sprintf("p%d-a%d", g.Index, w.Index),
			Name:        w.Name,
			Kind:        w.Kind,
			Page:        g.Index,
			CanvasRect:  geometry.ToCanvasClamped(g, pdfRect, e.Policy),
			PDFRect:     pdfRect,
			Placeholder: placeholder,
			Options:     w.OptionLabels(),
			Origin:      Declared{ObjectNumber: w.ObjectNumber},
		})
	}
	return records, nil
}

func (e *Extractor) virtualFields(g geometry.PageGeometry) []FieldRecord {
	if e.Virtual == nil {
		return nil
	}
	var out []FieldRecord
	for i, vf := range e.Virtual.VirtualFields(g.Index) {
		id := fmt.Sprintf("p%d-v%d", g.Index, i)
		name := vf.Name
		if name == "" {
			name = id
		}
		placeholder := vf.Placeholder
		if placeholder == "" {
			placeholder = name
		}
		out = append(out, FieldRecord{
			ID:          id,
			Name:        name,
			Kind:        vf.Kind,
			Page:        g.Index,
			CanvasRect:  geometry.ToCanvasClamped(g, vf.Rect, e.Policy),
			PDFRect:     vf.Rect,
			Placeholder: placeholder,
			Origin:      Virtual{SyntheticID: id},
		})
	}
	return out
}

// ReadValues returns the native value of every named field, as reported by
// NativeValue for the field's first widget.
func ReadValues(doc []byte) (map[string]string, error) {
	pctx, err := wrapper.OpenContext(doc)
	if err != nil {
		return nil, err
	}
	index, err := Index(pctx)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(index))
	for name, widgets := range index {
		values[name] = NativeValue(pctx, widgets[0])
	}
	return values, nil
}
