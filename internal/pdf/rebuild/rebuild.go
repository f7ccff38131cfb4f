// Package rebuild writes entered values and signature images into a fresh
// copy of the original document.
package rebuild

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"math"
	"sort"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/store"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/wrapper"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Rebuilder produces the completed document.
type Rebuilder struct {
	Logger *log.Logger
}

// NewRebuilder creates a rebuilder.
func NewRebuilder(logger *log.Logger) *Rebuilder {
	if logger == nil {
		logger = log.Default()
	}
	return &Rebuilder{Logger: logger}
}

// Input is what a rebuild reads. Pages carries the geometry the canvas
// rectangles were computed with.
type Input struct {
	Original []byte
	Pages    []geometry.PageGeometry
	Fields   []annotation.FieldRecord
	Values   map[string]store.Value
	Overlays []store.Overlay
}

// Result is the rebuilt document and the items that could not be applied.
type Result struct {
	Document []byte
	Report   *errors.ErrorCollection
	Applied  int
	Stamped  int
}

// Rebuild re-parses the original bytes, updates native fields, stamps
// signature images and serializes the result. Per-item failures are
// collected in Result.Report; only parse and write failures are returned.
func (r *Rebuilder) Rebuild(ctx context.Context, in Input) (*Result, error) {
	pctx, err := wrapper.OpenContext(bytes.Clone(in.Original))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrorTypePdfRebuild, err, "cannot parse original document")
	}

	res := &Result{Report: errors.NewErrorCollection("")}
	if perms := security.DocumentPermissions(pctx); !perms.AllowsStamping() {
		r.Logger.Printf("rebuild: document permissions deny modification (%s), stamping anyway", perms)
	}

	index, err := annotation.Index(pctx)
	if err != nil {
		r.Logger.Printf("rebuild: cannot index form fields: %v", err)
		index = map[string][]*annotation.Widget{}
	}

	geoms := make(map[int]geometry.PageGeometry, len(in.Pages))
	for _, g := range in.Pages {
		geoms[g.Index] = g
	}

	stamps := make(map[int][]stamp)
	updated := false

	for _, f := range in.Fields {
		v := in.Values[f.ID]
		if f.Kind != annotation.CheckBox && (v == nil || v.Empty()) {
			continue
		}
		virtual := annotation.IsVirtual(f.Origin)

		switch {
		case f.Kind == annotation.SignatureField:
			img, err := r.decodeSignature(v)
			if err != nil {
				r.imageFailed(res, f.Page, f.Name, err)
				continue
			}
			g, ok := geoms[f.Page]
			if !ok {
				r.imageFailed(res, f.Page, f.Name, fmt.Errorf("no geometry for page %d", f.Page+1))
				continue
			}
			b := img.Bounds()
			rect := geometry.FitRect(
				geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())},
				geometry.ToPDF(g, f.CanvasRect),
			)
			stamps[f.Page] = append(stamps[f.Page], stamp{label: f.Name, rect: rect, image: img})

		case virtual:
			s := store.String(v)
			if f.Kind == annotation.CheckBox {
				if v == nil || !store.Truthy(v) {
					continue
				}
				s = "X"
			}
			stamps[f.Page] = append(stamps[f.Page], stamp{label: f.Name, rect: f.PDFRect, text: s})

		default:
			if err := setField(pctx, index, f, v); err != nil {
				r.Logger.Printf("rebuild: skipping field %q: %v", f.Name, err)
				failure := errors.Wrapf(errors.ErrorTypeFieldUpdate, err, "cannot update field").
					WithField(f.Name).WithPage(f.Page + 1)
				if d, ok := f.Origin.(annotation.Declared); ok {
					failure = failure.WithObject(d.ObjectNumber)
				}
				res.Report.Add(failure)
				continue
			}
			updated = true
			res.Applied++
		}
	}

	for _, o := range in.Overlays {
		g, ok := geoms[o.Page]
		if !ok {
			r.imageFailed(res, o.Page, o.ID, fmt.Errorf("no geometry for page %d", o.Page+1))
			continue
		}
		if o.Bitmap == nil {
			r.imageFailed(res, o.Page, o.ID, fmt.Errorf("overlay has no bitmap"))
			continue
		}
		stamps[o.Page] = append(stamps[o.Page], stamp{label: o.ID, rect: geometry.ToPDF(g, o.Rect()), image: o.Bitmap})
	}

	if updated {
		if err := needAppearances(pctx); err != nil {
			r.Logger.Printf("rebuild: cannot set NeedAppearances: %v", err)
		}
	}

	pagesWithStamps := make([]int, 0, len(stamps))
	for p := range stamps {
		pagesWithStamps = append(pagesWithStamps, p)
	}
	sort.Ints(pagesWithStamps)

	for _, page := range pagesWithStamps {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapError(errors.ErrorTypePdfRebuild, err)
		}
		r.stampPage(pctx, page, stamps[page], res)
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.WrapError(errors.ErrorTypePdfRebuild, err)
	}
	doc, err := wrapper.WriteContext(pctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrorTypePdfRebuild, err, "cannot serialize document")
	}
	res.Document = doc
	return res, nil
}

func (r *Rebuilder) stampPage(pctx *model.Context, page int, items []stamp, res *Result) {
	pageNr := page + 1
	fail := func(s stamp, err error) {
		r.imageFailed(res, page, s.label, err)
	}
	if pageNr < 1 || pageNr > pctx.PageCount {
		for _, s := range items {
			fail(s, fmt.Errorf("page %d not in document", pageNr))
		}
		return
	}

	defer func() {
		if p := recover(); p != nil {
			for _, s := range items {
				fail(s, fmt.Errorf("panic while stamping: %v", p))
			}
		}
	}()

	origin, err := mediaOrigin(pctx, pageNr)
	if err != nil {
		for _, s := range items {
			fail(s, err)
		}
		return
	}
	n, err := applyStamps(pctx, pageNr, origin, items, fail)
	if err != nil {
		r.Logger.Printf("rebuild: cannot stamp page %d: %v", pageNr, err)
		res.Report.Add(errors.Wrapf(errors.ErrorTypeImageEmbed, err, "cannot stamp page").WithPage(pageNr))
		return
	}
	res.Stamped += n
}

func mediaOrigin(pctx *model.Context, pageNr int) (geometry.Point, error) {
	_, _, inh, err := pctx.PageDict(pageNr, false)
	if err != nil {
		return geometry.Point{}, err
	}
	if inh == nil || inh.MediaBox == nil {
		return geometry.Point{}, nil
	}
	mb := inh.MediaBox
	return geometry.Point{X: math.Min(mb.LL.X, mb.UR.X), Y: math.Min(mb.LL.Y, mb.UR.Y)}, nil
}

func (r *Rebuilder) decodeSignature(v store.Value) (image.Image, error) {
	uri, ok := v.(store.Image)
	if !ok {
		return nil, fmt.Errorf("signature value is %T, not an image", v)
	}
	return store.DecodeDataURI(string(uri))
}

func (r *Rebuilder) imageFailed(res *Result, page int, label string, err error) {
	r.Logger.Printf("rebuild: skipping signature %q on page %d: %v", label, page+1, err)
	res.Report.Add(errors.Wrapf(errors.ErrorTypeImageEmbed, err, "cannot embed signature").
		WithField(label).WithPage(page + 1))
}
