// Package session ties the signing engine together: one Session owns one
// document, its page canvases, the entered values and the placed signatures.
package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/compositor"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/interaction"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/raster"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/rebuild"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/store"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/wrapper"
	"github.com/google/uuid"
)

// Options configure a session.
type Options struct {
	Scale   float64
	Policy  geometry.Policy
	Render  compositor.Options
	Virtual annotation.VirtualFieldSource
	Logger  *log.Logger
}

// DefaultOptions returns the stock scale, policy and drawing options.
func DefaultOptions() Options {
	return Options{
		Scale:  raster.DefaultScale,
		Policy: geometry.DefaultPolicy(),
		Render: compositor.DefaultOptions(),
	}
}

// PageCanvas is a page raster and its latest composed canvas.
type PageCanvas struct {
	Raster raster.Page
	Canvas *image.RGBA
}

// Summary is the status reported with a completed document.
type Summary struct {
	SignatureCount   int `json:"signature_count"`
	TotalFields      int `json:"total_fields"`
	FilledFieldCount int `json:"filled_field_count"`
}

// Completion is the outcome of Complete.
type Completion struct {
	Location string                  `json:"location"`
	Summary  Summary                 `json:"summary"`
	Size     int                     `json:"size"`
	Report   *errors.ErrorCollection `json:"-"`
}

// Session is a single signing session. Its methods are safe for concurrent
// use; mutations are serialized.
type Session struct {
	ID   string
	Name string

	opts       Options
	logger     *log.Logger
	rasterizer *raster.Rasterizer
	extractor  *annotation.Extractor
	renderer   *compositor.Renderer
	rebuilder  *rebuild.Rebuilder

	mu       sync.Mutex
	loading  bool
	doc      []byte
	canvases map[int]*PageCanvas
	order    []int
	fields   *store.FieldStore
	sigs     *store.SignatureStore
	ctrl     *interaction.Controller
	report   *errors.ErrorCollection

	ready      chan struct{}
	rebuilding atomic.Bool
}

// New creates an empty session.
func New(name string, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		ID:         uuid.NewString(),
		Name:       name,
		opts:       opts,
		logger:     logger,
		rasterizer: raster.NewRasterizer(opts.Scale, logger),
		extractor:  annotation.NewExtractor(opts.Policy, opts.Virtual, logger),
		renderer:   compositor.NewRenderer(opts.Render),
		rebuilder:  rebuild.NewRebuilder(logger),
		canvases:   make(map[int]*PageCanvas),
		ready:      make(chan struct{}),
	}
}

// Open fetches the document from src and loads it.
func Open(ctx context.Context, src Source, opts Options) (*Session, error) {
	doc, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	s := New(src.Name(), opts)
	if err := s.Load(ctx, doc); err != nil {
		return nil, err
	}
	return s, nil
}

// Load rasterizes every page, then extracts fields with the final page
// geometry, then composes the canvases. A failed load leaves the session
// empty so that Load can be called again.
func (s *Session) Load(ctx context.Context, doc []byte) error {
	s.mu.Lock()
	if s.loaded() {
		s.mu.Unlock()
		return fmt.Errorf("session %s is already loaded", s.ID)
	}
	if s.loading {
		s.mu.Unlock()
		return fmt.Errorf("session %s is loading", s.ID)
	}
	s.loading = true
	s.mu.Unlock()

	owned := bytes.Clone(doc)
	info, err := wrapper.Probe(owned)
	if err != nil {
		s.finishLoad()
		return errors.Wrapf(errors.ErrorTypeDocumentLoad, err, "not a readable PDF")
	}
	if !info.HasText {
		s.logger.Printf("session %s: no text layer, pages render without text", s.ID)
	}

	pages, err := s.rasterizer.Rasterize(ctx, owned)
	if err != nil {
		s.finishLoad()
		return err
	}

	geoms := make([]geometry.PageGeometry, len(pages))
	for i, p := range pages {
		geoms[i] = p.Geometry
	}
	records, report := s.extractor.Extract(ctx, owned, geoms)
	for _, e := range report.All() {
		s.logger.Printf("session %s: %v", s.ID, e)
	}
	// A cancelled extraction may have skipped pages; the session stays
	// unloaded so that no field is dropped for good.
	if err := ctx.Err(); err != nil {
		s.finishLoad()
		return errors.Wrapf(errors.ErrorTypeDocumentLoad, err, "field extraction interrupted")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.doc = owned
	s.report = report
	s.fields = store.NewFieldStore(records)
	s.sigs = store.NewSignatureStore(len(pages))
	s.ctrl = interaction.NewController(s.fields, s.sigs, s.logger)
	for _, p := range pages {
		idx := p.Geometry.Index
		s.canvases[idx] = &PageCanvas{Raster: p}
		s.order = append(s.order, idx)
	}
	s.redraw()
	close(s.ready)
	return nil
}

func (s *Session) finishLoad() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *Session) loaded() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Fields returns the field records, waiting for the load to finish.
func (s *Session) Fields(ctx context.Context) ([]annotation.FieldRecord, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", errors.ErrNotLoaded, ctx.Err())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields.Records(), nil
}

// ExtractionReport returns the per-page extraction failures of the load.
func (s *Session) ExtractionReport() *errors.ErrorCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// lock acquires the mutex of a loaded session.
func (s *Session) lock() error {
	if !s.loaded() {
		return errors.ErrNotLoaded
	}
	s.mu.Lock()
	return nil
}

// redraw composes every canvas. The caller holds mu.
func (s *Session) redraw() {
	pages := make([]raster.Page, 0, len(s.order))
	for _, idx := range s.order {
		pages = append(pages, s.canvases[idx].Raster)
	}
	out := s.renderer.Render(pages, compositor.Scene{
		Fields:   s.fields.Records(),
		Values:   s.fields.Values(),
		Overlays: s.sigs.All(),
		Mode:     s.ctrl.Mode(),
	})
	for idx, img := range out {
		s.canvases[idx].Canvas = img
	}
}

// Pages returns the geometry of every page in order.
func (s *Session) Pages() ([]geometry.PageGeometry, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.geometries(), nil
}

func (s *Session) geometries() []geometry.PageGeometry {
	out := make([]geometry.PageGeometry, 0, len(s.order))
	for _, idx := range s.order {
		out = append(out, s.canvases[idx].Raster.Geometry)
	}
	return out
}

// Canvas returns the composed canvas of a page.
func (s *Session) Canvas(page int) (*image.RGBA, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	pc, ok := s.canvases[page]
	if !ok {
		return nil, fmt.Errorf("%w: %d", errors.ErrInvalidPage, page)
	}
	return pc.Canvas, nil
}

// Value returns the value entered for a field.
func (s *Session) Value(id string) (store.Value, bool, error) {
	if err := s.lock(); err != nil {
		return nil, false, err
	}
	defer s.mu.Unlock()
	v, ok := s.fields.Get(id)
	return v, ok, nil
}

// Values returns every entered value by field id.
func (s *Session) Values() (map[string]store.Value, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.fields.Values(), nil
}

// FieldByName finds a field record by name.
func (s *Session) FieldByName(name string) (annotation.FieldRecord, bool) {
	if s.lock() != nil {
		return annotation.FieldRecord{}, false
	}
	defer s.mu.Unlock()
	for _, r := range s.fields.Records() {
		if r.Name == name {
			return r, true
		}
	}
	return annotation.FieldRecord{}, false
}

// FindField resolves ref as a field id, then as a field name.
func (s *Session) FindField(ctx context.Context, ref string) (annotation.FieldRecord, error) {
	records, err := s.Fields(ctx)
	if err != nil {
		return annotation.FieldRecord{}, err
	}
	for _, r := range records {
		if r.ID == ref {
			return r, nil
		}
	}
	for _, r := range records {
		if r.Name == ref {
			return r, nil
		}
	}
	return annotation.FieldRecord{}, fmt.Errorf("%w: %s", errors.ErrUnknownField, ref)
}

// SetFieldValue stores a value; a nil value clears the field.
func (s *Session) SetFieldValue(id string, v store.Value) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if err := s.fields.Set(id, v); err != nil {
		return err
	}
	s.redraw()
	return nil
}

// SaveFieldSignature stores a signature image for a signature field and
// closes the capture flow.
func (s *Session) SaveFieldSignature(id, dataURI string) error {
	if _, err := store.DecodeDataURI(dataURI); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUnsupportedValue, err)
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if err := s.fields.Set(id, store.Image(dataURI)); err != nil {
		return err
	}
	s.ctrl.FieldCaptured()
	s.redraw()
	return nil
}

// PlaceSignature adds a free signature overlay. A zero size uses the bitmap
// size.
func (s *Session) PlaceSignature(page int, pos geometry.Point, size geometry.Size, bitmap image.Image) (store.Overlay, error) {
	if err := s.lock(); err != nil {
		return store.Overlay{}, err
	}
	defer s.mu.Unlock()
	o, err := s.sigs.Place(page, pos, size, bitmap)
	if err != nil {
		return store.Overlay{}, err
	}
	s.redraw()
	return o, nil
}

// RemoveSignature deletes an overlay, ending any drag of it.
func (s *Session) RemoveSignature(id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if err := s.sigs.Remove(id); err != nil {
		return err
	}
	s.ctrl.OverlayRemoved(id)
	s.redraw()
	return nil
}

// Overlays returns the placed overlays, bottom-most first.
func (s *Session) Overlays() ([]store.Overlay, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.sigs.All(), nil
}

// PointerEvent names a pointer action.
type PointerEvent string

const (
	PointerDown PointerEvent = "down"
	PointerMove PointerEvent = "move"
	PointerUp   PointerEvent = "up"
)

// Pointer feeds a pointer event at canvas point p on page to the
// controller and redraws when the outcome asks for it.
func (s *Session) Pointer(ev PointerEvent, page int, p geometry.Point) (interaction.Outcome, error) {
	if err := s.lock(); err != nil {
		return interaction.Outcome{}, err
	}
	defer s.mu.Unlock()

	var out interaction.Outcome
	switch ev {
	case PointerDown:
		out = s.ctrl.PointerDown(page, p)
	case PointerMove:
		out = s.ctrl.PointerMove(page, p)
	case PointerUp:
		out = s.ctrl.PointerUp(page, p)
	default:
		return interaction.Outcome{}, fmt.Errorf("unknown pointer event %q", ev)
	}
	if out.Redraw {
		s.redraw()
	}
	return out, nil
}

// TogglePreview enters or leaves Preview and reports whether it is now on.
func (s *Session) TogglePreview() (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()
	on, err := s.ctrl.TogglePreview()
	if err != nil {
		return false, err
	}
	s.redraw()
	return on, nil
}

// CloseEditor closes the open value editor.
func (s *Session) CloseEditor() (interaction.Outcome, error) {
	if err := s.lock(); err != nil {
		return interaction.Outcome{}, err
	}
	defer s.mu.Unlock()
	out := s.ctrl.CloseEditor()
	if out.Redraw {
		s.redraw()
	}
	return out, nil
}

// Mode returns the interaction mode.
func (s *Session) Mode() (interaction.Mode, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.ctrl.Mode(), nil
}

// Status returns the counts reported with a completed document.
func (s *Session) Status() (Summary, error) {
	if err := s.lock(); err != nil {
		return Summary{}, err
	}
	defer s.mu.Unlock()
	return s.summary(), nil
}

func (s *Session) summary() Summary {
	return Summary{
		SignatureCount:   s.sigs.Len() + s.fields.SignedFields(),
		TotalFields:      s.fields.Len(),
		FilledFieldCount: s.fields.Filled(),
	}
}

// Rebuilding reports whether a rebuild is in flight.
func (s *Session) Rebuilding() bool {
	return s.rebuilding.Load()
}

// Complete rebuilds the document from the original bytes and hands it to
// sub. It is rejected when nothing was filled or placed, and while another
// rebuild is in flight.
func (s *Session) Complete(ctx context.Context, sub Submitter) (*Completion, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	summary := s.summary()
	if summary.FilledFieldCount == 0 && s.sigs.Len() == 0 {
		s.mu.Unlock()
		return nil, errors.ErrNothingToSubmit
	}
	if !s.rebuilding.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return nil, errors.ErrRebuildInFlight
	}
	in := rebuild.Input{
		Original: s.doc,
		Pages:    s.geometries(),
		Fields:   s.fields.Records(),
		Values:   s.fields.Values(),
		Overlays: s.sigs.All(),
	}
	s.mu.Unlock()
	defer s.rebuilding.Store(false)

	res, err := s.rebuilder.Rebuild(ctx, in)
	if err != nil {
		return nil, err
	}
	for _, e := range res.Report.All() {
		s.logger.Printf("session %s: %v", s.ID, e)
	}

	location, err := sub.Submit(ctx, Submission{Name: s.Name, Document: res.Document, Summary: summary})
	if err != nil {
		return nil, fmt.Errorf("submission failed: %w", err)
	}
	return &Completion{Location: location, Summary: summary, Size: len(res.Document), Report: res.Report}, nil
}

// Close drops cached images. The session must not be used afterwards.
func (s *Session) Close() {
	s.renderer.Forget()
}
