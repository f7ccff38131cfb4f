package store

import (
	"fmt"
	"image"
	"sort"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/google/uuid"
)

// Overlay is a freely placed signature image. Position and Size are canvas
// pixels on Page.
type Overlay struct {
	ID       string         `json:"id"`
	Page     int            `json:"page"`
	Position geometry.Point `json:"position"`
	Size     geometry.Size  `json:"size"`
	Bitmap   image.Image    `json:"-"`
	Order    int            `json:"order"`
}

// Rect returns the overlay's canvas rectangle.
func (o Overlay) Rect() geometry.Rect {
	return geometry.Rect{X: o.Position.X, Y: o.Position.Y, Width: o.Size.Width, Height: o.Size.Height}
}

// SignatureStore holds the placed overlays of a document.
type SignatureStore struct {
	pageCount int
	next      int
	overlays  map[string]*Overlay
}

// NewSignatureStore creates a store for a document of pageCount pages.
func NewSignatureStore(pageCount int) *SignatureStore {
	return &SignatureStore{pageCount: pageCount, overlays: make(map[string]*Overlay)}
}

func (s *SignatureStore) checkPage(page int) error {
	if page < 0 || page >= s.pageCount {
		return fmt.Errorf("%w: %d", errors.ErrInvalidPage, page)
	}
	return nil
}

// Place adds an overlay above all existing ones.
func (s *SignatureStore) Place(page int, pos geometry.Point, size geometry.Size, bitmap image.Image) (Overlay, error) {
	if err := s.checkPage(page); err != nil {
		return Overlay{}, err
	}
	if bitmap == nil {
		return Overlay{}, fmt.Errorf("signature bitmap is required")
	}
	if size.Width <= 0 || size.Height <= 0 {
		b := bitmap.Bounds()
		size = geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}
	s.next++
	o := &Overlay{
		ID:       uuid.NewString(),
		Page:     page,
		Position: pos,
		Size:     size,
		Bitmap:   bitmap,
		Order:    s.next,
	}
	s.overlays[o.ID] = o
	return *o, nil
}

// Move repositions an overlay, possibly onto another page.
func (s *SignatureStore) Move(id string, page int, pos geometry.Point) error {
	o, ok := s.overlays[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownOverlay, id)
	}
	if err := s.checkPage(page); err != nil {
		return err
	}
	o.Page = page
	o.Position = pos
	return nil
}

// Remove deletes an overlay.
func (s *SignatureStore) Remove(id string) error {
	if _, ok := s.overlays[id]; !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownOverlay, id)
	}
	delete(s.overlays, id)
	return nil
}

// Get returns an overlay by id.
func (s *SignatureStore) Get(id string) (Overlay, bool) {
	o, ok := s.overlays[id]
	if !ok {
		return Overlay{}, false
	}
	return *o, true
}

// All returns every overlay, bottom-most first.
func (s *SignatureStore) All() []Overlay {
	out := make([]Overlay, 0, len(s.overlays))
	for _, o := range s.overlays {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// OnPage returns the overlays of a page, bottom-most first.
func (s *SignatureStore) OnPage(page int) []Overlay {
	var out []Overlay
	for _, o := range s.All() {
		if o.Page == page {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of overlays.
func (s *SignatureStore) Len() int {
	return len(s.overlays)
}

// PageCount returns the number of pages overlays may be placed on.
func (s *SignatureStore) PageCount() int {
	return s.pageCount
}
