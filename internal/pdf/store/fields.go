package store

import (
	"fmt"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
)

// FieldStore holds the extracted field records in document order and the
// values entered for them. Values exist only for known field ids.
type FieldStore struct {
	order   []string
	records map[string]annotation.FieldRecord
	values  map[string]Value
}

// NewFieldStore creates a store over records.
func NewFieldStore(records []annotation.FieldRecord) *FieldStore {
	s := &FieldStore{
		order:   make([]string, 0, len(records)),
		records: make(map[string]annotation.FieldRecord, len(records)),
		values:  make(map[string]Value),
	}
	for _, r := range records {
		if _, dup := s.records[r.ID]; dup {
			continue
		}
		s.order = append(s.order, r.ID)
		s.records[r.ID] = r
	}
	return s
}

// Records returns all records in document order.
func (s *FieldStore) Records() []annotation.FieldRecord {
	out := make([]annotation.FieldRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// OnPage returns the records on a page in document order.
func (s *FieldStore) OnPage(page int) []annotation.FieldRecord {
	var out []annotation.FieldRecord
	for _, id := range s.order {
		if r := s.records[id]; r.Page == page {
			out = append(out, r)
		}
	}
	return out
}

// Record returns the record with the given id.
func (s *FieldStore) Record(id string) (annotation.FieldRecord, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Len returns the number of records.
func (s *FieldStore) Len() int {
	return len(s.order)
}

// Get returns the value of a field.
func (s *FieldStore) Get(id string) (Value, bool) {
	v, ok := s.values[id]
	return v, ok
}

// Set stores a value. The value kind must suit the field: Image for
// signature fields, Bool or Text for checkboxes and Text otherwise.
func (s *FieldStore) Set(id string, v Value) error {
	r, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownField, id)
	}
	if v == nil {
		delete(s.values, id)
		return nil
	}
	if !accepts(r.Kind, v) {
		return fmt.Errorf("%w: %T for %s field %s", errors.ErrUnsupportedValue, v, r.Kind, id)
	}
	if t, isText := v.(Text); isText && r.Kind == annotation.CheckBox {
		v = Bool(Truthy(t))
	}
	s.values[id] = v
	return nil
}

func accepts(k annotation.Kind, v Value) bool {
	switch v.(type) {
	case Image:
		return k == annotation.SignatureField
	case Bool:
		return k == annotation.CheckBox
	case Text:
		return k != annotation.SignatureField
	}
	return false
}

// Clear removes the value of a field.
func (s *FieldStore) Clear(id string) error {
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownField, id)
	}
	delete(s.values, id)
	return nil
}

// Values returns a copy of all values keyed by field id.
func (s *FieldStore) Values() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Filled counts the fields whose value is not empty.
func (s *FieldStore) Filled() int {
	n := 0
	for _, v := range s.values {
		if !v.Empty() {
			n++
		}
	}
	return n
}

// SignedFields counts signature fields holding an image.
func (s *FieldStore) SignedFields() int {
	n := 0
	for id, v := range s.values {
		if s.records[id].Kind == annotation.SignatureField && !v.Empty() {
			n++
		}
	}
	return n
}
