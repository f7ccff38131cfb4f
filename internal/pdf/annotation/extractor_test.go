package annotation

import (
	"context"
	"testing"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/wrapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func letterPages(n int) []geometry.PageGeometry {
	pages := make([]geometry.PageGeometry, n)
	for i := range pages {
		pages[i] = geometry.NewPageGeometry(i, pdftest.LetterWidth, pdftest.LetterHeight, 1.5)
	}
	return pages
}

func byName(records []FieldRecord) map[string]FieldRecord {
	out := make(map[string]FieldRecord, len(records))
	for _, r := range records {
		out[r.Name] = r
	}
	return out
}

func TestExtractKitchenSink(t *testing.T) {
	e := NewExtractor(geometry.DefaultPolicy(), nil, nil)
	records, report := e.Extract(context.Background(), pdftest.KitchenSink(), letterPages(1))

	assert.True(t, report.Empty())
	require.Len(t, records, 4)

	fields := byName(records)
	tests := []struct {
		name    string
		id      string
		kind    Kind
		pdfRect geometry.Rect
	}{
		{"FullName", "p0-a0", TextField, geometry.Rect{X: 100, Y: 700, Width: 200, Height: 24}},
		{"Agree", "p0-a1", CheckBox, geometry.Rect{X: 100, Y: 650, Width: 100, Height: 20}},
		{"Country", "p0-a2", Dropdown, geometry.Rect{X: 100, Y: 600, Width: 150, Height: 20}},
		{"Signature", "p0-a3", SignatureField, geometry.Rect{X: 300, Y: 100, Width: 200, Height: 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := fields[tt.name]
			require.True(t, ok)
			assert.Equal(t, tt.id, r.ID)
			assert.Equal(t, tt.kind, r.Kind)
			assert.Equal(t, 0, r.Page)
			assert.Equal(t, tt.pdfRect, r.PDFRect)
			assert.IsType(t, Declared{}, r.Origin)
			assert.NotZero(t, r.Origin.(Declared).ObjectNumber)
		})
	}

	name := fields["FullName"]
	assert.InDelta(t, 150, name.CanvasRect.X, 1e-9)
	assert.InDelta(t, 102, name.CanvasRect.Y, 1e-9)
	assert.InDelta(t, 300, name.CanvasRect.Width, 1e-9)
	assert.InDelta(t, 36, name.CanvasRect.Height, 1e-9)
	assert.Equal(t, "FullName", name.Placeholder)

	assert.Equal(t, []string{"Canada", "Mexico", "USA"}, fields["Country"].Options)
}

func TestExtractNeverReturnsHiddenWidgets(t *testing.T) {
	e := NewExtractor(geometry.DefaultPolicy(), nil, nil)
	records, _ := e.Extract(context.Background(), pdftest.KitchenSink(), letterPages(1))

	for _, r := range records {
		assert.NotEqual(t, "Internal", r.Name)
		assert.NotEqual(t, "Choice", r.Name)
		assert.NotEqual(t, "Submit", r.Name)
	}
}

func TestExtractNamesAndPlaceholders(t *testing.T) {
	doc := pdftest.Build(pdftest.Page{
		Width:  pdftest.LetterWidth,
		Height: pdftest.LetterHeight,
		Widgets: []pdftest.Widget{
			{Name: "Parent", Type: pdftest.Text, Rect: [4]float64{10, 10, 200, 40}, Kid: true, Tooltip: "Your parent"},
			{Type: pdftest.Text, Rect: [4]float64{10, 100, 200, 130}},
		},
	})

	e := NewExtractor(geometry.DefaultPolicy(), nil, nil)
	records, report := e.Extract(context.Background(), doc, letterPages(1))
	require.True(t, report.Empty())
	require.Len(t, records, 2)

	assert.Equal(t, "Parent", records[0].Name)
	assert.Equal(t, "Your parent", records[0].Placeholder)
	assert.Equal(t, "Field_1_1", records[1].Name)
	assert.Equal(t, "Field_1_1", records[1].Placeholder)
}

func TestExtractPageFailureIsIsolated(t *testing.T) {
	doc := pdftest.Build(
		pdftest.Page{
			Width:  pdftest.LetterWidth,
			Height: pdftest.LetterHeight,
			Widgets: []pdftest.Widget{
				{Raw: "<< /Type /Annot /Subtype /Widget /FT /Tx /T (Broken) >>"},
			},
		},
		pdftest.Page{
			Width:  pdftest.LetterWidth,
			Height: pdftest.LetterHeight,
			Widgets: []pdftest.Widget{
				{Name: "Good", Type: pdftest.Text, Rect: [4]float64{10, 10, 200, 40}},
			},
		},
	)

	e := NewExtractor(geometry.DefaultPolicy(), nil, nil)
	records, report := e.Extract(context.Background(), doc, letterPages(2))

	require.Len(t, records, 1)
	assert.Equal(t, "Good", records[0].Name)
	assert.Equal(t, 1, records[0].Page)

	failures := report.OfType(errors.ErrorTypeAnnotationExtraction)
	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].PageNumber)
}

func TestExtractVirtualFields(t *testing.T) {
	virtual := StaticVirtualFields{
		{Page: 1, Name: "Initials", Kind: TextField, Rect: geometry.Rect{X: 500, Y: 50, Width: 60, Height: 20}},
		{Page: 5, Name: "Elsewhere", Kind: TextField},
	}
	e := NewExtractor(geometry.DefaultPolicy(), virtual, nil)
	records, _ := e.Extract(context.Background(), pdftest.NameAndSign(), letterPages(2))

	require.Len(t, records, 3)
	v := records[2]
	assert.Equal(t, "Initials", v.Name)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, "p1-v0", v.ID)
	assert.True(t, IsVirtual(v.Origin))
	assert.Equal(t, Virtual{SyntheticID: "p1-v0"}, v.Origin)
}

func TestIndexIncludesHiddenWidgets(t *testing.T) {
	ctx, err := wrapper.OpenContext(pdftest.KitchenSink())
	require.NoError(t, err)

	index, err := Index(ctx)
	require.NoError(t, err)

	hidden := index["Internal"]
	require.Len(t, hidden, 1)
	assert.True(t, hidden[0].Hidden())
	assert.Equal(t, "secret", NativeValue(ctx, hidden[0]))

	agree := index["Agree"]
	require.Len(t, agree, 1)
	assert.Equal(t, "Yes", agree[0].OnState)
	assert.True(t, agree[0].Supported)
	assert.False(t, index["Choice"][0].Supported)
}

func TestReadValues(t *testing.T) {
	values, err := ReadValues(pdftest.KitchenSink())
	require.NoError(t, err)

	assert.Equal(t, "Ada", values["FullName"])
	assert.Equal(t, "secret", values["Internal"])
	assert.Equal(t, "", values["Agree"])
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{TextField, CheckBox, Dropdown, SignatureField} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("radio")
	assert.Error(t, err)
	assert.True(t, IsChecked("Yes"))
	assert.False(t, IsChecked("Off"))
	assert.False(t, IsChecked(""))
}
