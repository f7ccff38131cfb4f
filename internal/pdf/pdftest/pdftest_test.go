package pdftest

import (
	"bytes"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIsReadable(t *testing.T) {
	doc := NameAndSign()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(doc), conf)
	require.NoError(t, err)
	require.NoError(t, ctx.EnsurePageCount())
	assert.Equal(t, 2, ctx.PageCount)

	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	require.NoError(t, err)
	assert.Equal(t, 2, r.NumPage())
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, `(a\(b\)c\\)`, Literal(`a(b)c\`))
	assert.Equal(t, `(line\nbreak)`, Literal("line\nbreak"))
}

func TestKitchenSinkWidgets(t *testing.T) {
	doc := KitchenSink()
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-1.7")))
	assert.Contains(t, string(doc), "/F 132")
	assert.Contains(t, string(doc), "/Subtype /Link")
}
