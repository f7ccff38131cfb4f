package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperations(t *testing.T) {
	ops := parseOperations([]byte("q 1 0 0 1 10 20 cm % comment\n/Im1 Do Q BT (a\\(b\\)) Tj [(x) -20 (y)] TJ <48 49> Tj ET"))

	require.Len(t, ops, 9)
	assert.Equal(t, "q", ops[0].operator)
	assert.Equal(t, "cm", ops[1].operator)
	assert.Equal(t, []any{1.0, 0.0, 0.0, 1.0, 10.0, 20.0}, ops[1].operands)
	assert.Equal(t, "Do", ops[2].operator)
	assert.Equal(t, []any{name("Im1")}, ops[2].operands)
	assert.Equal(t, []any{"a(b)"}, ops[5].operands)
	assert.Equal(t, []any{[]any{"x", -20.0, "y"}}, ops[6].operands)
	assert.Equal(t, "TJ", ops[6].operator)
	assert.Equal(t, []any{"HI"}, ops[7].operands)
}

func TestParseOperationsSkipsInlineImages(t *testing.T) {
	ops := parseOperations([]byte("BI /W 1 /H 1 /CS /G /BPC 8 ID \x00\xff EI 0 g"))
	require.Len(t, ops, 1)
	assert.Equal(t, "g", ops[0].operator)
	assert.Equal(t, []any{0.0}, ops[0].operands)
}

func TestParseOperationsDropsDicts(t *testing.T) {
	ops := parseOperations([]byte("/OC << /Type /OCMD /P [1 2] >> BDC EMC"))
	require.Len(t, ops, 2)
	assert.Equal(t, "BDC", ops[0].operator)
	assert.Equal(t, []any{name("OC"), nil}, ops[0].operands)
}

func TestMatrixMultiply(t *testing.T) {
	translate := matrix{1, 0, 0, 1, 10, 20}
	scale := matrix{2, 0, 0, 2, 0, 0}

	x, y := translate.multiply(scale).apply(1, 1)
	assert.Equal(t, 22.0, x)
	assert.Equal(t, 42.0, y)

	base := deviceMatrix(0, 792, 1.5)
	x, y = base.apply(100, 792)
	assert.Equal(t, 150.0, x)
	assert.Equal(t, 0.0, y)
	assert.InDelta(t, 1.5, base.scale(), 1e-9)
}
