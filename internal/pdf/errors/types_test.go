package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypeClassification(t *testing.T) {
	tests := []struct {
		errorType   ErrorType
		name        string
		severity    ErrorSeverity
		recoverable bool
	}{
		{ErrorTypeDocumentLoad, "DOCUMENT_LOAD", SeverityFatal, false},
		{ErrorTypeAnnotationExtraction, "ANNOTATION_EXTRACTION", SeverityWarning, true},
		{ErrorTypeFieldUpdate, "FIELD_UPDATE", SeverityWarning, true},
		{ErrorTypeImageEmbed, "IMAGE_EMBED", SeverityWarning, true},
		{ErrorTypePdfRebuild, "PDF_REBUILD", SeverityFatal, false},
		{ErrorTypeUnknown, "UNKNOWN", SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.errorType.String())
			assert.Equal(t, tt.severity, tt.errorType.GetSeverity())
			assert.Equal(t, tt.recoverable, tt.errorType.IsRecoverable())
		})
	}
}

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := fmt.Errorf("read: %w", ErrNotLoaded)
	err := WrapError(ErrorTypeDocumentLoad, cause).WithPage(2)

	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.True(t, IsType(err, ErrorTypeDocumentLoad))
	assert.False(t, IsType(err, ErrorTypePdfRebuild))
	assert.Equal(t, 2, err.PageNumber)
	assert.True(t, err.IsFatal())

	var pe *PDFError
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &pe))
	assert.Equal(t, ErrorTypeDocumentLoad, pe.Type)
}

func TestErrorMessageFormat(t *testing.T) {
	err := NewPDFErrorWithContext(ErrorTypeFieldUpdate, "cannot set value", "field Name")
	assert.Equal(t, "[FIELD_UPDATE] cannot set value: field Name", err.Error())

	plain := NewPDFError(ErrorTypeImageEmbed, "bad image")
	assert.Equal(t, "[IMAGE_EMBED] bad image", plain.Error())
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection("doc.pdf")
	assert.True(t, ec.Empty())
	assert.Equal(t, "No errors or warnings", ec.Summary())

	ec.Add(NewPDFError(ErrorTypeFieldUpdate, "a").WithField("Name"))
	ec.Add(NewPDFError(ErrorTypeImageEmbed, "b"))
	ec.Add(NewPDFError(ErrorTypeFieldUpdate, "c"))

	errs, warns := ec.Count()
	assert.Equal(t, 0, errs)
	assert.Equal(t, 3, warns)
	assert.False(t, ec.HasFatalErrors())
	assert.Len(t, ec.OfType(ErrorTypeFieldUpdate), 2)
	assert.Equal(t, "Name", ec.OfType(ErrorTypeFieldUpdate)[0].FieldName)

	ec.Add(NewPDFError(ErrorTypePdfRebuild, "d"))
	assert.True(t, ec.HasFatalErrors())
	assert.Len(t, ec.All(), 4)
	assert.Contains(t, ec.Summary(), "including fatal errors")
}
