package errors

import (
	"errors"
	"fmt"
	"time"
)

// PDFError represents a signing-pipeline failure with enough context to report it
// to the user or to a completion report.
type PDFError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	FieldName   string    `json:"field_name,omitempty"`
	ObjectNum   int       `json:"object_num,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	PageNumber  int       `json:"page_number,omitempty"`

	cause error
}

// ErrorType categorizes failures across load, extraction and rebuild.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeDocumentLoad covers unreadable, non-PDF or otherwise unrenderable input.
	ErrorTypeDocumentLoad
	// ErrorTypeAnnotationExtraction is scoped to a single page.
	ErrorTypeAnnotationExtraction
	// ErrorTypeFieldUpdate is scoped to a single field during rebuild.
	ErrorTypeFieldUpdate
	// ErrorTypeImageEmbed is scoped to a single signature image during rebuild.
	ErrorTypeImageEmbed
	// ErrorTypePdfRebuild means the output document could not be produced at all.
	ErrorTypePdfRebuild
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Sentinel errors for session guards.
var (
	ErrNotLoaded        = errors.New("document not loaded")
	ErrRebuildInFlight  = errors.New("a rebuild is already in progress")
	ErrNothingToSubmit  = errors.New("no fields filled and no signatures placed")
	ErrUnknownField     = errors.New("unknown field")
	ErrUnknownOverlay   = errors.New("unknown signature overlay")
	ErrInvalidPage      = errors.New("page index out of range")
	ErrDragInProgress   = errors.New("signature drag in progress")
	ErrUnsupportedValue = errors.New("value kind does not match field kind")
)

// Error implements the error interface
func (e *PDFError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type.String(), e.Message, e.Context)
	}
	return fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *PDFError) Unwrap() error {
	return e.cause
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeDocumentLoad:
		return "DOCUMENT_LOAD"
	case ErrorTypeAnnotationExtraction:
		return "ANNOTATION_EXTRACTION"
	case ErrorTypeFieldUpdate:
		return "FIELD_UPDATE"
	case ErrorTypeImageEmbed:
		return "IMAGE_EMBED"
	case ErrorTypePdfRebuild:
		return "PDF_REBUILD"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeDocumentLoad, ErrorTypePdfRebuild:
		return SeverityFatal
	case ErrorTypeAnnotationExtraction, ErrorTypeFieldUpdate, ErrorTypeImageEmbed:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// IsRecoverable reports whether the surrounding operation continues after an
// error of this type.
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeAnnotationExtraction, ErrorTypeFieldUpdate, ErrorTypeImageEmbed:
		return true
	default:
		return false
	}
}

// NewPDFError creates a new PDFError
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// NewPDFErrorWithContext creates a new PDFError with additional context
func NewPDFErrorWithContext(errorType ErrorType, message, context string) *PDFError {
	e := NewPDFError(errorType, message)
	e.Context = context
	return e
}

// WrapError wraps a standard error as a PDFError, keeping it reachable through errors.Is/As.
func WrapError(errorType ErrorType, err error) *PDFError {
	e := NewPDFError(errorType, err.Error())
	e.cause = err
	return e
}

// Wrapf wraps err with a formatted message.
func Wrapf(errorType ErrorType, err error, format string, args ...any) *PDFError {
	e := NewPDFError(errorType, fmt.Sprintf(format, args...))
	e.Context = err.Error()
	e.cause = err
	return e
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithPage adds page number information to an existing PDFError
func (e *PDFError) WithPage(pageNumber int) *PDFError {
	e.PageNumber = pageNumber
	return e
}

// WithField records the field the error is about.
func (e *PDFError) WithField(name string) *PDFError {
	e.FieldName = name
	return e
}

// WithObject records the PDF object number the error is about.
func (e *PDFError) WithObject(objNum int) *PDFError {
	e.ObjectNum = objNum
	return e
}

// GetSeverity returns the severity of this specific error
func (e *PDFError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// IsFatal returns true if the error aborts the whole operation.
func (e *PDFError) IsFatal() bool {
	return e.GetSeverity() == SeverityFatal
}

// IsType reports whether err is a PDFError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var pe *PDFError
	if errors.As(err, &pe) {
		return pe.Type == errorType
	}
	return false
}

// ErrorCollection manages multiple PDF errors
type ErrorCollection struct {
	Errors   []*PDFError `json:"errors"`
	Warnings []*PDFError `json:"warnings"`
	FilePath string      `json:"file_path,omitempty"`
}

// NewErrorCollection creates a new error collection
func NewErrorCollection(filePath string) *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*PDFError, 0),
		Warnings: make([]*PDFError, 0),
		FilePath: filePath,
	}
}

// Add adds an error to the appropriate collection based on severity
func (ec *ErrorCollection) Add(err *PDFError) {
	severity := err.GetSeverity()
	if severity == SeverityWarning || severity == SeverityInfo {
		ec.Warnings = append(ec.Warnings, err)
	} else {
		ec.Errors = append(ec.Errors, err)
	}
}

// HasFatalErrors returns true if any fatal errors exist
func (ec *ErrorCollection) HasFatalErrors() bool {
	for _, err := range ec.Errors {
		if err.IsFatal() {
			return true
		}
	}
	return false
}

// All returns errors followed by warnings.
func (ec *ErrorCollection) All() []*PDFError {
	all := make([]*PDFError, 0, len(ec.Errors)+len(ec.Warnings))
	all = append(all, ec.Errors...)
	return append(all, ec.Warnings...)
}

// OfType returns every collected entry of the given type.
func (ec *ErrorCollection) OfType(errorType ErrorType) []*PDFError {
	var out []*PDFError
	for _, err := range ec.All() {
		if err.Type == errorType {
			out = append(out, err)
		}
	}
	return out
}

// Count returns the total number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	return len(ec.Errors), len(ec.Warnings)
}

// Empty reports whether nothing was collected.
func (ec *ErrorCollection) Empty() bool {
	return len(ec.Errors) == 0 && len(ec.Warnings) == 0
}

// Summary returns a text summary of all errors and warnings
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}

	summary := fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)

	if ec.HasFatalErrors() {
		summary += " (including fatal errors)"
	}

	return summary
}
