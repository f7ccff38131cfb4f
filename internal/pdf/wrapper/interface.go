// Package wrapper opens document bytes with the two PDF libraries used by the
// signer: pdfcpu for structure and writing, ledongthuc/pdf for text.
package wrapper

import (
	"bytes"
	"fmt"
)

// LibraryType represents the underlying PDF library being used
type LibraryType string

const (
	LibraryPDFCPU     LibraryType = "pdfcpu"
	LibraryLedongthuc LibraryType = "ledongthuc"
)

// WrapperError records which library failed in which operation.
type WrapperError struct {
	Library LibraryType `json:"library"`
	Op      string      `json:"operation"`
	Err     error       `json:"error"`
}

func (e *WrapperError) Error() string {
	return fmt.Sprintf("PDF %s library error in %s: %v", e.Library, e.Op, e.Err)
}

func (e *WrapperError) Unwrap() error {
	return e.Err
}

// Common error variables
var (
	ErrNotPDF = &WrapperError{Op: "probe", Err: fmt.Errorf("missing %%PDF- header")}
	ErrEmpty  = &WrapperError{Op: "probe", Err: fmt.Errorf("document is empty")}
)

// headerWindow is how far into the file the %PDF- marker may appear.
const headerWindow = 1024

// Info is what a structural probe learns about a document.
type Info struct {
	Size      int  `json:"size"`
	PageCount int  `json:"page_count"`
	HasText   bool `json:"has_text"`
}

// Probe checks that doc looks like a PDF and opens it with both libraries.
// A pdfcpu failure is returned as an error; a text-layer failure only clears
// HasText.
func Probe(doc []byte) (*Info, error) {
	if len(doc) == 0 {
		return nil, ErrEmpty
	}
	window := doc
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	if !bytes.Contains(window, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	ctx, err := OpenContext(doc)
	if err != nil {
		return nil, err
	}
	info := &Info{Size: len(doc), PageCount: ctx.PageCount}
	if r, err := OpenText(doc); err == nil {
		info.HasText = numPages(r) == ctx.PageCount
	}
	return info, nil
}
