package wrapper

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// OpenText opens doc for text decoding. The library panics on some malformed
// inputs; those panics are returned as errors.
func OpenText(doc []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, &WrapperError{
				Library: LibraryLedongthuc,
				Op:      "open",
				Err:     fmt.Errorf("panic: %v", rec),
			}
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      "open",
			Err:     fmt.Errorf("failed to open PDF: %w", err),
		}
	}
	return r, nil
}

func numPages(r *pdf.Reader) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return r.NumPage()
}
