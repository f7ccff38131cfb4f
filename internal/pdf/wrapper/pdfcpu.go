package wrapper

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Configuration returns the pdfcpu configuration used for every read and
// write: relaxed validation so that slightly malformed documents still open.
func Configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// OpenContext parses doc into a pdfcpu context with a known page count.
func OpenContext(doc []byte) (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(doc), Configuration())
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open",
			Err:     fmt.Errorf("failed to read PDF context: %w", err),
		}
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "open",
			Err:     fmt.Errorf("failed to ensure page count: %w", err),
		}
	}
	return ctx, nil
}

// WriteContext serializes ctx to a new byte slice.
func WriteContext(ctx *model.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, &WrapperError{
			Library: LibraryPDFCPU,
			Op:      "write",
			Err:     fmt.Errorf("failed to write PDF context: %w", err),
		}
	}
	return buf.Bytes(), nil
}
