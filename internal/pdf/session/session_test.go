package session

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/interaction"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/store"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/wrapper"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySubmitter struct {
	mu      sync.Mutex
	got     []Submission
	entered chan struct{}
	release chan struct{}
}

func (m *memorySubmitter) Submit(ctx context.Context, sub Submission) (string, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, sub)
	return "memory://" + sub.Name, nil
}

func open(t *testing.T, doc []byte) *Session {
	t.Helper()
	s, err := Open(context.Background(), BytesSource{Label: "agreement", Data: doc}, DefaultOptions())
	require.NoError(t, err)
	return s
}

func field(t *testing.T, s *Session, name string) annotation.FieldRecord {
	t.Helper()
	f, ok := s.FieldByName(name)
	require.True(t, ok, "field %s", name)
	return f
}

func signature(t *testing.T) (string, image.Image) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 50))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	uri, err := store.EncodeDataURI(img)
	require.NoError(t, err)
	return uri, img
}

func TestOpenLoadsPagesThenFields(t *testing.T) {
	s := open(t, pdftest.NameAndSign())

	pages, err := s.Pages()
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 918, pages[0].PixelWidth)

	fields, err := s.Fields(context.Background())
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "Name", fields[0].Name)
	assert.Equal(t, 0, fields[0].Page)
	assert.Equal(t, "Sign", fields[1].Name)
	assert.Equal(t, 1, fields[1].Page)

	for i := range pages {
		c, err := s.Canvas(i)
		require.NoError(t, err)
		assert.Equal(t, 918, c.Bounds().Dx())
	}
	_, err = s.Canvas(2)
	assert.ErrorIs(t, err, errors.ErrInvalidPage)
}

func TestFieldsWaitsForLoad(t *testing.T) {
	s := New("early", DefaultOptions())

	got := make(chan []annotation.FieldRecord, 1)
	go func() {
		fields, err := s.Fields(context.Background())
		if err == nil {
			got <- fields
		}
		close(got)
	}()

	require.NoError(t, s.Load(context.Background(), pdftest.NameAndSign()))
	select {
	case fields := <-got:
		assert.Len(t, fields, 2)
	case <-time.After(10 * time.Second):
		t.Fatal("Fields did not return after load")
	}
}

func TestUnloadedSession(t *testing.T) {
	s := New("empty", DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Fields(ctx)
	assert.ErrorIs(t, err, errors.ErrNotLoaded)

	assert.ErrorIs(t, s.SetFieldValue("p0-a0", store.Text("x")), errors.ErrNotLoaded)
	_, err = s.Status()
	assert.ErrorIs(t, err, errors.ErrNotLoaded)
	_, err = s.Complete(context.Background(), &memorySubmitter{})
	assert.ErrorIs(t, err, errors.ErrNotLoaded)
}

// expiringContext reports Canceled once Err has been asked more than budget times.
type expiringContext struct {
	context.Context
	mu     sync.Mutex
	budget int
}

func (c *expiringContext) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.budget <= 0 {
		return context.Canceled
	}
	c.budget--
	return nil
}

func TestLoadCancelledMidwayKeepsNoPartialFields(t *testing.T) {
	for budget := 0; budget <= 6; budget++ {
		s := New("cancelled", DefaultOptions())
		ctx := &expiringContext{Context: context.Background(), budget: budget}

		err := s.Load(ctx, pdftest.NameAndSign())
		if err != nil {
			assert.True(t, errors.IsType(err, errors.ErrorTypeDocumentLoad), "budget %d", budget)
			assert.ErrorIs(t, err, context.Canceled, "budget %d", budget)

			require.NoError(t, s.Load(context.Background(), pdftest.NameAndSign()), "budget %d", budget)
		}

		fields, err := s.Fields(context.Background())
		require.NoError(t, err)
		assert.Len(t, fields, 2, "budget %d", budget)
	}
}

func TestLoadFailureIsRetryable(t *testing.T) {
	s := New("retry", DefaultOptions())

	err := s.Load(context.Background(), []byte("not a pdf"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDocumentLoad))

	require.NoError(t, s.Load(context.Background(), pdftest.NameAndSign()))
	assert.Error(t, s.Load(context.Background(), pdftest.NameAndSign()))
}

func TestCompleteRejectedWhenNothingEntered(t *testing.T) {
	s := open(t, pdftest.NameAndSign())
	sub := &memorySubmitter{}

	_, err := s.Complete(context.Background(), sub)
	assert.ErrorIs(t, err, errors.ErrNothingToSubmit)
	assert.Empty(t, sub.got)
	assert.False(t, s.Rebuilding())
}

func TestCompleteEndToEnd(t *testing.T) {
	s := open(t, pdftest.NameAndSign())
	uri, _ := signature(t)

	require.NoError(t, s.SetFieldValue(field(t, s, "Name").ID, store.Text("Jane Doe")))

	out, err := s.Pointer(PointerDown, 1, geometry.Point{X: 200, Y: 1000})
	require.NoError(t, err)
	require.Equal(t, interaction.OpenSignatureCapture, out.Kind)
	require.NoError(t, s.SaveFieldSignature(out.FieldID, uri))

	status, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, Summary{SignatureCount: 1, TotalFields: 2, FilledFieldCount: 2}, status)

	sub := &memorySubmitter{}
	done, err := s.Complete(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "memory://agreement", done.Location)
	assert.True(t, done.Report.Empty())
	require.Len(t, sub.got, 1)
	assert.Equal(t, status, sub.got[0].Summary)

	values, err := annotation.ReadValues(sub.got[0].Document)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", values["Name"])

	pctx, err := wrapper.OpenContext(sub.got[0].Document)
	require.NoError(t, err)
	r, err := pdfcpu.ExtractPageContent(pctx, 2)
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(content), "200 0 0 50 100 100 cm /SignerIm0 Do")
}

func TestCompleteGuardsAgainstReentry(t *testing.T) {
	s := open(t, pdftest.NameAndSign())
	require.NoError(t, s.SetFieldValue(field(t, s, "Name").ID, store.Text("Jane")))

	sub := &memorySubmitter{entered: make(chan struct{}), release: make(chan struct{})}
	errc := make(chan error, 1)
	go func() {
		_, err := s.Complete(context.Background(), sub)
		errc <- err
	}()

	<-sub.entered
	assert.True(t, s.Rebuilding())
	_, err := s.Complete(context.Background(), &memorySubmitter{})
	assert.ErrorIs(t, err, errors.ErrRebuildInFlight)

	close(sub.release)
	require.NoError(t, <-errc)
	assert.False(t, s.Rebuilding())
}

func TestDragOverlayAcrossPages(t *testing.T) {
	s := open(t, pdftest.NameAndSign())
	_, bitmap := signature(t)

	o, err := s.PlaceSignature(0, geometry.Point{X: 400, Y: 400}, geometry.Size{Width: 100, Height: 25}, bitmap)
	require.NoError(t, err)

	out, err := s.Pointer(PointerDown, 0, geometry.Point{X: 450, Y: 410})
	require.NoError(t, err)
	assert.Equal(t, interaction.BeginDrag, out.Kind)

	_, err = s.TogglePreview()
	assert.ErrorIs(t, err, errors.ErrDragInProgress)

	_, err = s.Pointer(PointerMove, 1, geometry.Point{X: 300, Y: 300})
	require.NoError(t, err)
	out, err = s.Pointer(PointerUp, 1, geometry.Point{X: 310, Y: 320})
	require.NoError(t, err)
	assert.Equal(t, interaction.Dropped, out.Kind)

	overlays, err := s.Overlays()
	require.NoError(t, err)
	require.Len(t, overlays, 1)
	assert.Equal(t, o.ID, overlays[0].ID)
	assert.Equal(t, 1, overlays[0].Page)
	assert.Equal(t, geometry.Point{X: 260, Y: 307.5}, overlays[0].Position)

	status, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, status.SignatureCount)

	require.NoError(t, s.RemoveSignature(o.ID))
	assert.ErrorIs(t, s.RemoveSignature(o.ID), errors.ErrUnknownOverlay)
}

func TestPreviewChangesCanvas(t *testing.T) {
	s := open(t, pdftest.NameAndSign())
	before, err := s.Canvas(0)
	require.NoError(t, err)

	on, err := s.TogglePreview()
	require.NoError(t, err)
	assert.True(t, on)
	after, err := s.Canvas(0)
	require.NoError(t, err)
	assert.NotEqual(t, before.Pix, after.Pix)

	out, err := s.Pointer(PointerDown, 0, geometry.Point{X: 200, Y: 110})
	require.NoError(t, err)
	assert.Equal(t, interaction.None, out.Kind)

	mode, err := s.Mode()
	require.NoError(t, err)
	assert.True(t, interaction.IsPreview(mode))
}

func TestFileSourceAndSubmitter(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "lease.pdf"), pdftest.NameAndSign(), 0o644))

	v, err := security.NewPathValidator(root)
	require.NoError(t, err)

	src := FileSource{Path: "lease.pdf", Validator: v, MaxSize: 1 << 20}
	assert.Equal(t, "lease", src.Name())

	s, err := Open(context.Background(), src, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.SetFieldValue(field(t, s, "Name").ID, store.Text("Jane")))

	out := filepath.Join(root, "signed")
	done, err := s.Complete(context.Background(), FileSubmitter{Dir: out})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "lease.signed.pdf"), done.Location)

	data, err := os.ReadFile(done.Location)
	require.NoError(t, err)
	values, err := annotation.ReadValues(data)
	require.NoError(t, err)
	assert.Equal(t, "Jane", values["Name"])

	_, err = FileSource{Path: "../outside.pdf", Validator: v}.Fetch(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypeDocumentLoad))
	_, err = FileSource{Path: "lease.pdf", Validator: v, MaxSize: 10}.Fetch(context.Background())
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a_b", sanitizeName("a/b"))
	assert.Equal(t, "document", sanitizeName(".."))
	assert.Equal(t, "lease", sanitizeName("lease"))
}

func TestFindField(t *testing.T) {
	s := open(t, pdftest.NameAndSign())
	ctx := context.Background()

	byName, err := s.FindField(ctx, "Sign")
	require.NoError(t, err)
	assert.Equal(t, annotation.SignatureField, byName.Kind)

	byID, err := s.FindField(ctx, byName.ID)
	require.NoError(t, err)
	assert.Equal(t, byName, byID)

	_, err = s.FindField(ctx, "Witness")
	assert.ErrorIs(t, err, errors.ErrUnknownField)
}
