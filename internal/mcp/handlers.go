package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/compositor"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/session"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/store"
)

func (s *Server) session(request mcp.CallToolRequest) (*session.Session, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return nil, err
	}
	return s.sessions.Get(id)
}

// loadImage reads a signature image from a data URI or a file inside the PDF
// directory. It returns the image and its data URI form.
func (s *Server) loadImage(ref string) (image.Image, string, error) {
	if strings.HasPrefix(ref, "data:") {
		if int64(len(ref)) > 2*s.config.MaxFileSize {
			return nil, "", fmt.Errorf("%w: data URI exceeds %d bytes", store.ErrImageTooLarge, 2*s.config.MaxFileSize)
		}
		img, err := store.DecodeDataURI(ref)
		if err != nil {
			return nil, "", err
		}
		return img, ref, nil
	}

	path, err := s.validator.ValidateDocument(ref, s.config.MaxFileSize)
	if err != nil {
		return nil, "", fmt.Errorf("security validation failed: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("cannot read image: %w", err)
	}
	img, err := store.DecodeImage(data)
	if err != nil {
		return nil, "", fmt.Errorf("image %s: %w", ref, err)
	}
	uri, err := store.EncodeDataURI(img)
	if err != nil {
		return nil, "", err
	}
	return img, uri, nil
}

func (s *Server) handleSignOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts, err := s.config.SessionOptions(s.logger)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	src := session.FileSource{Path: path, Validator: s.validator, MaxSize: s.config.MaxFileSize}
	sess, err := session.Open(ctx, src, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sessions.Add(sess); err != nil {
		sess.Close()
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := s.formatOpenResult(ctx, sess)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSignFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.formatFields(ctx, sess)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSignSetValue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := sess.FindField(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw := request.GetString("value", "")
	var v store.Value
	if raw != "" {
		v = store.Text(raw)
	}
	if err := sess.SetFieldValue(f.ID, v); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if v == nil {
		return mcp.NewToolResultText(fmt.Sprintf("Cleared %s (%s)", f.Name, f.ID)), nil
	}
	stored, _, err := sess.Value(f.ID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Set %s (%s) to %s", f.Name, f.ID, displayValue(stored))), nil
}

func (s *Server) handleSignPointer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	event, err := request.RequireString("event")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, p, err := pagePoint(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := sess.Pointer(session.PointerEvent(event), page, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := sess.Mode()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatOutcome(out, mode)), nil
}

func (s *Server) handleSignSaveSignature(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	imageRef, err := request.RequireString("image")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := sess.FindField(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if f.Kind != annotation.SignatureField {
		return mcp.NewToolResultError(fmt.Sprintf("field %s is a %s field, not a signature field", f.Name, f.Kind)), nil
	}
	_, uri, err := s.loadImage(imageRef)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := sess.SaveFieldSignature(f.ID, uri); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Signed %s (%s) on page %d", f.Name, f.ID, f.Page)), nil
}

func (s *Server) handleSignPlaceSignature(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, p, err := pagePoint(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	imageRef, err := request.RequireString("image")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	img, _, err := s.loadImage(imageRef)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	size := geometry.Size{
		Width:  request.GetFloat("width", 0),
		Height: request.GetFloat("height", 0),
	}

	o, err := sess.PlaceSignature(page, p, size, img)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Placed signature %s on page %d at (%g, %g), %gx%g px",
		o.ID, o.Page, o.Position.X, o.Position.Y, o.Size.Width, o.Size.Height)), nil
}

func (s *Server) handleSignRemoveSignature(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := request.RequireString("overlay_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := sess.RemoveSignature(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed signature %s", id)), nil
}

func (s *Server) handleSignPreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	on, err := sess.TogglePreview()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if on {
		return mcp.NewToolResultText("Preview on"), nil
	}
	return mcp.NewToolResultText("Preview off"), nil
}

func (s *Server) handleSignCloseEditor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := sess.CloseEditor()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := sess.Mode()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatOutcome(out, mode)), nil
}

func (s *Server) handleSignRenderPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := request.RequireFloat("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	canvas, err := sess.Canvas(int(page))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := compositor.EncodePNG(canvas)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b := canvas.Bounds()
	caption := fmt.Sprintf("Page %d, %dx%d px", int(page), b.Dx(), b.Dy())
	return mcp.NewToolResultImage(caption, base64.StdEncoding.EncodeToString(data), "image/png"), nil
}

func (s *Server) handleSignStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := formatStatus(sess)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSignComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	done, err := sess.Complete(ctx, s.submitter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCompletion(done)), nil
}

func (s *Server) handleSignClose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sessions.Remove(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Closed session %s", id)), nil
}

func (s *Server) handleSignServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

func pagePoint(request mcp.CallToolRequest) (int, geometry.Point, error) {
	page, err := request.RequireFloat("page")
	if err != nil {
		return 0, geometry.Point{}, err
	}
	x, err := request.RequireFloat("x")
	if err != nil {
		return 0, geometry.Point{}, err
	}
	y, err := request.RequireFloat("y")
	if err != nil {
		return 0, geometry.Point{}, err
	}
	return int(page), geometry.Point{X: x, Y: y}, nil
}
