package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-signer/internal/descriptions"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/geometry"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/interaction"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/session"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/store"
)

// fieldView is the JSON shape of a field in tool results.
type fieldView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Kind        string        `json:"kind"`
	Page        int           `json:"page"`
	CanvasRect  geometry.Rect `json:"canvas_rect"`
	Placeholder string        `json:"placeholder,omitempty"`
	Options     []string      `json:"options,omitempty"`
	Virtual     bool          `json:"virtual,omitempty"`
	Value       string        `json:"value,omitempty"`
	Filled      bool          `json:"filled"`
}

// displayValue renders a value for tool output. Signature images are not
// echoed back.
func displayValue(v store.Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case store.Image:
		if t == "" {
			return ""
		}
		return "<signature image>"
	default:
		return store.String(v)
	}
}

func fieldViews(ctx context.Context, sess *session.Session) ([]fieldView, error) {
	records, err := sess.Fields(ctx)
	if err != nil {
		return nil, err
	}
	values, err := sess.Values()
	if err != nil {
		return nil, err
	}
	views := make([]fieldView, 0, len(records))
	for _, r := range records {
		v := values[r.ID]
		views = append(views, fieldView{
			ID:          r.ID,
			Name:        r.Name,
			Kind:        r.Kind.String(),
			Page:        r.Page,
			CanvasRect:  r.CanvasRect,
			Placeholder: r.Placeholder,
			Options:     r.Options,
			Virtual:     annotation.IsVirtual(r.Origin),
			Value:       displayValue(v),
			Filled:      v != nil && !v.Empty(),
		})
	}
	return views, nil
}

func (s *Server) formatOpenResult(ctx context.Context, sess *session.Session) (string, error) {
	pages, err := sess.Pages()
	if err != nil {
		return "", err
	}
	fields, err := fieldViews(ctx, sess)
	if err != nil {
		return "", err
	}

	payload := struct {
		SessionID string                  `json:"session_id"`
		Document  string                  `json:"document"`
		Pages     []geometry.PageGeometry `json:"pages"`
		Fields    []fieldView             `json:"fields"`
	}{SessionID: sess.ID, Document: sess.Name, Pages: pages, Fields: fields}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf("Opened %s: session %s, %d page(s), %d field(s)\n", sess.Name, sess.ID, len(pages), len(fields))
	if report := sess.ExtractionReport(); report != nil && !report.Empty() {
		text += report.Summary() + "\n"
	}
	return text + string(body), nil
}

func (s *Server) formatFields(ctx context.Context, sess *session.Session) (string, error) {
	fields, err := fieldViews(ctx, sess)
	if err != nil {
		return "", err
	}
	if len(fields) == 0 {
		return "No fillable fields found", nil
	}
	body, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func formatOutcome(out interaction.Outcome, mode interaction.Mode) string {
	text := fmt.Sprintf("Outcome: %s\n", out.Kind)
	if out.FieldID != "" {
		text += fmt.Sprintf("Field: %s\n", out.FieldID)
	}
	if out.OverlayID != "" {
		text += fmt.Sprintf("Signature: %s\n", out.OverlayID)
	}
	text += fmt.Sprintf("Mode: %s", mode)
	if out.Kind == interaction.OpenSignatureCapture {
		text += "\nNext: provide the signature image with sign_save_signature"
	}
	return text
}

func formatStatus(sess *session.Session) (string, error) {
	summary, err := sess.Status()
	if err != nil {
		return "", err
	}
	mode, err := sess.Mode()
	if err != nil {
		return "", err
	}
	overlays, err := sess.Overlays()
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf("Session %s (%s)\n", sess.ID, sess.Name)
	text += fmt.Sprintf("Mode: %s\n", mode)
	text += fmt.Sprintf("Fields: %d of %d filled\n", summary.FilledFieldCount, summary.TotalFields)
	text += fmt.Sprintf("Signatures: %d\n", summary.SignatureCount)
	for _, o := range overlays {
		text += fmt.Sprintf("  • %s on page %d at (%g, %g)\n", o.ID, o.Page, o.Position.X, o.Position.Y)
	}
	if sess.Rebuilding() {
		text += "Rebuild in progress\n"
	}
	return text, nil
}

func formatCompletion(done *session.Completion) string {
	text := "Document completed\n"
	text += fmt.Sprintf("Location: %s\n", done.Location)
	text += fmt.Sprintf("Size: %d bytes\n", done.Size)
	text += fmt.Sprintf("Fields filled: %d of %d\n", done.Summary.FilledFieldCount, done.Summary.TotalFields)
	text += fmt.Sprintf("Signatures: %d\n", done.Summary.SignatureCount)
	if done.Report != nil && !done.Report.Empty() {
		text += "\nSkipped items:\n"
		for _, e := range done.Report.All() {
			text += fmt.Sprintf("  • %v\n", e)
		}
	}
	return text
}

func (s *Server) formatServerInfo() string {
	stats := s.sessions.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	fmt.Fprintf(&b, "📁 PDF Directory: %s\n", s.config.PDFDirectory)
	fmt.Fprintf(&b, "📤 Output Directory: %s\n", s.config.OutputDir)
	fmt.Fprintf(&b, "📏 Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	fmt.Fprintf(&b, "🗂️  Sessions: %d open of %d (opened %d, evicted %d)\n\n",
		stats.Size, stats.Capacity, stats.Opened, stats.Evicted)

	b.WriteString("🛠️  Available Tools:\n")
	for _, name := range descriptions.GetAllToolNames() {
		summary, _, _ := strings.Cut(descriptions.GetToolDescription(name), "\n")
		fmt.Fprintf(&b, "• %s: %s\n", name, summary)
	}
	return b.String()
}
