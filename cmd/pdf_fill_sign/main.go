package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-pdf-signer/internal/config"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/annotation"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/session"
	"github.com/a3tai/mcp-pdf-signer/internal/pdf/store"
)

type options struct {
	values  string
	signs   []string
	out     string
	format  string
	scale   float64
	verbose bool
	help    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := pflag.NewFlagSet("pdf_fill_sign", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.values, "values", "", "JSON file mapping field names or ids to values")
	fs.StringArrayVar(&opts.signs, "sign", nil, "Sign a signature field: field=image.png (repeatable)")
	fs.StringVar(&opts.out, "out", "", "Output file (default <name>.signed.pdf next to the input)")
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.Float64Var(&opts.scale, "scale", config.DefaultScale, "Rendering scale used for field geometry")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log extraction and rebuild details to stderr")
	fs.BoolVar(&opts.help, "help", false, "Show help message")
	fs.Usage = func() { printHelp(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.help {
		printHelp(stdout, fs)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: exactly one PDF file path required\n\n")
		printHelp(stderr, fs)
		return 2
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "Error: unsupported output format: %s\n", opts.format)
		return 2
	}

	if err := execute(context.Background(), fs.Arg(0), opts, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "PDF Fill Sign - list, fill and sign the fields of a PDF document")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_fill_sign [OPTIONS] <pdf_file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Without -values or -sign the detected fields are listed.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  pdf_fill_sign lease.pdf")
	fmt.Fprintln(w, "  pdf_fill_sign --format json lease.pdf")
	fmt.Fprintln(w, "  pdf_fill_sign --values tenant.json --sign Signature=me.png --out signed.pdf lease.pdf")
}

func execute(ctx context.Context, path string, opts options, stdout, stderr io.Writer) error {
	logger := log.New(io.Discard, "", 0)
	if opts.verbose {
		logger = log.New(stderr, "pdf_fill_sign: ", log.LstdFlags)
	}

	sessOpts := session.DefaultOptions()
	sessOpts.Scale = opts.scale
	sessOpts.Logger = logger

	src := session.FileSource{Path: path, MaxSize: config.DefaultMaxFileSize}
	sess, err := session.Open(ctx, src, sessOpts)
	if err != nil {
		return err
	}
	defer sess.Close()

	if opts.verbose {
		if report := sess.ExtractionReport(); report != nil && !report.Empty() {
			fmt.Fprintln(stderr, report.Summary())
		}
	}

	if opts.values == "" && len(opts.signs) == 0 {
		return listFields(ctx, sess, path, opts.format, stdout)
	}

	if opts.values != "" {
		if err := applyValues(ctx, sess, opts.values); err != nil {
			return err
		}
	}
	for _, spec := range opts.signs {
		if err := applySignature(ctx, sess, spec); err != nil {
			return err
		}
	}

	var sub session.Submitter = session.FileSubmitter{Dir: filepath.Dir(path)}
	if opts.out != "" {
		sub = outputFile(opts.out)
	}
	done, err := sess.Complete(ctx, sub)
	if err != nil {
		return err
	}
	return printCompletion(done, opts.format, stdout)
}

// outputFile writes the completed document to a fixed path.
type outputFile string

func (o outputFile) Submit(_ context.Context, sub session.Submission) (string, error) {
	if err := os.WriteFile(string(o), sub.Document, 0o640); err != nil {
		return "", err
	}
	return string(o), nil
}

// applyValues reads a JSON object of field name or id to string, bool or
// number and stores each value.
func applyValues(ctx context.Context, sess *session.Session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read values: %w", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("cannot parse values %s: %w", path, err)
	}

	for ref, rv := range raw {
		f, err := sess.FindField(ctx, ref)
		if err != nil {
			return err
		}
		var v store.Value
		switch t := rv.(type) {
		case nil:
		case string:
			if t != "" {
				v = store.Text(t)
			}
		case bool:
			v = store.Bool(t)
		case float64:
			v = store.Text(fmt.Sprintf("%g", t))
		default:
			return fmt.Errorf("value for %s must be a string, bool or number", ref)
		}
		if err := sess.SetFieldValue(f.ID, v); err != nil {
			return fmt.Errorf("field %s: %w", ref, err)
		}
	}
	return nil
}

// applySignature handles one field=image.png argument.
func applySignature(ctx context.Context, sess *session.Session, spec string) error {
	ref, imagePath, ok := strings.Cut(spec, "=")
	if !ok || ref == "" || imagePath == "" {
		return fmt.Errorf("invalid -sign %q, expected field=image.png", spec)
	}
	f, err := sess.FindField(ctx, ref)
	if err != nil {
		return err
	}
	if f.Kind != annotation.SignatureField {
		return fmt.Errorf("field %s is a %s field, not a signature field", ref, f.Kind)
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("cannot open signature image: %w", err)
	}
	img, err := store.DecodeImage(data)
	if err != nil {
		return fmt.Errorf("signature image %s: %w", imagePath, err)
	}
	uri, err := store.EncodeDataURI(img)
	if err != nil {
		return err
	}
	return sess.SaveFieldSignature(f.ID, uri)
}

type fieldListing struct {
	File   string                   `json:"file"`
	Count  int                      `json:"field_count"`
	Fields []annotation.FieldRecord `json:"fields"`
}

func listFields(ctx context.Context, sess *session.Session, path, format string, w io.Writer) error {
	records, err := sess.Fields(ctx)
	if err != nil {
		return err
	}

	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(fieldListing{File: path, Count: len(records), Fields: records})
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "⚠️  No fillable fields detected in the PDF")
		return nil
	}
	fmt.Fprintf(w, "✅ Found %d fillable fields\n\n", len(records))
	for i, r := range records {
		fmt.Fprintf(w, "[%d] %s\n", i+1, r.Name)
		fmt.Fprintf(w, "    Id: %s\n", r.ID)
		fmt.Fprintf(w, "    Type: %s\n", r.Kind)
		fmt.Fprintf(w, "    Page: %d\n", r.Page+1)
		fmt.Fprintf(w, "    Position: (%.1f, %.1f) size %.1fx%.1f pt\n",
			r.PDFRect.X, r.PDFRect.Y, r.PDFRect.Width, r.PDFRect.Height)
		if len(r.Options) > 0 {
			fmt.Fprintf(w, "    Options: %v\n", r.Options)
		}
		if annotation.IsVirtual(r.Origin) {
			fmt.Fprintln(w, "    Virtual: true")
		}
		fmt.Fprintln(w)
	}
	return nil
}

func printCompletion(done *session.Completion, format string, w io.Writer) error {
	if format == "json" {
		type item struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		payload := struct {
			*session.Completion
			Skipped []item `json:"skipped,omitempty"`
		}{Completion: done}
		if done.Report != nil {
			for _, e := range done.Report.All() {
				payload.Skipped = append(payload.Skipped, item{Type: e.Type.String(), Message: e.Error()})
			}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	fmt.Fprintf(w, "✅ Wrote %s (%d bytes)\n", done.Location, done.Size)
	fmt.Fprintf(w, "   Fields filled: %d of %d\n", done.Summary.FilledFieldCount, done.Summary.TotalFields)
	fmt.Fprintf(w, "   Signatures: %d\n", done.Summary.SignatureCount)
	if done.Report != nil && !done.Report.Empty() {
		fmt.Fprintln(w, "\nSkipped items:")
		for _, e := range done.Report.All() {
			fmt.Fprintf(w, "  ⚠️  %v\n", e)
		}
	}
	return nil
}
