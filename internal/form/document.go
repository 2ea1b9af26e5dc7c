// Package form reads, fills and flattens AcroForm fields. PDF structure is
// handled by pdfcpu; page text for tag scanning comes from ledongthuc/pdf.
package form

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document is an uploaded PDF held in memory
type Document struct {
	name    string
	data    []byte
	mapping *NameMapping
}

// newConfiguration returns a fresh pdfcpu configuration. pdfcpu records the
// running command on the configuration, so one is built per call.
func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Load reads an upload into memory, rejecting empty input and input larger
// than maxSize bytes.
func Load(r io.Reader, name string, maxSize int64, mapping *NameMapping) (*Document, error) {
	if r == nil {
		return nil, ErrNoDocument
	}

	limited := io.LimitReader(r, maxSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, maxSize)
	}

	return NewDocument(data, name, mapping)
}

// LoadFile reads a PDF file into memory
func LoadFile(path string, maxSize int64, mapping *NameMapping) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrFileTooLarge, info.Size(), maxSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()

	return Load(f, filepath.Base(path), maxSize, mapping)
}

// NewDocument wraps PDF bytes
func NewDocument(data []byte, name string, mapping *NameMapping) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if name == "" {
		name = "document.pdf"
	}
	if mapping == nil {
		mapping = DefaultMapping()
	}
	return &Document{name: name, data: data, mapping: mapping}, nil
}

// Name returns the file name the document was uploaded with
func (d *Document) Name() string {
	return d.name
}

// Bytes returns the raw document
func (d *Document) Bytes() []byte {
	return d.data
}

// Mapping returns the name mapping used for display keys
func (d *Document) Mapping() *NameMapping {
	return d.mapping
}

// context parses the document into a pdfcpu model
func (d *Document) context() (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(d.data), newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}
	return ctx, nil
}

// HasForm reports whether the catalog carries an AcroForm dictionary
func (d *Document) HasForm() (bool, error) {
	ctx, err := d.context()
	if err != nil {
		return false, err
	}
	return hasAcroForm(ctx), nil
}

func hasAcroForm(ctx *model.Context) bool {
	rootDict, err := ctx.Catalog()
	if err != nil || rootDict == nil {
		return false
	}
	_, found := rootDict.Find("AcroForm")
	return found
}

// export asks pdfcpu for the form. A document without a form yields an
// empty export rather than an error.
func (d *Document) export() (*formExport, error) {
	ok, err := d.HasForm()
	if err != nil {
		return nil, err
	}
	if !ok {
		return &formExport{}, nil
	}

	var buf bytes.Buffer
	if err := api.ExportFormJSON(bytes.NewReader(d.data), &buf, d.name, newConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to export form: %w", err)
	}
	return decodeExport(buf.Bytes())
}

// Fields enumerates the document's form fields
func (d *Document) Fields() ([]Field, error) {
	exp, err := d.export()
	if err != nil {
		return nil, err
	}

	exported := exp.fields()
	fields := make([]Field, 0, len(exported))
	for _, ef := range exported {
		fields = append(fields, ef.toField(d.mapping))
	}
	return fields, nil
}

// Field returns a single field by internal name or display key
func (d *Document) Field(key string) (*Field, error) {
	exp, err := d.export()
	if err != nil {
		return nil, err
	}
	ef, ok := newFieldIndex(exp).lookup(key, d.mapping)
	if !ok {
		return nil, fmt.Errorf("field %q not found in the PDF", key)
	}
	f := ef.toField(d.mapping)
	return &f, nil
}

// Extract returns display key -> value for every field. Empty text and
// unchecked boxes are reported as nil.
func (d *Document) Extract() (map[string]interface{}, error) {
	fields, err := d.Fields()
	if err != nil {
		return nil, err
	}
	return ExtractValues(fields), nil
}

// ExtractValues builds the display key -> value table for a field list
func ExtractValues(fields []Field) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case bool:
			if v {
				out[f.Key] = true
			} else {
				out[f.Key] = nil
			}
		case string:
			if v == "" {
				out[f.Key] = nil
			} else {
				out[f.Key] = v
			}
		default:
			out[f.Key] = nil
		}
	}
	return out
}
