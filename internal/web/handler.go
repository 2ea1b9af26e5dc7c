// Package web serves the upload page: pick a PDF, review its fields or
// {{tag}} placeholders, type values and download the filled document.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/a3tai/mcp-pdf-form/internal/form"
	"github.com/a3tai/mcp-pdf-form/internal/pdf"
	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

const (
	title = "PDF Form Filler"

	// UploadRequiredMessage is the reply to a fill without a current document
	UploadRequiredMessage = "Please upload a PDF file!"

	// multipart overhead allowed on top of the file size limit
	uploadSlack = 1 << 20

	fieldInputPrefix = "f:"
	tagInputPrefix   = "t:"

	modeFields = "fields"
	modeTags   = "tags"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed usage.md
var usageMarkdown []byte

// Handler holds the single current document of the upload page. A new
// upload replaces it.
type Handler struct {
	service   *pdf.Service
	templates *pongo2.TemplateSet
	policy    *bluemonday.Policy
	usage     string
	mux       *http.ServeMux

	mu      sync.RWMutex
	current *form.Document
}

// NewHandler creates the upload page handler
func NewHandler(service *pdf.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("pdf service cannot be nil")
	}

	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to open templates: %w", err)
	}

	var usage bytes.Buffer
	if err := goldmark.Convert(usageMarkdown, &usage); err != nil {
		return nil, fmt.Errorf("failed to render usage: %w", err)
	}

	h := &Handler{
		service:   service,
		templates: pongo2.NewSet("web", pongo2.NewFSLoader(sub)),
		policy:    bluemonday.StrictPolicy(),
		usage:     usage.String(),
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /{$}", h.handleIndex)
	h.mux.HandleFunc("POST /upload", h.handleUpload)
	h.mux.HandleFunc("POST /fill", h.handleFill)
	h.mux.HandleFunc("GET /api/fields", h.handleFields)

	return h, nil
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Current returns the current document, or nil before the first upload
func (h *Handler) Current() *form.Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *Handler) setCurrent(doc *form.Document) {
	h.mu.Lock()
	h.current = doc
	h.mu.Unlock()
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusOK, "index.html", pongo2.Context{})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := h.service.GetMaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+uploadSlack)

	file, header, err := r.FormFile("pdf")
	if err != nil {
		h.render(w, http.StatusBadRequest, "index.html", pongo2.Context{"error": UploadRequiredMessage})
		return
	}
	defer file.Close()

	doc, err := form.Load(file, header.Filename, maxSize, h.service.Mapping())
	if err == nil {
		err = h.service.Validator().ValidateBytes(doc.Bytes())
	}
	if err != nil {
		log.Printf("Rejected upload %s: %v", header.Filename, err)
		h.render(w, http.StatusBadRequest, "index.html", pongo2.Context{"error": err.Error()})
		return
	}

	view, err := newDocumentView(doc)
	if err != nil {
		log.Printf("Failed to read upload %s: %v", header.Filename, err)
		h.render(w, http.StatusUnprocessableEntity, "index.html", pongo2.Context{"error": err.Error()})
		return
	}

	h.setCurrent(doc)
	log.Printf("Loaded %s: %d field(s), %d tag(s)", doc.Name(), len(view.Fields), len(view.Tags))

	h.render(w, http.StatusOK, "form.html", pongo2.Context{
		"name":    doc.Name(),
		"fields":  view.Fields,
		"tags":    view.Tags,
		"flatten": h.service.DefaultFlatten(),
	})
}

func (h *Handler) handleFill(w http.ResponseWriter, r *http.Request) {
	doc := h.Current()
	if doc == nil {
		http.Error(w, UploadRequiredMessage, http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, fmt.Sprintf("invalid form submission: %v", err), http.StatusBadRequest)
		return
	}

	opts := form.FillOptions{Flatten: h.service.DefaultFlatten()}
	if r.PostForm.Get("mode") != "" {
		// the page always renders the flatten box; absent means unchecked
		opts.Flatten = r.PostForm.Get("flatten") == "true"
	}

	var (
		res *form.FillResult
		err error
	)
	switch r.PostForm.Get("mode") {
	case modeTags:
		res, err = doc.FillTags(h.prefixedValues(r, tagInputPrefix), opts)
	default:
		var values map[string]string
		values, err = h.fieldValues(r, doc)
		if err == nil {
			res, err = doc.Fill(values, opts)
		}
	}
	if err != nil {
		log.Printf("Fill of %s failed: %v", doc.Name(), err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", form.DefaultOutputName))
	if len(res.Warnings) > 0 {
		w.Header().Set("X-Fill-Warnings", strings.Join(res.Warnings, "; "))
	}
	if _, err := w.Write(res.Data); err != nil {
		log.Printf("Failed to send %s: %v", form.DefaultOutputName, err)
	}
}

// fieldValues collects the submitted value of every field of the document.
// Checkboxes are always written since an unchecked box is not submitted;
// empty choices are left alone.
func (h *Handler) fieldValues(r *http.Request, doc *form.Document) (map[string]string, error) {
	fields, err := doc.Fields()
	if err != nil {
		return nil, err
	}

	rendered := r.PostForm.Get("mode") == modeFields
	values := make(map[string]string)
	for _, f := range fields {
		input := fieldInputPrefix + f.Name
		raw, present := r.PostForm[input]

		switch f.Kind {
		case form.KindCheckbox:
			if present || rendered {
				values[f.Name] = fmt.Sprint(present && h.sanitize(raw[0]) == "true")
			}
		case form.KindDropdown, form.KindRadioGroup:
			if present && raw[0] != "" {
				values[f.Name] = h.sanitize(raw[0])
			}
		default:
			if present {
				values[f.Name] = h.sanitize(raw[0])
			}
		}
	}
	return values, nil
}

// prefixedValues collects every submitted input carrying prefix
func (h *Handler) prefixedValues(r *http.Request, prefix string) map[string]string {
	values := make(map[string]string)
	for name, raw := range r.PostForm {
		if !strings.HasPrefix(name, prefix) || len(raw) == 0 || raw[0] == "" {
			continue
		}
		values[strings.TrimPrefix(name, prefix)] = h.sanitize(raw[0])
	}
	return values
}

// sanitize strips markup from a submitted value. The strict policy escapes
// the text it keeps, so entities are decoded again.
func (h *Handler) sanitize(value string) string {
	return html.UnescapeString(h.policy.Sanitize(value))
}

type fieldsResponse struct {
	Name    string          `json:"name"`
	HasForm bool            `json:"has_form"`
	Fields  []form.Field    `json:"fields"`
	Tags    []form.TagField `json:"tags"`
	Values  map[string]any  `json:"values"`
}

func (h *Handler) handleFields(w http.ResponseWriter, _ *http.Request) {
	doc := h.Current()
	if doc == nil {
		http.Error(w, UploadRequiredMessage, http.StatusBadRequest)
		return
	}

	view, err := newDocumentView(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := fieldsResponse{
		Name:    doc.Name(),
		HasForm: view.HasForm,
		Fields:  view.fields,
		Tags:    view.tags,
		Values:  form.ExtractValues(view.fields),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to encode fields: %v", err)
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, ctx pongo2.Context) {
	tpl, err := h.templates.FromCache(name)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to load template %s: %v", name, err), http.StatusInternalServerError)
		return
	}

	ctx["title"] = title
	ctx["usage"] = h.usage

	var buf bytes.Buffer
	if err := tpl.ExecuteWriter(ctx, &buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render %s: %v", name, err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Failed to send page %s: %v", name, err)
	}
}
