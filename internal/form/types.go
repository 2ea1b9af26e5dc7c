package form

import (
	"errors"
)

// DefaultOutputName is the file name offered for a filled document
const DefaultOutputName = "filled_form.pdf"

var (
	// ErrNoDocument is returned when a fill is requested before any upload
	ErrNoDocument = errors.New("please upload a PDF file")
	// ErrEmptyDocument is returned for zero-length uploads
	ErrEmptyDocument = errors.New("document is empty")
	// ErrFileTooLarge is returned when an upload exceeds the size limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrNoForm is returned when a document carries no AcroForm dictionary
	ErrNoForm = errors.New("document has no form")
)

// Kind is the closed set of field kinds the filler knows how to write
type Kind string

const (
	KindText       Kind = "text"
	KindCheckbox   Kind = "checkbox"
	KindDropdown   Kind = "dropdown"
	KindRadioGroup Kind = "radio-group"
)

// String returns the kind name
func (k Kind) String() string {
	return string(k)
}

// Field describes a single form field of the current document.
// Value is a string, a bool (checkboxes) or nil when the field is empty.
type Field struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Key      string      `json:"key"`
	Kind     Kind        `json:"kind"`
	Value    interface{} `json:"value"`
	Options  []string    `json:"options,omitempty"`
	Pages    []int       `json:"pages,omitempty"`
	Locked   bool        `json:"locked,omitempty"`
	Editable bool        `json:"editable,omitempty"`
}

// Rect is a rectangle in page space with a bottom-left origin
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Widget is the visual placement of a field on a page
type Widget struct {
	Name       string  `json:"name"`
	Page       int     `json:"page"`
	Rect       Rect    `json:"rect"`
	PageHeight float64 `json:"page_height"`
	Left       float64 `json:"left"`
	Top        float64 `json:"top"`
}

// TagField is a synthetic field discovered from a {{tag}} placeholder
type TagField struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// FillOptions controls how values are written
type FillOptions struct {
	// Flatten burns the filled fields into page content
	Flatten bool
}

// FillResult is the outcome of a fill
type FillResult struct {
	Data      []byte   `json:"-"`
	Filled    []string `json:"filled"`
	Warnings  []string `json:"warnings,omitempty"`
	Flattened bool     `json:"flattened"`
}

// PositionName implements geo.Positioned
func (w Widget) PositionName() string {
	return w.Name
}

// Position implements geo.Positioned
func (w Widget) Position() (left, top float64) {
	return w.Left, w.Top
}
