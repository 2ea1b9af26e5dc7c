package web

import (
	"fmt"
	"log"

	"github.com/a3tai/mcp-pdf-form/internal/form"
)

// fieldView is a form field as the template renders it
type fieldView struct {
	Name    string
	Key     string
	Kind    string
	Input   string
	Value   string
	Checked bool
	Options []string
}

type tagView struct {
	ID    string
	Label string
	Input string
}

type documentView struct {
	HasForm bool
	Fields  []fieldView
	Tags    []tagView

	fields []form.Field
	tags   []form.TagField
}

// newDocumentView reads fields and tags of a document. A page text failure
// only costs the tags.
func newDocumentView(doc *form.Document) (*documentView, error) {
	hasForm, err := doc.HasForm()
	if err != nil {
		return nil, err
	}
	fields, err := doc.Fields()
	if err != nil {
		return nil, err
	}
	tags, err := doc.Tags()
	if err != nil {
		log.Printf("warning: cannot scan %s for tags: %v", doc.Name(), err)
		tags = nil
	}

	view := &documentView{HasForm: hasForm, fields: fields, tags: tags}
	for _, f := range fields {
		view.Fields = append(view.Fields, newFieldView(f))
	}
	for _, t := range tags {
		view.Tags = append(view.Tags, tagView{ID: t.ID, Label: t.Label, Input: tagInputPrefix + t.ID})
	}
	return view, nil
}

func newFieldView(f form.Field) fieldView {
	v := fieldView{
		Name:    f.Name,
		Key:     f.Key,
		Kind:    f.Kind.String(),
		Input:   fieldInputPrefix + f.Name,
		Options: f.Options,
	}
	switch value := f.Value.(type) {
	case bool:
		v.Checked = value
	case string:
		v.Value = value
	case nil:
	default:
		v.Value = fmt.Sprint(value)
	}
	return v
}
