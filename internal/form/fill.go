package form

import (
	"bytes"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// fillPlan is the resolved outcome of matching user values against a form
type fillPlan struct {
	payload  *fillPayload
	filled   []string
	warnings []string
}

func (p *fillPlan) warn(format string, args ...interface{}) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

// fieldIndex looks fields up by full name or pdfcpu id
type fieldIndex struct {
	byName map[string]exportedField
	byID   map[string]exportedField
}

func newFieldIndex(exp *formExport) *fieldIndex {
	idx := &fieldIndex{
		byName: make(map[string]exportedField),
		byID:   make(map[string]exportedField),
	}
	for _, ef := range exp.fields() {
		if name := ef.raw.str("name"); name != "" {
			if _, dup := idx.byName[name]; !dup {
				idx.byName[name] = ef
			}
		}
		if id := ef.raw.str("id"); id != "" {
			idx.byID[id] = ef
		}
	}
	return idx
}

// lookup resolves a user supplied key: the internal name first, then a
// mapped display key, then a pdfcpu id.
func (idx *fieldIndex) lookup(key string, mapping *NameMapping) (exportedField, bool) {
	if ef, ok := idx.byName[key]; ok {
		return ef, true
	}
	if name, ok := mapping.Name(key); ok {
		if ef, ok := idx.byName[name]; ok {
			return ef, true
		}
	}
	ef, ok := idx.byID[key]
	return ef, ok
}

// planFill dispatches every value by field kind. Unknown names and values a
// choice field cannot take become warnings. With textOnly set, non-text
// fields are skipped with a warning.
func planFill(exp *formExport, values map[string]string, mapping *NameMapping, textOnly bool) *fillPlan {
	if exp == nil {
		exp = &formExport{}
	}
	plan := &fillPlan{payload: newFillPayload(exp.Header)}
	idx := newFieldIndex(exp)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := values[key]
		ef, ok := idx.lookup(key, mapping)
		if !ok {
			plan.warn("field %q not found in the PDF", key)
			continue
		}

		kind, ok := kindOf(ef.section)
		if !ok {
			plan.warn("field type %s is not handled", ef.section)
			continue
		}
		if textOnly && kind != KindText {
			plan.warn("field %q cannot be filled or is not text", key)
			continue
		}

		f := ef.raw.clone()
		switch kind {
		case KindText:
			f["value"] = value
		case KindCheckbox:
			f["value"] = strings.ToLower(value) == "true"
		case KindDropdown:
			if !acceptsChoice(ef, value) {
				plan.warn("value %q is not an option of field %q", value, key)
				continue
			}
			if ef.section == sectionList {
				f["values"] = []string{value}
			} else {
				f["value"] = value
			}
		case KindRadioGroup:
			if !acceptsChoice(ef, value) {
				plan.warn("value %q is not an option of field %q", value, key)
				continue
			}
			f["value"] = value
		}

		plan.payload.add(ef.section, f)
		plan.filled = append(plan.filled, ef.raw.str("name"))
	}

	return plan
}

func acceptsChoice(ef exportedField, value string) bool {
	if ef.section == sectionCombo && ef.raw.flag("editable") {
		return true
	}
	for _, opt := range ef.raw.strings("options") {
		if opt == value {
			return true
		}
	}
	return false
}

// Fill writes values into the document's fields and serializes the result.
// The receiver is not modified; the filled bytes are in the result.
func (d *Document) Fill(values map[string]string, opts FillOptions) (*FillResult, error) {
	exp, err := d.export()
	if err != nil {
		return nil, err
	}
	return d.apply(planFill(exp, values, d.mapping, false), opts)
}

func (d *Document) apply(plan *fillPlan, opts FillOptions) (*FillResult, error) {
	for _, w := range plan.warnings {
		log.Printf("warning: %s", w)
	}

	data := d.data
	if !plan.payload.empty() {
		passes := []*fillPayload{plan.payload}
		if opts.Flatten {
			if unlock := lockChoices(plan.payload); !unlock.empty() {
				passes = []*fillPayload{unlock, plan.payload}
			}
		}
		for _, p := range passes {
			filled, err := fillForm(data, p)
			if err != nil {
				return nil, err
			}
			data = filled
		}
	}

	result := &FillResult{
		Filled:   plan.filled,
		Warnings: plan.warnings,
	}

	if opts.Flatten {
		flat, err := Flatten(data)
		if err != nil {
			return nil, err
		}
		data = flat
		result.Flattened = true
	}

	result.Data = data
	return result, nil
}

// lockChoices marks every combo box of p as locked. pdfcpu only renders a
// combo box appearance when it locks the field, and Flatten draws that
// appearance. Combo boxes that are read-only already need an unlocking pass
// first; the returned payload holds them.
func lockChoices(p *fillPayload) *fillPayload {
	unlock := newFillPayload(p.header)
	for _, f := range p.group[sectionCombo] {
		if f.flag("locked") {
			u := f.clone()
			u["locked"] = false
			unlock.add(sectionCombo, u)
		}
		f["locked"] = true
	}
	return unlock
}

func fillForm(data []byte, p *fillPayload) ([]byte, error) {
	payload, err := p.encode()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := api.FillForm(bytes.NewReader(data), bytes.NewReader(payload), &out, newConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to fill form: %w", err)
	}
	return out.Bytes(), nil
}
