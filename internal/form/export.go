package form

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Sections of the pdfcpu form JSON
const (
	sectionText     = "textfield"
	sectionDate     = "datefield"
	sectionCheckbox = "checkbox"
	sectionRadio    = "radiobuttongroup"
	sectionCombo    = "combobox"
	sectionList     = "listbox"
)

var sectionOrder = []string{
	sectionText, sectionDate, sectionCheckbox, sectionRadio, sectionCombo, sectionList,
}

// formExport mirrors the JSON written by pdfcpu's form export and read by
// its form fill. Fields are kept as raw maps so that attributes we never
// touch (formats, multiline flags, defaults) survive a round trip.
type formExport struct {
	Header json.RawMessage `json:"header,omitempty"`
	Forms  []formGroup     `json:"forms"`
}

type formGroup map[string][]rawField

type rawField map[string]interface{}

// exportedField is one field together with the section it came from
type exportedField struct {
	section string
	raw     rawField
}

func decodeExport(data []byte) (*formExport, error) {
	var exp formExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("failed to decode form export: %w", err)
	}
	return &exp, nil
}

// kindOf classifies a pdfcpu section into a field kind
func kindOf(section string) (Kind, bool) {
	switch section {
	case sectionText, sectionDate:
		return KindText, true
	case sectionCheckbox:
		return KindCheckbox, true
	case sectionCombo, sectionList:
		return KindDropdown, true
	case sectionRadio:
		return KindRadioGroup, true
	default:
		return "", false
	}
}

// fields flattens all forms of the export into document order
// (first page, then object id).
func (e *formExport) fields() []exportedField {
	if e == nil {
		return nil
	}
	var out []exportedField
	for _, group := range e.Forms {
		for _, section := range sectionOrder {
			for _, raw := range group[section] {
				if raw == nil {
					continue
				}
				out = append(out, exportedField{section: section, raw: raw})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := firstPage(out[i].raw), firstPage(out[j].raw)
		if pi != pj {
			return pi < pj
		}
		return idNumber(out[i].raw) < idNumber(out[j].raw)
	})
	return out
}

func firstPage(f rawField) int {
	pages := f.pages()
	if len(pages) == 0 {
		return 0
	}
	return pages[0]
}

func idNumber(f rawField) int {
	n, err := strconv.Atoi(f.str("id"))
	if err != nil {
		return 0
	}
	return n
}

func (f rawField) str(key string) string {
	if s, ok := f[key].(string); ok {
		return s
	}
	return ""
}

func (f rawField) flag(key string) bool {
	b, ok := f[key].(bool)
	return ok && b
}

func (f rawField) strings(key string) []string {
	items, ok := f[key].([]interface{})
	if !ok {
		if ss, ok := f[key].([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (f rawField) pages() []int {
	items, ok := f["pages"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		if n, ok := item.(float64); ok {
			out = append(out, int(n))
		}
	}
	return out
}

func (f rawField) clone() rawField {
	c := make(rawField, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// value reads the current value of a field in its kind's representation
func (ef exportedField) value() interface{} {
	switch ef.section {
	case sectionCheckbox:
		return ef.raw.flag("value")
	case sectionList:
		values := ef.raw.strings("values")
		if len(values) == 0 {
			return nil
		}
		return values[0]
	default:
		v := ef.raw.str("value")
		if v == "" {
			return nil
		}
		return v
	}
}

func (ef exportedField) toField(mapping *NameMapping) Field {
	kind, _ := kindOf(ef.section)
	name := ef.raw.str("name")
	return Field{
		ID:       ef.raw.str("id"),
		Name:     name,
		Key:      mapping.Key(name),
		Kind:     kind,
		Value:    ef.value(),
		Options:  ef.raw.strings("options"),
		Pages:    ef.raw.pages(),
		Locked:   ef.raw.flag("locked"),
		Editable: ef.raw.flag("editable"),
	}
}

// fillPayload collects the fields to write in pdfcpu's fill JSON format
type fillPayload struct {
	header json.RawMessage
	group  formGroup
	count  int
}

func newFillPayload(header json.RawMessage) *fillPayload {
	return &fillPayload{header: header, group: formGroup{}}
}

func (p *fillPayload) add(section string, f rawField) {
	p.group[section] = append(p.group[section], f)
	p.count++
}

func (p *fillPayload) empty() bool {
	return p.count == 0
}

func (p *fillPayload) encode() ([]byte, error) {
	exp := formExport{Header: p.header, Forms: []formGroup{p.group}}
	data, err := json.Marshal(exp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fill data: %w", err)
	}
	return data, nil
}
