package form

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	tagPattern = regexp.MustCompile(`\{\{.*?\}\}`)
	braceStrip = strings.NewReplacer("{", "", "}", "")
)

// ScanTags returns every {{tag}} occurrence in text, in order
func ScanTags(text string) []string {
	return tagPattern.FindAllString(text, -1)
}

// CollectTags turns raw matches into synthetic fields, one per distinct tag,
// in first-seen order.
func CollectTags(matches []string) []TagField {
	seen := make(map[string]struct{}, len(matches))
	var tags []TagField
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		tags = append(tags, TagField{ID: m, Label: TagLabel(m)})
	}
	return tags
}

// TagLabel strips the braces from a tag
func TagLabel(tag string) string {
	return braceStrip.Replace(tag)
}

// TagID wraps a label in braces unless it already is a tag
func TagID(key string) string {
	if len(key) >= 4 && strings.HasPrefix(key, "{{") && strings.HasSuffix(key, "}}") {
		return key
	}
	return "{{" + key + "}}"
}

// PageTexts renders the plain text of every page
func (d *Document) PageTexts() ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(d.data), int64(len(d.data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	texts := make([]string, 0, r.NumPage())
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		texts = append(texts, pageText(r, pageNum))
	}
	return texts, nil
}

func pageText(r *pdf.Reader, pageNum int) (text string) {
	defer func() {
		// ledongthuc/pdf panics on some malformed content streams
		if recover() != nil {
			text = ""
		}
	}()

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return content
}

// Tags scans all pages for {{tag}} placeholders
func (d *Document) Tags() ([]TagField, error) {
	texts, err := d.PageTexts()
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, text := range texts {
		matches = append(matches, ScanTags(text)...)
	}
	return CollectTags(matches), nil
}

// FillTags fills the text fields named after tags. Keys may be given with
// or without braces; a field named either way is accepted.
func (d *Document) FillTags(values map[string]string, opts FillOptions) (*FillResult, error) {
	exp, err := d.export()
	if err != nil {
		return nil, err
	}
	return d.apply(planFill(exp, resolveTagKeys(exp, values), d.mapping, true), opts)
}

// resolveTagKeys maps tag keys onto field names. When "{{x}}" and "x" both
// arrive, the braced key wins.
func resolveTagKeys(exp *formExport, values map[string]string) map[string]string {
	idx := newFieldIndex(exp)
	resolved := make(map[string]string, len(values))
	braced := make(map[string]bool, len(values))
	for key, value := range values {
		id := TagID(key)
		label := TagLabel(id)

		target := id
		if !hasName(idx, id) && hasName(idx, label) {
			target = label
		}

		isBraced := key == id
		if _, seen := resolved[target]; seen && braced[target] && !isBraced {
			continue
		}
		resolved[target] = value
		braced[target] = isBraced
	}
	return resolved
}

func hasName(idx *fieldIndex, name string) bool {
	_, ok := idx.byName[name]
	return ok
}
