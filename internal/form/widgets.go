package form

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-form/internal/geo"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxParentDepth bounds the walk up a field's /Parent chain
const maxParentDepth = 32

// Widgets locates every widget annotation of the document. Rectangles are in
// page space; Left/Top are the top-left-origin screen position.
func (d *Document) Widgets() ([]Widget, error) {
	ctx, err := d.context()
	if err != nil {
		return nil, err
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}

	var widgets []Widget
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageDict, _, _, err := ctx.PageDict(pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", pageNr, err)
		}
		if pageDict == nil {
			continue
		}

		var pageHeight float64
		if pageNr <= len(dims) {
			pageHeight = dims[pageNr-1].Height
		}

		for _, annot := range pageWidgets(ctx, pageDict) {
			rect, ok := rectOf(ctx, annot)
			if !ok {
				continue
			}
			widgets = append(widgets, Widget{
				Name:       fieldName(ctx, annot),
				Page:       pageNr,
				Rect:       rect,
				PageHeight: pageHeight,
				Left:       rect.X,
				Top:        geo.TopFromBottom(rect.Y, rect.Height, pageHeight),
			})
		}
	}

	return widgets, nil
}

// pageWidgets returns the widget annotation dictionaries of a page
func pageWidgets(ctx *model.Context, pageDict types.Dict) []types.Dict {
	annotsObj, found := pageDict.Find("Annots")
	if !found {
		return nil
	}
	annots, err := ctx.DereferenceArray(annotsObj)
	if err != nil {
		return nil
	}

	var out []types.Dict
	for _, obj := range annots {
		annot, err := ctx.DereferenceDict(obj)
		if err != nil || annot == nil {
			continue
		}
		if isWidget(ctx, annot) {
			out = append(out, annot)
		}
	}
	return out
}

func isWidget(ctx *model.Context, annot types.Dict) bool {
	subtypeObj, found := annot.Find("Subtype")
	if !found {
		return false
	}
	subtype, err := ctx.DereferenceName(subtypeObj, model.V10, nil)
	if err != nil {
		return false
	}
	return subtype == "Widget"
}

// rectOf normalizes an annotation's /Rect into origin plus size
func rectOf(ctx *model.Context, annot types.Dict) (Rect, bool) {
	rectObj, found := annot.Find("Rect")
	if !found {
		return Rect{}, false
	}
	arr, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(arr) != 4 {
		return Rect{}, false
	}

	coords := make([]float64, 4)
	for i, c := range arr {
		f, err := ctx.DereferenceNumber(c)
		if err != nil {
			return Rect{}, false
		}
		coords[i] = f
	}

	llx, lly := min(coords[0], coords[2]), min(coords[1], coords[3])
	urx, ury := max(coords[0], coords[2]), max(coords[1], coords[3])
	return Rect{X: llx, Y: lly, Width: urx - llx, Height: ury - lly}, true
}

// fieldName builds the fully qualified field name of a widget by joining
// the /T entries along its /Parent chain.
func fieldName(ctx *model.Context, dict types.Dict) string {
	var parts []string
	for depth := 0; dict != nil && depth < maxParentDepth; depth++ {
		if tObj, found := dict.Find("T"); found {
			if t, err := ctx.DereferenceStringOrHexLiteral(tObj, model.V10, nil); err == nil && t != "" {
				parts = append([]string{t}, parts...)
			}
		}
		parentObj, found := dict.Find("Parent")
		if !found {
			break
		}
		parent, err := ctx.DereferenceDict(parentObj)
		if err != nil {
			break
		}
		dict = parent
	}
	return strings.Join(parts, ".")
}

// MapWidgets converts widget positions into geographic points
func MapWidgets(m *geo.Mapper, widgets []Widget) []geo.Named {
	items := make([]geo.Positioned, 0, len(widgets))
	for _, w := range widgets {
		items = append(items, w)
	}
	return m.MapAll(items)
}
