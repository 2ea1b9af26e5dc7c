package form

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// annotation flag bits (PDF 32000-1, 12.5.3)
const (
	annotFlagHidden = 1 << 1
	annotFlagNoView = 1 << 5
)

// Flatten burns every widget's normal appearance into its page content,
// removes the widget annotations and drops the AcroForm dictionary. The
// result no longer has interactive fields.
func Flatten(data []byte) ([]byte, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		if err := flattenPage(ctx, pageNr); err != nil {
			return nil, fmt.Errorf("failed to flatten page %d: %w", pageNr, err)
		}
	}

	if rootDict, err := ctx.Catalog(); err == nil && rootDict != nil {
		rootDict.Delete("AcroForm")
	}

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to write flattened PDF: %w", err)
	}
	return out.Bytes(), nil
}

func flattenPage(ctx *model.Context, pageNr int) error {
	pageDict, _, _, err := ctx.PageDict(pageNr, true)
	if err != nil {
		return err
	}
	if pageDict == nil {
		return nil
	}

	annotsObj, found := pageDict.Find("Annots")
	if !found {
		return nil
	}
	annots, err := ctx.DereferenceArray(annotsObj)
	if err != nil {
		return err
	}

	var (
		kept    types.Array
		ops     bytes.Buffer
		xobjs   = types.Dict{}
		removed int
	)

	for i, obj := range annots {
		annot, err := ctx.DereferenceDict(obj)
		if err != nil || annot == nil || !isWidget(ctx, annot) {
			kept = append(kept, obj)
			continue
		}
		removed++

		if annotFlags(ctx, annot)&(annotFlagHidden|annotFlagNoView) != 0 {
			continue
		}
		apRef, ap := normalAppearance(ctx, annot)
		if apRef == nil {
			continue
		}
		rect, ok := rectOf(ctx, annot)
		if !ok {
			continue
		}

		name := fmt.Sprintf("FlatW%d", i)
		xobjs[name] = *apRef
		a, dd, e, f := placement(ctx, ap, rect)
		fmt.Fprintf(&ops, "q %.4f 0 0 %.4f %.4f %.4f cm /%s Do Q\n", a, dd, e, f, name)
	}

	if removed == 0 {
		return nil
	}

	if len(kept) == 0 {
		pageDict.Delete("Annots")
	} else {
		pageDict.Update("Annots", kept)
	}

	if ops.Len() == 0 {
		return nil
	}

	if err := addXObjects(ctx, pageDict, xobjs); err != nil {
		return err
	}
	return appendContent(ctx, pageDict, ops.Bytes())
}

func annotFlags(ctx *model.Context, annot types.Dict) int {
	fObj, found := annot.Find("F")
	if !found {
		return 0
	}
	f, err := ctx.DereferenceInteger(fObj)
	if err != nil || f == nil {
		return 0
	}
	return int(*f)
}

// normalAppearance resolves /AP /N to an indirect stream reference. For
// state dictionaries (checkboxes, radio buttons) the /AS state is chosen.
func normalAppearance(ctx *model.Context, annot types.Dict) (*types.IndirectRef, *types.StreamDict) {
	apObj, found := annot.Find("AP")
	if !found {
		return nil, nil
	}
	ap, err := ctx.DereferenceDict(apObj)
	if err != nil || ap == nil {
		return nil, nil
	}
	nObj, found := ap.Find("N")
	if !found {
		return nil, nil
	}

	if ref, sd := streamRef(ctx, nObj); ref != nil {
		return ref, sd
	}

	states, err := ctx.DereferenceDict(nObj)
	if err != nil || states == nil {
		return nil, nil
	}
	asObj, found := annot.Find("AS")
	if !found {
		return nil, nil
	}
	state, err := ctx.DereferenceName(asObj, model.V10, nil)
	if err != nil {
		return nil, nil
	}
	stateObj, found := states.Find(string(state))
	if !found {
		return nil, nil
	}
	return streamRef(ctx, stateObj)
}

func streamRef(ctx *model.Context, obj types.Object) (*types.IndirectRef, *types.StreamDict) {
	ref, ok := obj.(types.IndirectRef)
	if !ok {
		return nil, nil
	}
	o, err := ctx.Dereference(ref)
	if err != nil {
		return nil, nil
	}
	sd, ok := o.(types.StreamDict)
	if !ok {
		return nil, nil
	}
	return &ref, &sd
}

// placement maps the appearance's /BBox onto the widget rectangle
func placement(ctx *model.Context, ap *types.StreamDict, rect Rect) (a, d, e, f float64) {
	bx, by, bw, bh := 0.0, 0.0, rect.Width, rect.Height
	if bboxObj, found := ap.Find("BBox"); found {
		if arr, err := ctx.DereferenceArray(bboxObj); err == nil && len(arr) == 4 {
			var c [4]float64
			valid := true
			for i, o := range arr {
				n, err := ctx.DereferenceNumber(o)
				if err != nil {
					valid = false
					break
				}
				c[i] = n
			}
			if valid {
				bx, by = min(c[0], c[2]), min(c[1], c[3])
				bw, bh = max(c[0], c[2])-bx, max(c[1], c[3])-by
			}
		}
	}

	a, d = 1, 1
	if bw > 0 {
		a = rect.Width / bw
	}
	if bh > 0 {
		d = rect.Height / bh
	}
	return a, d, rect.X - bx*a, rect.Y - by*d
}

func addXObjects(ctx *model.Context, pageDict types.Dict, xobjs types.Dict) error {
	var resources types.Dict
	if resObj, found := pageDict.Find("Resources"); found {
		d, err := ctx.DereferenceDict(resObj)
		if err != nil {
			return err
		}
		resources = d
	}
	if resources == nil {
		resources = types.Dict{}
		pageDict.Update("Resources", resources)
	}

	var xobjDict types.Dict
	if xObj, found := resources.Find("XObject"); found {
		d, err := ctx.DereferenceDict(xObj)
		if err != nil {
			return err
		}
		xobjDict = d
	}
	if xobjDict == nil {
		xobjDict = types.Dict{}
		resources.Update("XObject", xobjDict)
	}

	for name, ref := range xobjs {
		xobjDict.Update(name, ref)
	}
	return nil
}

// appendContent wraps the existing page content in q/Q and appends ops
func appendContent(ctx *model.Context, pageDict types.Dict, ops []byte) error {
	pre, err := newContentStream(ctx, []byte("q\n"))
	if err != nil {
		return err
	}
	post, err := newContentStream(ctx, append([]byte("Q\n"), ops...))
	if err != nil {
		return err
	}

	contents := types.Array{*pre}
	if cObj, found := pageDict.Find("Contents"); found {
		switch c := cObj.(type) {
		case types.IndirectRef:
			o, err := ctx.Dereference(c)
			if err != nil {
				return err
			}
			if arr, ok := o.(types.Array); ok {
				contents = append(contents, arr...)
			} else {
				contents = append(contents, c)
			}
		case types.Array:
			contents = append(contents, c...)
		case types.StreamDict:
			ref, err := ctx.IndRefForNewObject(c)
			if err != nil {
				return err
			}
			contents = append(contents, *ref)
		}
	}
	contents = append(contents, *post)

	pageDict.Update("Contents", contents)
	return nil
}

func newContentStream(ctx *model.Context, buf []byte) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(buf)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}
