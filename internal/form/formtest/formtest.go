// Package formtest builds small hand-assembled PDF documents for tests.
package formtest

import (
	"bytes"
	"fmt"
	"testing"
)

// Stream renders a stream object body
func Stream(dict, content string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(content), content)
}

// Assemble writes objects 1..n with a classic xref table
func Assemble(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objects)+1)
	for i, obj := range objects {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objects); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// FormPDF assembles a one page 600x800 document with a text field, a
// checkbox, a combo box, a radio group, a second text field and page text
// carrying {{tags}}.
func FormPDF(t testing.TB) []byte {
	t.Helper()

	pageText := "BT /Helv 12 Tf 72 500 Td ({{policyNumber}} {{insuredName}} {{policyNumber}}) Tj ET"
	objects := []string{
		// 1 catalog
		"<< /Type /Catalog /Pages 2 0 R /AcroForm 5 0 R >>",
		// 2 page tree
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		// 3 page
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 600 800] /Resources << /Font << /Helv 6 0 R >> >> " +
			"/Contents 8 0 R /Annots [4 0 R 7 0 R 11 0 R 13 0 R 14 0 R 15 0 R] >>",
		// 4 text field
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (Policy Number) /Rect [100 700 300 720] /P 3 0 R /F 4 " +
			"/DA (/Helv 12 Tf 0 g) /V () >>",
		// 5 AcroForm
		"<< /Fields [4 0 R 7 0 R 11 0 R 12 0 R 15 0 R] /DA (/Helv 0 Tf 0 g) /DR << /Font << /Helv 6 0 R >> >> >>",
		// 6 font
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		// 7 checkbox
		"<< /Type /Annot /Subtype /Widget /FT /Btn /T (Agree) /Rect [100 650 115 665] /P 3 0 R /F 4 " +
			"/V /Off /AS /Off /AP << /N << /Yes 9 0 R /Off 10 0 R >> >> >>",
		// 8 page content
		Stream("", pageText),
		// 9 "on" appearance
		Stream("/Type /XObject /Subtype /Form /BBox [0 0 15 15]", "0 0 m 15 15 l S"),
		// 10 "off" appearance
		Stream("/Type /XObject /Subtype /Form /BBox [0 0 15 15]", " "),
		// 11 combo box
		"<< /Type /Annot /Subtype /Widget /FT /Ch /Ff 131072 /T (State) /Opt [(NY) (CA)] /Rect [100 600 200 620] " +
			"/P 3 0 R /F 4 /DA (/Helv 12 Tf 0 g) /V (NY) >>",
		// 12 radio group
		"<< /FT /Btn /Ff 49152 /T (Plan) /V /Off /Kids [13 0 R 14 0 R] >>",
		// 13 radio kid
		"<< /Type /Annot /Subtype /Widget /Parent 12 0 R /Rect [100 560 115 575] /P 3 0 R /F 4 /AS /Off " +
			"/AP << /N << /Basic 9 0 R /Off 10 0 R >> >> >>",
		// 14 radio kid
		"<< /Type /Annot /Subtype /Widget /Parent 12 0 R /Rect [130 560 145 575] /P 3 0 R /F 4 /AS /Off " +
			"/AP << /N << /Premium 9 0 R /Off 10 0 R >> >> >>",
		// 15 second text field named after a tag label
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (insuredName) /Rect [100 520 300 540] /P 3 0 R /F 4 " +
			"/DA (/Helv 12 Tf 0 g) /V () >>",
	}
	return Assemble(objects)
}

// PlainPDF assembles a one page document without a form
func PlainPDF(t testing.TB, text string) []byte {
	t.Helper()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /Helv 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		Stream("", fmt.Sprintf("BT /Helv 12 Tf 72 700 Td (%s) Tj ET", text)),
	}
	return Assemble(objects)
}
