package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Form inspection tools
	PDFFormFieldsDescription = `List every fillable field of a PDF form with its kind, display key and current value.

**When to use:** First step with any form. Shows what can be filled and what values a field accepts.

**Why it's useful:** Field names inside PDFs are often long labels ("Applicant's Name and Address"); the response also gives the short display key (applicantNameAndAddress) that can be used instead when filling.

**Examples:**
• Inspect an application: "List the fields of insurance-application.pdf"
• Find dropdown options: "Which states can be selected in the State field of claim.pdf?"

**Field kinds:** text, checkbox, dropdown (with options), radio-group (with options). Date fields are reported as text and list boxes as dropdown.

**Best practices:** Use the options list of dropdown and radio-group fields verbatim when filling; other values are rejected with a warning.`

	PDFFormExtractDescription = `Read the current values of a PDF form as a key/value table.

**When to use:** Need the data already entered in a form, or want to verify a fill before sharing the document.

**Why it's useful:** Returns one entry per field keyed by display key. Checked boxes are true; empty fields and unchecked boxes are null.

**Examples:**
• Read a submitted form: "What values were entered in completed-claim.pdf?"
• Verify a fill: "Extract the values of filled_form.pdf to check the policy number"

**Best practices:** Flattened documents have no form anymore; fill with flatten=false if the values must be read back.`

	PDFFormWidgetsDescription = `Locate the widgets (visual boxes) of every form field on their pages.

**When to use:** Need to know where a field is drawn, e.g. to overlay content, build a screenshot annotation or map fields geographically.

**Why it's useful:** Returns the page-space rectangle (bottom-left origin) together with the page height and the top-left screen position, so no coordinate conversion is needed on the caller side.

**Examples:**
• Layout review: "Where is the signature box on page 2 of contract.pdf?"
• Overlay positions: "Get the positions of all fields in survey.pdf"

**Best practices:** A radio group has one widget per button; all of them carry the group name.`

	PDFFormGeoDescription = `Map the widget positions of a form onto latitude/longitude.

**When to use:** Forms that represent a map or floor plan, where each field stands for a place inside a geographic bounding box.

**Why it's useful:** Applies the server's configured linear transform (nominal page size plus bounding box) to every widget position. The transform is linear: no projection, no clamping.

**Examples:**
• Plot fields: "Map the fields of site-plan.pdf to coordinates"

**Best practices:** Check the returned mapper to see which page size and bounds were used.`

	PDFFormTagsDescription = `Find {{tag}} placeholders in the page text of a PDF.

**When to use:** Templates that mark fillable spots with {{name}} in the text instead of (or in addition to) real form fields.

**Why it's useful:** Every distinct tag becomes a synthetic field; a tag used several times is listed once, in first-seen order.

**Examples:**
• Template discovery: "Which placeholders does letter-template.pdf contain?"

**Best practices:** Follow up with pdf_form_fill_tags to fill them.`

	// Form filling tools
	PDFFormFillDescription = `Fill the fields of a PDF form and save the result.

**When to use:** Complete a form with known values.

**Why it's useful:** Values are written per field kind. Unknown field names and values outside a dropdown's options never fail the call; they are reported as warnings.

**Value rules:**
• text: any string
• checkbox: "true" checks (case-insensitive), anything else unchecks
• dropdown / radio-group: one of the field's options

**Examples:**
• Fill an application: values {"policyNumber": "P-100", "Agree": "true", "State": "CA"}
• Keep fields editable: same call with flatten=false

**Output:** filled_form.pdf next to the input unless output is given. The input file is never overwritten. By default the result is flattened (fields burned into the page).`

	PDFFormFillTagsDescription = `Fill the text fields named after {{tag}} placeholders.

**When to use:** Templates listed by pdf_form_tags whose fields are named after their tags.

**Why it's useful:** Tag keys may be given with or without braces ("policyNumber" or "{{policyNumber}}"). Everything is written as text.

**Examples:**
• Fill a template: values {"insuredName": "Jane Doe"}

**Output:** Same rules as pdf_form_fill.`

	// File tools
	PDFValidateFileDescription = `Verify that a file is a readable PDF and report whether it has a form.

**When to use:** Before filling a file of unknown origin, especially in automated workflows.

**Why it's useful:** Catches corrupted files early and tells whether field tools or only tag tools apply.

**Examples:**
• Upload check: "Is uploaded-form.pdf a valid fillable PDF?"`

	PDFSearchDirectoryDescription = `Discover PDF files in a directory, optionally only those with fillable forms.

**When to use:** Don't know the exact file path, or want to list the forms available to fill.

**Why it's useful:** Matches the query against file names word by word and can skip PDFs without an AcroForm.

**Examples:**
• Find forms: "List the fillable PDFs in the configured directory" (forms_only=true)
• Search by name: "Find the claim forms" (query="claim")

**Best practices:** Leave directory empty to search the server's configured directory.`

	PDFServerInfoDescription = `Get server configuration, available tools, directory contents and usage guidance.

**When to use:** At the start of a session to learn what the server can do and where its files are.

**Why it's useful:** Shows the default directory, the size limit, whether fills flatten by default and the forms that are available.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pdf_form_fields":      PDFFormFieldsDescription,
	"pdf_form_extract":     PDFFormExtractDescription,
	"pdf_form_widgets":     PDFFormWidgetsDescription,
	"pdf_form_geo":         PDFFormGeoDescription,
	"pdf_form_tags":        PDFFormTagsDescription,
	"pdf_form_fill":        PDFFormFillDescription,
	"pdf_form_fill_tags":   PDFFormFillTagsDescription,
	"pdf_validate_file":    PDFValidateFileDescription,
	"pdf_search_directory": PDFSearchDirectoryDescription,
	"pdf_server_info":      PDFServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all described tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
