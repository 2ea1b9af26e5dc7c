package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/mcp-pdf-form/internal/form"
	"github.com/a3tai/mcp-pdf-form/internal/form/formtest"
	"github.com/a3tai/mcp-pdf-form/internal/geo"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	service, err := NewService(1024*1024, dir, nil, nil)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	return service, dir
}

// writeForm places the fixture form in dir and returns its path
func writeForm(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, formtest.FormPDF(t), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestNewService(t *testing.T) {
	service, dir := newTestService(t)

	if service.GetMaxFileSize() != 1024*1024 {
		t.Errorf("Expected maxFileSize to be %d, got %d", 1024*1024, service.GetMaxFileSize())
	}
	if service.Mapping() == nil || service.Mapping().Len() != form.DefaultMapping().Len() {
		t.Error("expected the default mapping")
	}
	if *service.Mapper() != *geo.DefaultMapper() {
		t.Errorf("expected the default mapper, got %+v", service.Mapper())
	}
	if !service.DefaultFlatten() {
		t.Error("expected flattening by default")
	}
	if service.pathValidator.GetConfiguredDirectory() != dir {
		t.Errorf("expected configured directory %s", dir)
	}

	if _, err := NewService(1024, "", nil, nil); err == nil {
		t.Error("NewService() with an empty directory should fail")
	}
}

func TestService_ValidateConfiguration(t *testing.T) {
	existing := t.TempDir()
	plainFile := filepath.Join(existing, "notes.txt")
	if err := os.WriteFile(plainFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name        string
		maxFileSize int64
		directory   string
		errorMsg    string
	}{
		{name: "valid configuration", maxFileSize: 1024 * 1024, directory: existing},
		{name: "zero max file size", maxFileSize: 0, directory: existing, errorMsg: "maxFileSize must be greater than 0"},
		{name: "negative max file size", maxFileSize: -1, directory: existing, errorMsg: "maxFileSize must be greater than 0"},
		{name: "max file size too large", maxFileSize: 2 * 1024 * 1024 * 1024, directory: existing, errorMsg: "maxFileSize cannot exceed 1GB"},
		{name: "missing directory", maxFileSize: 1024, directory: filepath.Join(existing, "missing"), errorMsg: "cannot access PDF directory"},
		{name: "file instead of directory", maxFileSize: 1024, directory: plainFile, errorMsg: "is not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewService(tt.maxFileSize, tt.directory, nil, nil)
			if err != nil {
				t.Fatalf("NewService() error: %v", err)
			}
			err = service.ValidateConfiguration()

			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing '%s' but got '%v'", tt.errorMsg, err)
			}
		})
	}
}

func TestService_RejectsPathsOutsideDirectory(t *testing.T) {
	service, _ := newTestService(t)
	outside := writeForm(t, t.TempDir(), "outside.pdf")

	if _, err := service.PDFFormFields(PDFFormFieldsRequest{Path: outside}); err == nil ||
		!strings.Contains(err.Error(), "security validation failed") {
		t.Errorf("PDFFormFields() outside the directory: got %v", err)
	}
	if _, err := service.PDFFormFill(PDFFormFillRequest{Path: outside, Values: map[string]string{"a": "b"}}); err == nil {
		t.Error("PDFFormFill() outside the directory should fail")
	}
	if _, err := service.PDFValidateFile(PDFValidateFileRequest{Path: outside}); err == nil {
		t.Error("PDFValidateFile() outside the directory should fail")
	}
}

func TestService_PDFFormFillRequiresValues(t *testing.T) {
	service, dir := newTestService(t)
	path := writeForm(t, dir, "application.pdf")

	if _, err := service.PDFFormFill(PDFFormFillRequest{Path: path}); err == nil {
		t.Error("PDFFormFill() without values should fail")
	}
}

func TestService_OutputPath(t *testing.T) {
	service, dir := newTestService(t)
	input := filepath.Join(dir, "forms", "application.pdf")

	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{name: "default next to input", output: "", want: filepath.Join(dir, "forms", form.DefaultOutputName)},
		{name: "relative to directory", output: "out/result.pdf", want: filepath.Join(dir, "out", "result.pdf")},
		{name: "absolute inside", output: filepath.Join(dir, "result.pdf"), want: filepath.Join(dir, "result.pdf")},
		{name: "not a pdf", output: "result.txt", wantErr: true},
		{name: "outside", output: "../result.pdf", wantErr: true},
		{name: "overwrite input", output: input, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.outputPath(input, tt.output)
			if tt.wantErr {
				if err == nil {
					t.Errorf("outputPath(%q) expected error, got %s", tt.output, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("outputPath(%q) unexpected error: %v", tt.output, err)
			}
			if got != tt.want {
				t.Errorf("outputPath(%q) = %s, want %s", tt.output, got, tt.want)
			}
		})
	}
}

func TestService_OutputPathMissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	service, err := NewService(1024*1024, missing, nil, nil)
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	elsewhere := filepath.Join(t.TempDir(), "result.pdf")
	for _, output := range []string{"", elsewhere} {
		if got, err := service.outputPath(filepath.Join(missing, "application.pdf"), output); err == nil {
			t.Errorf("outputPath(%q) with a missing directory = %s, want error", output, got)
		}
	}
}

func TestService_PDFServerInfo(t *testing.T) {
	service, dir := newTestService(t)
	writeForm(t, dir, "application.pdf")

	result, err := service.PDFServerInfo(PDFServerInfoRequest{}, "mcp-pdf-form", "1.0.0")
	if err != nil {
		t.Fatalf("PDFServerInfo() error: %v", err)
	}

	if result.ServerName != "mcp-pdf-form" || result.Version != "1.0.0" {
		t.Errorf("unexpected identity: %s %s", result.ServerName, result.Version)
	}
	if result.DefaultDirectory != dir {
		t.Errorf("DefaultDirectory = %s, want %s", result.DefaultDirectory, dir)
	}
	if len(result.DirectoryContents) != 1 {
		t.Errorf("expected 1 file in directory contents, got %d", len(result.DirectoryContents))
	}
	if result.MappedFields != 7 {
		t.Errorf("MappedFields = %d, want 7", result.MappedFields)
	}
	if !strings.Contains(result.UsageGuidance, form.DefaultOutputName) {
		t.Error("usage guidance should name the default output file")
	}

	names := map[string]bool{}
	for _, tool := range result.AvailableTools {
		names[tool.Name] = true
	}
	for _, want := range []string{"pdf_form_fields", "pdf_form_fill", "pdf_form_tags", "pdf_form_geo"} {
		if !names[want] {
			t.Errorf("tool %s missing from server info", want)
		}
	}
}

// The tests below drive pdfcpu on a hand-assembled form

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PDF integration test in short mode")
	}
}

func TestService_PDFFormFields(t *testing.T) {
	skipShort(t)
	service, dir := newTestService(t)
	path := writeForm(t, dir, "application.pdf")

	result, err := service.PDFFormFields(PDFFormFieldsRequest{Path: path})
	if err != nil {
		t.Fatalf("PDFFormFields() error: %v", err)
	}
	if !result.HasForm {
		t.Error("expected HasForm")
	}
	if result.TotalCount != len(result.Fields) || result.TotalCount == 0 {
		t.Errorf("TotalCount = %d with %d fields", result.TotalCount, len(result.Fields))
	}
}

func TestService_PDFFormFillAndExtract(t *testing.T) {
	skipShort(t)
	service, dir := newTestService(t)
	path := writeForm(t, dir, "application.pdf")
	noFlatten := false

	result, err := service.PDFFormFill(PDFFormFillRequest{
		Path:    path,
		Values:  map[string]string{"policyNumber": "P-100", "Missing": "x"},
		Flatten: &noFlatten,
	})
	if err != nil {
		t.Fatalf("PDFFormFill() error: %v", err)
	}

	if result.OutputPath != filepath.Join(dir, form.DefaultOutputName) {
		t.Errorf("OutputPath = %s", result.OutputPath)
	}
	if result.Flattened {
		t.Error("expected an editable result")
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", result.Warnings)
	}

	extracted, err := service.PDFFormExtract(PDFFormExtractRequest{Path: result.OutputPath})
	if err != nil {
		t.Fatalf("PDFFormExtract() error: %v", err)
	}
	if extracted.Values["policyNumber"] != "P-100" {
		t.Errorf("policyNumber = %v, want P-100", extracted.Values["policyNumber"])
	}
}

func TestService_PDFFormFillFlattensByDefault(t *testing.T) {
	skipShort(t)
	service, dir := newTestService(t)
	path := writeForm(t, dir, "application.pdf")

	result, err := service.PDFFormFill(PDFFormFillRequest{
		Path:   path,
		Values: map[string]string{"Policy Number": "P-200"},
		Output: "flat.pdf",
	})
	if err != nil {
		t.Fatalf("PDFFormFill() error: %v", err)
	}
	if !result.Flattened {
		t.Error("expected a flattened result")
	}

	fields, err := service.PDFFormFields(PDFFormFieldsRequest{Path: result.OutputPath})
	if err != nil {
		t.Fatalf("PDFFormFields() error: %v", err)
	}
	if fields.HasForm || fields.TotalCount != 0 {
		t.Errorf("flattened output still has a form: %+v", fields)
	}
}

func TestService_PDFFormWidgetsAndGeo(t *testing.T) {
	skipShort(t)
	service, dir := newTestService(t)
	path := writeForm(t, dir, "application.pdf")

	widgets, err := service.PDFFormWidgets(PDFFormWidgetsRequest{Path: path})
	if err != nil {
		t.Fatalf("PDFFormWidgets() error: %v", err)
	}
	geoResult, err := service.PDFFormGeo(PDFFormGeoRequest{Path: path})
	if err != nil {
		t.Fatalf("PDFFormGeo() error: %v", err)
	}

	if len(geoResult.Points) != widgets.TotalCount {
		t.Fatalf("expected one point per widget, got %d for %d", len(geoResult.Points), widgets.TotalCount)
	}
	first := widgets.Widgets[0]
	want := geo.DefaultMapper().ToLatLon(first.Left, first.Top)
	if geoResult.Points[0].Point != want {
		t.Errorf("first point = %+v, want %+v", geoResult.Points[0].Point, want)
	}
}

func TestService_PDFFormTagsAndFillTags(t *testing.T) {
	skipShort(t)
	service, dir := newTestService(t)
	path := writeForm(t, dir, "application.pdf")

	tags, err := service.PDFFormTags(PDFFormTagsRequest{Path: path})
	if err != nil {
		t.Fatalf("PDFFormTags() error: %v", err)
	}
	if tags.TotalCount != 2 {
		t.Errorf("expected 2 distinct tags, got %d", tags.TotalCount)
	}

	noFlatten := false
	result, err := service.PDFFormFillTags(PDFFormFillRequest{
		Path:    path,
		Values:  map[string]string{"{{insuredName}}": "Jane Roe"},
		Flatten: &noFlatten,
	})
	if err != nil {
		t.Fatalf("PDFFormFillTags() error: %v", err)
	}
	if len(result.Filled) != 1 || result.Filled[0] != "insuredName" {
		t.Errorf("Filled = %v", result.Filled)
	}
}
