package pdf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/a3tai/mcp-pdf-form/internal/form"
	"github.com/a3tai/mcp-pdf-form/internal/form/formtest"
)

func TestValidator_ValidateFile(t *testing.T) {
	validator := NewValidator(1024 * 1024)
	tempDir := t.TempDir()

	notPDF := filepath.Join(tempDir, "fake.pdf")
	if err := os.WriteFile(notPDF, []byte("not a pdf at all"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "empty path", path: ""},
		{name: "non-existent file", path: "/non/existent/file.pdf"},
		{name: "directory", path: tempDir},
		{name: "garbage with pdf extension", path: notPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateFile(PDFValidateFileRequest{Path: tt.path})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if result == nil {
				t.Fatalf("result should not be nil")
			}
			if result.Valid {
				t.Errorf("expected Valid=false")
			}
			if result.Path != tt.path {
				t.Errorf("expected Path=%s but got %s", tt.path, result.Path)
			}
			if result.Message == "" {
				t.Errorf("expected validation message for invalid file")
			}
		})
	}
}

func TestValidator_ValidateFileForm(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PDF integration test in short mode")
	}
	validator := NewValidator(1024 * 1024)
	tempDir := t.TempDir()

	formPath := filepath.Join(tempDir, "application.pdf")
	plainPath := filepath.Join(tempDir, "letter.pdf")
	if err := os.WriteFile(formPath, formtest.FormPDF(t), 0o644); err != nil {
		t.Fatalf("failed to write form: %v", err)
	}
	if err := os.WriteFile(plainPath, formtest.PlainPDF(t, "Hello {{name}}"), 0o644); err != nil {
		t.Fatalf("failed to write plain PDF: %v", err)
	}

	result, err := validator.ValidateFile(PDFValidateFileRequest{Path: formPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid || !result.HasForm || result.Pages != 1 {
		t.Errorf("form PDF: %+v", result)
	}

	result, err = validator.ValidateFile(PDFValidateFileRequest{Path: plainPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid || result.HasForm {
		t.Errorf("plain PDF: %+v", result)
	}
	if result.Message == "" {
		t.Error("expected a note that the PDF has no form")
	}
}

func TestValidator_ValidateFileInfo(t *testing.T) {
	validator := NewValidator(1024)
	tempDir := t.TempDir()

	files := map[string][]byte{
		"valid.pdf":    make([]byte, 512),
		"large.pdf":    make([]byte, 2048),
		"empty.pdf":    {},
		"document.txt": []byte("text"),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tempDir, name), content, 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{name: "valid", path: filepath.Join(tempDir, "valid.pdf")},
		{name: "too large", path: filepath.Join(tempDir, "large.pdf"), wantError: true},
		{name: "empty", path: filepath.Join(tempDir, "empty.pdf"), wantError: true},
		{name: "wrong extension", path: filepath.Join(tempDir, "document.txt"), wantError: true},
		{name: "directory", path: tempDir, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := os.Stat(tt.path)
			if err != nil {
				t.Fatalf("stat failed: %v", err)
			}
			err = validator.ValidateFileInfo(tt.path, info)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateFileInfo() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidator_ValidateBytes(t *testing.T) {
	validator := NewValidator(64)

	if err := validator.ValidateBytes(nil); !errors.Is(err, form.ErrEmptyDocument) {
		t.Errorf("ValidateBytes(nil) = %v, want ErrEmptyDocument", err)
	}
	if err := validator.ValidateBytes(make([]byte, 65)); !errors.Is(err, form.ErrFileTooLarge) {
		t.Errorf("ValidateBytes(65 bytes) = %v, want ErrFileTooLarge", err)
	}
	if err := validator.ValidateBytes([]byte("hello")); err == nil {
		t.Error("ValidateBytes() should reject input without a PDF header")
	}
}

func TestValidator_ValidateBytesForm(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PDF integration test in short mode")
	}
	validator := NewValidator(1024 * 1024)

	if err := validator.ValidateBytes(formtest.FormPDF(t)); err != nil {
		t.Errorf("ValidateBytes() unexpected error: %v", err)
	}
}
