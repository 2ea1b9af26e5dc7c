package security

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNewPathValidator(t *testing.T) {
	tests := []struct {
		name      string
		dir       string
		wantError bool
	}{
		{name: "valid directory", dir: t.TempDir()},
		{name: "empty directory", dir: "", wantError: true},
		{name: "non-existent directory", dir: "/non/existent/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, err := NewPathValidator(tt.dir)
			if tt.wantError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if validator == nil {
				t.Error("Expected validator but got nil")
			}
		})
	}
}

func newTestValidator(t *testing.T) (*PathValidator, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "forms"), 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "forms", "application.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	v, err := NewPathValidator(dir)
	if err != nil {
		t.Fatalf("NewPathValidator() error: %v", err)
	}
	return v, dir
}

func TestPathValidator_ValidatePath(t *testing.T) {
	v, dir := newTestValidator(t)

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{name: "file inside", path: filepath.Join(dir, "forms", "application.pdf")},
		{name: "missing output inside", path: filepath.Join(dir, "forms", "filled_form.pdf")},
		{name: "missing nested output inside", path: filepath.Join(dir, "out", "x", "filled_form.pdf")},
		{name: "the directory itself", path: dir},
		{name: "empty path", path: "", wantError: true},
		{name: "outside", path: "/etc/passwd", wantError: true},
		{name: "traversal", path: filepath.Join(dir, "..", "escape.pdf"), wantError: true},
		{name: "sibling with common prefix", path: dir + "-other/file.pdf", wantError: true},
		{name: "NUL byte", path: filepath.Join(dir, "a\x00.pdf"), wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePath(tt.path)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePath(%q) error = %v, wantError %v", tt.path, err, tt.wantError)
			}
		})
	}
}

func TestPathValidator_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	v, dir := newTestValidator(t)
	outside := t.TempDir()

	link := filepath.Join(dir, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	if err := v.ValidatePath(filepath.Join(link, "filled_form.pdf")); err == nil {
		t.Error("ValidatePath() should reject a path that escapes through a symlink")
	}
}

func TestPathValidator_NonExistentDirectoryAcceptsAll(t *testing.T) {
	v, err := NewPathValidator(filepath.Join(t.TempDir(), "later"))
	if err != nil {
		t.Fatalf("NewPathValidator() error: %v", err)
	}

	if err := v.ValidatePath("/anywhere/file.pdf"); err != nil {
		t.Errorf("ValidatePath() should accept any path while the directory is missing, got %v", err)
	}
}

func TestPathValidator_NormalizePath(t *testing.T) {
	v, dir := newTestValidator(t)

	got, err := v.NormalizePath(filepath.Join("forms", "filled_form.pdf"))
	if err != nil {
		t.Fatalf("NormalizePath() error: %v", err)
	}
	want := filepath.Join(dir, "forms", "filled_form.pdf")
	if got != want {
		t.Errorf("NormalizePath() = %s, want %s", got, want)
	}

	if _, err := v.NormalizePath(""); err == nil {
		t.Error("NormalizePath(\"\") should fail")
	}
	if _, err := v.NormalizePath("../outside.pdf"); err == nil {
		t.Error("NormalizePath() should reject relative traversal")
	}
}

func TestPathValidator_ValidateDirectory(t *testing.T) {
	v, dir := newTestValidator(t)

	if err := v.ValidateDirectory(filepath.Join(dir, "forms")); err != nil {
		t.Errorf("ValidateDirectory() unexpected error: %v", err)
	}
	if err := v.ValidateDirectory(filepath.Join(dir, "missing")); err != nil {
		t.Errorf("ValidateDirectory() should accept a missing subdirectory, got %v", err)
	}
	if err := v.ValidateDirectory(filepath.Join(dir, "forms", "application.pdf")); err == nil {
		t.Error("ValidateDirectory() should reject a file")
	}
	if err := v.ValidateDirectory(os.TempDir()); err == nil {
		t.Error("ValidateDirectory() should reject a directory outside")
	}
}

func TestPathValidator_SanitizePath(t *testing.T) {
	v, dir := newTestValidator(t)

	got, err := v.SanitizePath("forms/app\x00lication.pdf")
	if err != nil {
		t.Fatalf("SanitizePath() error: %v", err)
	}
	if want := filepath.Join(dir, "forms", "application.pdf"); got != want {
		t.Errorf("SanitizePath() = %s, want %s", got, want)
	}
}
