package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/mcp-pdf-form/internal/config"
)

const testVersion = "1.2.3"

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	tests := []struct {
		name     string
		version  string
		build    string
		commit   string
		expected []string
	}{
		{
			name:    "build flags",
			version: testVersion,
			build:   "2023-12-01_10:30:00",
			commit:  "abc123",
			expected: []string{
				"MCP PDF Form",
				"Version: " + testVersion,
				"Build Time: 2023-12-01_10:30:00",
				"Git Commit: abc123",
				"Built with:",
			},
		},
		{
			name:     "defaults",
			version:  "dev",
			build:    "unknown",
			commit:   "unknown",
			expected: []string{"Version: dev", "Build Time: unknown", "Git Commit: unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, buildTime, gitCommit = tt.version, tt.build, tt.commit

			output := captureStdout(t, printVersion)

			for _, expected := range tt.expected {
				if !strings.Contains(output, expected) {
					t.Errorf("printVersion() output missing %q\nActual output:\n%s", expected, output)
				}
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	setupLogging(&config.Config{Mode: config.ModeStdio, LogLevel: "debug"})
	if log.Writer() != os.Stderr {
		t.Error("stdio debug mode should log to stderr")
	}

	setupLogging(&config.Config{Mode: config.ModeStdio, LogLevel: "info"})
	if log.Writer() != io.Discard {
		t.Error("stdio mode without debug should discard logs")
	}

	log.SetOutput(originalOutput)
	setupLogging(&config.Config{Mode: config.ModeServer, LogLevel: "info"})
	if log.Flags() != log.LstdFlags|log.Lshortfile {
		t.Errorf("server mode flags = %d, want %d", log.Flags(), log.LstdFlags|log.Lshortfile)
	}
}

func TestNewService(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.PDFDirectory = dir
	cfg.Flatten = false
	cfg.PageWidth = 1000

	service, err := newService(cfg)
	if err != nil {
		t.Fatalf("newService() error: %v", err)
	}
	if service.DefaultFlatten() {
		t.Error("flatten default should follow the configuration")
	}
	if service.Mapping().Len() != 7 {
		t.Errorf("default mapping has %d names, want 7", service.Mapping().Len())
	}
	if service.Mapper().PageWidth != 1000 {
		t.Errorf("mapper page width = %v, want 1000", service.Mapper().PageWidth)
	}
}

func TestNewService_MappingFile(t *testing.T) {
	dir := t.TempDir()
	mappingFile := filepath.Join(dir, "fields.yaml")
	if err := os.WriteFile(mappingFile, []byte("Insured: insuredName\nSSN: \"\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write mapping: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.PDFDirectory = dir
	cfg.MappingFile = mappingFile

	service, err := newService(cfg)
	if err != nil {
		t.Fatalf("newService() error: %v", err)
	}
	if got := service.Mapping().Key("Insured"); got != "insuredName" {
		t.Errorf("Key(Insured) = %q, want insuredName", got)
	}
	if got := service.Mapping().Key("SSN"); got != "SSN" {
		t.Errorf("Key(SSN) = %q, want the removed mapping to fall back to the name", got)
	}

	cfg.MappingFile = filepath.Join(dir, "missing.yaml")
	if _, err := newService(cfg); err == nil {
		t.Error("newService() with a missing mapping file should fail")
	}
}

func TestNewService_InvalidMaxFileSize(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = t.TempDir()
	cfg.MaxFileSize = 0

	if _, err := newService(cfg); err == nil {
		t.Error("newService() with a zero size limit should fail")
	}
}

func TestNewService_MissingDirectory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = filepath.Join(t.TempDir(), "missing")

	if _, err := newService(cfg); err == nil {
		t.Error("newService() with a missing PDF directory should fail")
	}
}
