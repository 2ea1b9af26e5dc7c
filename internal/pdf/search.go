package pdf

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-pdf-form/internal/form"
)

// timeFormat is used for modification times in listings
const timeFormat = "2006-01-02 15:04:05"

// Search finds PDF forms below a directory
type Search struct {
	maxFileSize int64
	validator   *Validator
}

// NewSearch creates a new PDF search handler with the specified constraints
func NewSearch(maxFileSize int64) *Search {
	return &Search{
		maxFileSize: maxFileSize,
		validator:   NewValidator(maxFileSize),
	}
}

// SearchDirectory walks a directory for PDF files, optionally keeping only
// names matching the query and only files that carry an AcroForm.
func (s *Search) SearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	if req.Directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}
	if _, err := os.Stat(req.Directory); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", req.Directory)
	}

	absDirectory, err := filepath.Abs(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(req.Query))
	result := &PDFSearchDirectoryResult{
		Files:       []FileInfo{},
		Directory:   absDirectory,
		SearchQuery: req.Query,
	}

	err = filepath.WalkDir(absDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // Intentionally continue on file errors
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != absDirectory {
				return filepath.SkipDir
			}
			return nil
		}
		// symlinks may point outside the directory
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if !isPDFFile(d.Name()) {
			return nil
		}
		if query != "" && !matchesQuery(d.Name(), query) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // Skip entries that vanished during the walk
		}
		if err := s.validator.ValidateFileInfo(path, info); err != nil {
			return nil //nolint:nilerr // Skip invalid files but continue processing
		}

		fileInfo := FileInfo{
			Path:         path,
			Name:         info.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format(timeFormat),
		}

		if req.FormsOnly {
			hasForm := s.hasForm(path)
			if !hasForm {
				return nil
			}
			fileInfo.HasForm = &hasForm
		}

		// only a match past the limit counts as truncation
		if req.Limit > 0 && len(result.Files) >= req.Limit {
			result.Truncated = true
			return filepath.SkipAll
		}
		result.Files = append(result.Files, fileInfo)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	result.TotalCount = len(result.Files)
	return result, nil
}

func (s *Search) hasForm(path string) bool {
	doc, err := form.LoadFile(path, s.maxFileSize, nil)
	if err != nil {
		return false
	}
	ok, err := doc.HasForm()
	return err == nil && ok
}

// FindPDFsInDirectoryLimited lists up to limit PDF files without filtering
func (s *Search) FindPDFsInDirectoryLimited(directory string, limit int) ([]FileInfo, error) {
	result, err := s.SearchDirectory(PDFSearchDirectoryRequest{Directory: directory, Limit: limit})
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// isPDFFile checks if a file has a PDF extension
func isPDFFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// matchesQuery performs fuzzy matching on the filename. The query must
// already be lower case.
func matchesQuery(filename, query string) bool {
	if query == "" {
		return true
	}

	nameWithoutExt := strings.TrimSuffix(strings.ToLower(filename), ".pdf")
	if strings.Contains(nameWithoutExt, query) {
		return true
	}

	words := splitIntoWords(nameWithoutExt)
	for _, queryWord := range splitIntoWords(query) {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// splitIntoWords splits a string into lower case words on common separators
func splitIntoWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch r {
		case ' ', '_', '-', '.', '(', ')', '[', ']':
			return true
		}
		return false
	})
}
