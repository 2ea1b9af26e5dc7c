package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/a3tai/mcp-pdf-form/internal/form"
	"github.com/ledongthuc/pdf"
)

// pdfMagic is the header every PDF file starts with
const pdfMagic = "%PDF-"

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFile checks that a file is a readable PDF and reports whether it
// carries a form.
func (v *Validator) ValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	result := &PDFValidateFileResult{
		Path:  req.Path,
		Valid: false,
	}

	pages, err := v.validatePDFFile(req.Path)
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // Return result with validation error, not a processing error
	}
	result.Valid = true
	result.Pages = pages

	doc, err := form.LoadFile(req.Path, v.maxFileSize, nil)
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // The file is a PDF; the form check is informational
	}
	hasForm, err := doc.HasForm()
	if err != nil {
		result.Message = fmt.Sprintf("cannot inspect form: %v", err)
		return result, nil //nolint:nilerr // Same as above
	}
	result.HasForm = hasForm
	if !hasForm {
		result.Message = "PDF has no AcroForm; only {{tag}} placeholders can be used"
	}

	return result, nil
}

// validatePDFFile performs detailed validation on a PDF file and returns
// its page count
func (v *Validator) validatePDFFile(filePath string) (int, error) {
	if filePath == "" {
		return 0, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return 0, fmt.Errorf("cannot access file: %w", err)
	}

	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return 0, err
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("invalid PDF file: %w", err)
	}
	defer f.Close()

	return r.NumPage(), nil
}

// IsValidPDF performs a quick check to see if a file is a valid PDF
func (v *Validator) IsValidPDF(filePath string) bool {
	_, err := v.validatePDFFile(filePath)
	return err == nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

// ValidateBytes checks an in-memory upload the same way ValidateFile checks a
// file on disk
func (v *Validator) ValidateBytes(data []byte) error {
	if len(data) == 0 {
		return form.ErrEmptyDocument
	}
	if int64(len(data)) > v.maxFileSize {
		return fmt.Errorf("%w: %d bytes (max: %d bytes)", form.ErrFileTooLarge, len(data), v.maxFileSize)
	}
	if !bytes.HasPrefix(data, []byte(pdfMagic)) {
		return fmt.Errorf("file is not a PDF: missing %s header", pdfMagic)
	}
	if _, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	return nil
}
