package pdf

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a3tai/mcp-pdf-form/internal/form"
	"github.com/a3tai/mcp-pdf-form/internal/geo"
	"github.com/a3tai/mcp-pdf-form/internal/pdf/security"
)

const (
	// outputFilePerm is used for filled documents written to disk
	outputFilePerm = 0o644
	outputDirPerm  = 0o750

	serverInfoFileLimit = 100
	serverInfoTimeout   = 5 * time.Second
)

// Service handles PDF form operations on files inside the configured directory
type Service struct {
	maxFileSize    int64
	defaultFlatten bool
	mapping        *form.NameMapping
	mapper         *geo.Mapper
	validator      *Validator
	search         *Search
	pathValidator  *security.PathValidator
}

// NewService creates a new PDF form service. A nil mapping or mapper falls
// back to the defaults.
func NewService(maxFileSize int64, configuredDirectory string, mapping *form.NameMapping,
	mapper *geo.Mapper,
) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	if mapping == nil {
		mapping = form.DefaultMapping()
	}
	if mapper == nil {
		mapper = geo.DefaultMapper()
	}

	return &Service{
		maxFileSize:    maxFileSize,
		defaultFlatten: true,
		mapping:        mapping,
		mapper:         mapper,
		validator:      NewValidator(maxFileSize),
		search:         NewSearch(maxFileSize),
		pathValidator:  pathValidator,
	}, nil
}

// SetDefaultFlatten sets whether fills flatten when a request does not say
func (s *Service) SetDefaultFlatten(flatten bool) {
	s.defaultFlatten = flatten
}

// load validates the path and reads the document into memory
func (s *Service) load(path string) (*form.Document, error) {
	if err := s.pathValidator.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return form.LoadFile(path, s.maxFileSize, s.mapping)
}

// PDFFormFields lists the form fields of a PDF file
func (s *Service) PDFFormFields(req PDFFormFieldsRequest) (*PDFFormFieldsResult, error) {
	doc, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	hasForm, err := doc.HasForm()
	if err != nil {
		return nil, err
	}
	fields, err := doc.Fields()
	if err != nil {
		return nil, err
	}

	return &PDFFormFieldsResult{
		Path:       req.Path,
		HasForm:    hasForm,
		Fields:     fields,
		TotalCount: len(fields),
	}, nil
}

// PDFFormExtract returns the current value of every field by display key
func (s *Service) PDFFormExtract(req PDFFormExtractRequest) (*PDFFormExtractResult, error) {
	doc, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	values, err := doc.Extract()
	if err != nil {
		return nil, err
	}

	return &PDFFormExtractResult{Path: req.Path, Values: values}, nil
}

// PDFFormWidgets locates the widget annotations of a PDF file
func (s *Service) PDFFormWidgets(req PDFFormWidgetsRequest) (*PDFFormWidgetsResult, error) {
	doc, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	widgets, err := doc.Widgets()
	if err != nil {
		return nil, err
	}

	return &PDFFormWidgetsResult{
		Path:       req.Path,
		Widgets:    widgets,
		TotalCount: len(widgets),
	}, nil
}

// PDFFormGeo maps widget positions onto the configured geographic bounds
func (s *Service) PDFFormGeo(req PDFFormGeoRequest) (*PDFFormGeoResult, error) {
	doc, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	widgets, err := doc.Widgets()
	if err != nil {
		return nil, err
	}

	return &PDFFormGeoResult{
		Path:   req.Path,
		Mapper: *s.mapper,
		Points: form.MapWidgets(s.mapper, widgets),
	}, nil
}

// PDFFormTags scans the page text of a PDF file for {{tag}} placeholders
func (s *Service) PDFFormTags(req PDFFormTagsRequest) (*PDFFormTagsResult, error) {
	doc, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	tags, err := doc.Tags()
	if err != nil {
		return nil, err
	}

	return &PDFFormTagsResult{
		Path:       req.Path,
		Tags:       tags,
		TotalCount: len(tags),
	}, nil
}

// PDFFormFill fills form fields and writes the result to disk
func (s *Service) PDFFormFill(req PDFFormFillRequest) (*PDFFormFillResult, error) {
	return s.fill(req, (*form.Document).Fill)
}

// PDFFormFillTags fills the text fields named after {{tags}}
func (s *Service) PDFFormFillTags(req PDFFormFillRequest) (*PDFFormFillResult, error) {
	return s.fill(req, (*form.Document).FillTags)
}

type fillFunc func(*form.Document, map[string]string, form.FillOptions) (*form.FillResult, error)

func (s *Service) fill(req PDFFormFillRequest, fn fillFunc) (*PDFFormFillResult, error) {
	if len(req.Values) == 0 {
		return nil, fmt.Errorf("values cannot be empty")
	}

	doc, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	outputPath, err := s.outputPath(req.Path, req.Output)
	if err != nil {
		return nil, err
	}

	opts := form.FillOptions{Flatten: s.defaultFlatten}
	if req.Flatten != nil {
		opts.Flatten = *req.Flatten
	}

	res, err := fn(doc, req.Values, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), outputDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, res.Data, outputFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	log.Printf("Filled %d field(s) of %s into %s", len(res.Filled), req.Path, outputPath)

	return &PDFFormFillResult{
		Path:       req.Path,
		OutputPath: outputPath,
		Size:       int64(len(res.Data)),
		Filled:     res.Filled,
		Warnings:   res.Warnings,
		Flattened:  res.Flattened,
	}, nil
}

// outputPath resolves where a filled document goes: filled_form.pdf next to
// the input by default, otherwise the given path resolved against the
// configured directory. The input itself is never overwritten.
func (s *Service) outputPath(input, output string) (string, error) {
	if output == "" {
		output = filepath.Join(filepath.Dir(input), form.DefaultOutputName)
	}
	if !strings.HasSuffix(strings.ToLower(output), ".pdf") {
		return "", fmt.Errorf("output must be a .pdf file: %s", output)
	}
	if !s.pathValidator.DirectoryExists() {
		return "", fmt.Errorf("security validation failed: configured directory %s does not exist",
			s.pathValidator.GetConfiguredDirectory())
	}

	resolved, err := s.pathValidator.SanitizePath(output)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}

	absInput, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if resolved == absInput {
		return "", fmt.Errorf("output must differ from the input file: %s", output)
	}

	return resolved, nil
}

// PDFValidateFile performs validation on a PDF file
func (s *Service) PDFValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	if err := s.pathValidator.ValidatePath(req.Path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.validator.ValidateFile(req)
}

// PDFSearchDirectory searches for PDF files in a directory
func (s *Service) PDFSearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	if req.Directory == "" {
		req.Directory = s.pathValidator.GetConfiguredDirectory()
	}
	if err := s.pathValidator.ValidateDirectory(req.Directory); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.search.SearchDirectory(req)
}

// PDFServerInfo returns server information and usage guidance
func (s *Service) PDFServerInfo(_ PDFServerInfoRequest, serverName, version string) (*PDFServerInfoResult, error) {
	directory := s.pathValidator.GetConfiguredDirectory()

	// listing a large tree must not stall the call
	resultChan := make(chan []FileInfo, 1)
	go func() {
		files, err := s.search.FindPDFsInDirectoryLimited(directory, serverInfoFileLimit)
		if err != nil {
			files = []FileInfo{}
		}
		resultChan <- files
	}()

	var contents []FileInfo
	select {
	case contents = <-resultChan:
	case <-time.After(serverInfoTimeout):
		contents = []FileInfo{}
	}

	return &PDFServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  directory,
		MaxFileSize:       s.maxFileSize,
		MappedFields:      s.mapping.Len(),
		FlattenByDefault:  s.defaultFlatten,
		AvailableTools:    availableTools,
		DirectoryContents: contents,
		UsageGuidance:     s.usageGuidance(),
	}, nil
}

var availableTools = []ToolInfo{
	{
		Name:        "pdf_form_fields",
		Description: "List the fillable fields of a PDF form",
		Usage:       "Start here: shows each field's name, display key, kind, options and current value.",
		Parameters:  "path (required): Full absolute path to the PDF file",
	},
	{
		Name:        "pdf_form_extract",
		Description: "Read the current field values as a key/value table",
		Usage:       "Use to read back what a form contains. Empty fields and unchecked boxes are null.",
		Parameters:  "path (required): Full absolute path to the PDF file",
	},
	{
		Name:        "pdf_form_fill",
		Description: "Fill form fields and save the result",
		Usage: "Keys may be field names or display keys. Checkboxes take \"true\"/\"false\"; dropdowns " +
			"and radio groups take one of their options. Unknown fields are reported as warnings.",
		Parameters: "path (required), values (required): JSON object of key to value, " +
			"output (optional): output path, flatten (optional): true/false",
	},
	{
		Name:        "pdf_form_tags",
		Description: "Find {{tag}} placeholders in the page text",
		Usage:       "Use for templates that mark fillable spots with {{name}} in the text.",
		Parameters:  "path (required): Full absolute path to the PDF file",
	},
	{
		Name:        "pdf_form_fill_tags",
		Description: "Fill the text fields named after {{tags}}",
		Usage:       "Tag keys may be given with or without braces.",
		Parameters:  "path (required), values (required), output (optional), flatten (optional)",
	},
	{
		Name:        "pdf_form_widgets",
		Description: "Locate field widgets on their pages",
		Usage:       "Returns page-space rectangles plus the top-left screen position of every widget.",
		Parameters:  "path (required): Full absolute path to the PDF file",
	},
	{
		Name:        "pdf_form_geo",
		Description: "Map widget positions onto latitude/longitude",
		Usage:       "Uses the configured nominal page size and geographic bounds.",
		Parameters:  "path (required): Full absolute path to the PDF file",
	},
	{
		Name:        "pdf_validate_file",
		Description: "Validate that a file is a readable PDF and whether it has a form",
		Usage:       "Use before filling a file of unknown origin.",
		Parameters:  "path (required): Full absolute path to the PDF file",
	},
	{
		Name:        "pdf_search_directory",
		Description: "Search for PDF files, optionally only those with forms",
		Usage:       "Use to discover forms in the configured directory.",
		Parameters:  "directory (optional), query (optional), forms_only (optional)",
	},
}

func (s *Service) usageGuidance() string {
	flatten := "flattened (fields burned into the page)"
	if !s.defaultFlatten {
		flatten = "left editable"
	}
	return `PDF Form MCP Server Usage Guide:

1. DISCOVER: 'pdf_search_directory' with forms_only=true lists fillable PDFs.
2. INSPECT: 'pdf_form_fields' shows names, display keys, kinds and options.
3. FILL: 'pdf_form_fill' writes values and saves ` + form.DefaultOutputName + ` next to the input.
   Filled documents are ` + flatten + ` unless 'flatten' is given.
4. VERIFY: 'pdf_form_extract' on the output reads the values back
   (only possible when the output was not flattened).
5. TEMPLATES: 'pdf_form_tags' and 'pdf_form_fill_tags' work with {{tag}} placeholders.

IMPORTANT NOTES:
- Always use absolute file paths inside the configured directory
- The server can handle files up to ` + fmt.Sprintf("%d", s.maxFileSize/(1024*1024)) + `MB
- Unknown field names never fail a fill; they come back as warnings`
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// Mapping returns the name mapping applied to field names
func (s *Service) Mapping() *form.NameMapping {
	return s.mapping
}

// Mapper returns the coordinate mapper
func (s *Service) Mapper() *geo.Mapper {
	return s.mapper
}

// Validator returns the file validator
func (s *Service) Validator() *Validator {
	return s.validator
}

// DefaultFlatten reports whether fills flatten by default
func (s *Service) DefaultFlatten() bool {
	return s.defaultFlatten
}

// ValidateConfiguration validates the service configuration
func (s *Service) ValidateConfiguration() error {
	if s.maxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be greater than 0")
	}

	if s.maxFileSize > 1024*1024*1024 { // 1GB limit
		return fmt.Errorf("maxFileSize cannot exceed 1GB")
	}

	dir := s.pathValidator.GetConfiguredDirectory()
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("PDF directory %s is not a directory", dir)
	}

	return nil
}
