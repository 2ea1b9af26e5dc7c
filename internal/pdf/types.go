package pdf

import (
	"github.com/a3tai/mcp-pdf-form/internal/form"
	"github.com/a3tai/mcp-pdf-form/internal/geo"
)

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
	HasForm      *bool  `json:"has_form,omitempty"`
}

// Request Types

// PDFFormFieldsRequest represents a request to list the form fields of a PDF
type PDFFormFieldsRequest struct {
	Path string `json:"path"`
}

// PDFFormExtractRequest represents a request to read field values
type PDFFormExtractRequest struct {
	Path string `json:"path"`
}

// PDFFormWidgetsRequest represents a request to locate field widgets
type PDFFormWidgetsRequest struct {
	Path string `json:"path"`
}

// PDFFormGeoRequest represents a request to map widget positions to coordinates
type PDFFormGeoRequest struct {
	Path string `json:"path"`
}

// PDFFormTagsRequest represents a request to scan page text for {{tags}}
type PDFFormTagsRequest struct {
	Path string `json:"path"`
}

// PDFFormFillRequest represents a request to fill a form and save the result.
// Output defaults to filled_form.pdf next to the input; Flatten defaults to
// the server setting.
type PDFFormFillRequest struct {
	Path    string            `json:"path"`
	Values  map[string]string `json:"values"`
	Output  string            `json:"output,omitempty"`
	Flatten *bool             `json:"flatten,omitempty"`
}

// PDFValidateFileRequest represents a request to validate a PDF file
type PDFValidateFileRequest struct {
	Path string `json:"path"`
}

// PDFSearchDirectoryRequest represents a request to search for PDF files in a directory
type PDFSearchDirectoryRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
	FormsOnly bool   `json:"forms_only,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// PDFServerInfoRequest represents a request to get server information and capabilities
type PDFServerInfoRequest struct{}

// Response Types

// PDFFormFieldsResult lists the fields of a form
type PDFFormFieldsResult struct {
	Path       string       `json:"path"`
	HasForm    bool         `json:"has_form"`
	Fields     []form.Field `json:"fields"`
	TotalCount int          `json:"total_count"`
}

// PDFFormExtractResult maps display keys to current values
type PDFFormExtractResult struct {
	Path   string                 `json:"path"`
	Values map[string]interface{} `json:"values"`
}

// PDFFormWidgetsResult lists widget placements
type PDFFormWidgetsResult struct {
	Path       string        `json:"path"`
	Widgets    []form.Widget `json:"widgets"`
	TotalCount int           `json:"total_count"`
}

// PDFFormGeoResult lists widget positions as geographic points
type PDFFormGeoResult struct {
	Path   string      `json:"path"`
	Mapper geo.Mapper  `json:"mapper"`
	Points []geo.Named `json:"points"`
}

// PDFFormTagsResult lists the distinct tags found in page text
type PDFFormTagsResult struct {
	Path       string          `json:"path"`
	Tags       []form.TagField `json:"tags"`
	TotalCount int             `json:"total_count"`
}

// PDFFormFillResult describes a saved fill
type PDFFormFillResult struct {
	Path       string   `json:"path"`
	OutputPath string   `json:"output_path"`
	Size       int64    `json:"size"`
	Filled     []string `json:"filled"`
	Warnings   []string `json:"warnings,omitempty"`
	Flattened  bool     `json:"flattened"`
}

// PDFValidateFileResult represents the result of a PDF validation operation
type PDFValidateFileResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Pages   int    `json:"pages,omitempty"`
	HasForm bool   `json:"has_form"`
	Message string `json:"message,omitempty"`
}

// PDFSearchDirectoryResult represents the result of a PDF search operation
type PDFSearchDirectoryResult struct {
	Files       []FileInfo `json:"files"`
	TotalCount  int        `json:"total_count"`
	Directory   string     `json:"directory"`
	SearchQuery string     `json:"search_query,omitempty"`
	Truncated   bool       `json:"truncated,omitempty"`
}

// PDFServerInfoResult represents server information and usage guidance
type PDFServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	MappedFields      int        `json:"mapped_fields"`
	FlattenByDefault  bool       `json:"flatten_by_default"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	UsageGuidance     string     `json:"usage_guidance"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}
