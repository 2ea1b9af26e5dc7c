package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/a3tai/mcp-pdf-form/internal/config"
	"github.com/a3tai/mcp-pdf-form/internal/descriptions"
	"github.com/a3tai/mcp-pdf-form/internal/pdf"
	"github.com/a3tai/mcp-pdf-form/internal/web"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
	tools      []string
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

func pathArg() mcp.ToolOption {
	return mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Full path to the PDF file"),
	)
}

func fillArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		pathArg(),
		mcp.WithObject("values",
			mcp.Required(),
			mcp.Description("Field name or display key mapped to the value to write"),
		),
		mcp.WithString("output",
			mcp.Description("Output path (defaults to filled_form.pdf next to the input)"),
		),
		mcp.WithBoolean("flatten",
			mcp.Description("Burn the filled fields into the page (server default if omitted)"),
		),
	}
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool("pdf_form_fields", s.handlePDFFormFields, pathArg())
	s.addTool("pdf_form_extract", s.handlePDFFormExtract, pathArg())
	s.addTool("pdf_form_widgets", s.handlePDFFormWidgets, pathArg())
	s.addTool("pdf_form_geo", s.handlePDFFormGeo, pathArg())
	s.addTool("pdf_form_tags", s.handlePDFFormTags, pathArg())
	s.addTool("pdf_form_fill", s.handlePDFFormFill, fillArgs()...)
	s.addTool("pdf_form_fill_tags", s.handlePDFFormFillTags, fillArgs()...)
	s.addTool("pdf_validate_file", s.handlePDFValidateFile, pathArg())
	s.addTool("pdf_search_directory", s.handlePDFSearchDirectory,
		mcp.WithString("directory",
			mcp.Description("Directory path to search (uses default if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query for fuzzy matching"),
		),
		mcp.WithBoolean("forms_only",
			mcp.Description("Only list PDFs that have an AcroForm"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of files to return (0 for no limit)"),
		),
	)
	s.addTool("pdf_server_info", s.handlePDFServerInfo)
}

func (s *Server) addTool(name string, handler server.ToolHandlerFunc, opts ...mcp.ToolOption) {
	opts = append([]mcp.ToolOption{mcp.WithDescription(descriptions.GetToolDescription(name))}, opts...)
	s.mcpServer.AddTool(mcp.NewTool(name, opts...), handler)
	s.tools = append(s.tools, name)
}

// ToolNames returns the names of the registered tools in registration order
func (s *Server) ToolNames() []string {
	return append([]string(nil), s.tools...)
}

// Handler functions
func (s *Server) handlePDFFormFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFFormFields(pdf.PDFFormFieldsRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	header := fmt.Sprintf("Found %d form field(s) in %s", result.TotalCount, result.Path)
	if !result.HasForm {
		header = fmt.Sprintf("%s has no AcroForm; try 'pdf_form_tags' for {{tag}} placeholders", result.Path)
	}
	return jsonResult(header, result)
}

func (s *Server) handlePDFFormExtract(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFFormExtract(pdf.PDFFormExtractRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(fmt.Sprintf("Values of %s", result.Path), result.Values)
}

func (s *Server) handlePDFFormWidgets(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFFormWidgets(pdf.PDFFormWidgetsRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(fmt.Sprintf("Found %d widget(s) in %s", result.TotalCount, result.Path), result)
}

func (s *Server) handlePDFFormGeo(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFFormGeo(pdf.PDFFormGeoRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(fmt.Sprintf("Mapped %d widget position(s) of %s", len(result.Points), result.Path), result)
}

func (s *Server) handlePDFFormTags(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFFormTags(pdf.PDFFormTagsRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(fmt.Sprintf("Found %d tag(s) in %s", result.TotalCount, result.Path), result)
}

func (s *Server) handlePDFFormFill(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := fillRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFFormFill(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFFormFillResult(result)), nil
}

func (s *Server) handlePDFFormFillTags(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := fillRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFFormFillTags(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFFormFillResult(result)), nil
}

func (s *Server) handlePDFValidateFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFValidateFile(pdf.PDFValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (%d page(s), form: %t)",
			result.Path, result.Pages, result.HasForm)
		if result.Message != "" {
			responseText += "\n" + result.Message
		}
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFSearchDirectory(_ context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	args := request.GetArguments()

	req := pdf.PDFSearchDirectoryRequest{Directory: s.config.PDFDirectory}
	if dir, ok := args["directory"].(string); ok && dir != "" {
		req.Directory = dir
	}
	if q, ok := args["query"].(string); ok {
		req.Query = q
	}
	if formsOnly, ok := args["forms_only"].(bool); ok {
		req.FormsOnly = formsOnly
	}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		req.Limit = int(limit)
	}

	result, err := s.pdfService.PDFSearchDirectory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.TotalCount == 0 {
		responseText = fmt.Sprintf("No PDF files found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			responseText += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
	} else {
		responseText = s.formatPDFSearchDirectoryResult(result)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.PDFServerInfo(pdf.PDFServerInfoRequest{}, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFServerInfoResult(result)), nil
}

// fillRequest decodes the arguments shared by both fill tools
func fillRequest(request mcp.CallToolRequest) (pdf.PDFFormFillRequest, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return pdf.PDFFormFillRequest{}, err
	}

	args := request.GetArguments()
	values, err := stringValues(args["values"])
	if err != nil {
		return pdf.PDFFormFillRequest{}, err
	}

	req := pdf.PDFFormFillRequest{Path: path, Values: values}
	if output, ok := args["output"].(string); ok {
		req.Output = output
	}
	if flatten, ok := args["flatten"].(bool); ok {
		req.Flatten = &flatten
	}
	return req, nil
}

// stringValues accepts the values argument as a JSON object, or as a string
// holding one, and renders every value the way the upload page submits it.
func stringValues(raw interface{}) (map[string]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, errors.New("required argument \"values\" not found")
	case string:
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil, fmt.Errorf("values must be a JSON object: %w", err)
		}
		return stringValues(obj)
	case map[string]interface{}:
		out := make(map[string]string, len(v))
		for key, value := range v {
			switch val := value.(type) {
			case nil:
				out[key] = ""
			case string:
				out[key] = val
			case bool:
				out[key] = strconv.FormatBool(val)
			case float64:
				out[key] = strconv.FormatFloat(val, 'f', -1, 64)
			default:
				return nil, fmt.Errorf("value of %q must be a string, number or boolean", key)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("values must be a JSON object, got %T", raw)
	}
}

// jsonResult renders a header line followed by the indented JSON payload
func jsonResult(header string, payload interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(header + "\n\n" + string(data)), nil
}

// Formatting methods
func (s *Server) formatPDFFormFillResult(result *pdf.PDFFormFillResult) string {
	text := fmt.Sprintf("Filled %d field(s) of %s\n", len(result.Filled), result.Path)
	text += fmt.Sprintf("Output: %s (%d bytes)\n", result.OutputPath, result.Size)
	text += fmt.Sprintf("Flattened: %t\n", result.Flattened)

	if len(result.Filled) > 0 {
		text += "\nFilled fields:\n"
		for _, name := range result.Filled {
			text += fmt.Sprintf("  • %s\n", name)
		}
	}
	if len(result.Warnings) > 0 {
		text += "\nWarnings:\n"
		for _, w := range result.Warnings {
			text += fmt.Sprintf("  ⚠️  %s\n", w)
		}
	}

	return text
}

func (s *Server) formatPDFSearchDirectoryResult(result *pdf.PDFSearchDirectoryResult) string {
	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	if result.Truncated {
		text += "Results were truncated at the requested limit\n"
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if file.HasForm != nil {
			text += fmt.Sprintf("   Form: %t\n", *file.HasForm)
		}
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}

	return text
}

func (s *Server) formatPDFServerInfoResult(result *pdf.PDFServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🔑 Mapped Field Names: %d\n", result.MappedFields)
	text += fmt.Sprintf("🧱 Flatten By Default: %t\n\n", result.FlattenByDefault)

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in default directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	switch s.config.Mode {
	case config.ModeServer:
		return s.runServerMode(ctx)
	case config.ModeStdio:
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("unsupported mode: %s", s.config.Mode)
	}
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF form MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler of server mode: the upload page plus the
// MCP SSE endpoints.
func (s *Server) Handler() (http.Handler, *server.SSEServer, error) {
	page, err := web.NewHandler(s.pdfService)
	if err != nil {
		return nil, nil, err
	}

	sse := server.NewSSEServer(s.mcpServer,
		server.WithBaseURL(s.baseURL()),
	)

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	mux.Handle("/", page)
	return mux, sse, nil
}

func (s *Server) baseURL() string {
	host := s.config.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, s.config.Port)
}

// runServerMode serves HTTP until ctx is canceled
func (s *Server) runServerMode(ctx context.Context) error {
	handler, sse, err := s.Handler()
	if err != nil {
		return fmt.Errorf("failed to build HTTP handler: %w", err)
	}

	httpServer := &http.Server{
		Addr:              s.config.Address(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving upload page and MCP SSE on http://%s", s.config.Address())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sse.Shutdown(shutdownCtx); err != nil {
		log.Printf("SSE shutdown: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown failed: %w", err)
	}
	return nil
}
