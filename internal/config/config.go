package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/a3tai/mcp-pdf-form/internal/geo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "MCP_PDF_FORM"
)

// Config holds all configuration for the PDF form MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// PDF configuration
	PDFDirectory string
	MappingFile  string // optional YAML file overriding field display keys
	Flatten      bool   // flatten filled forms unless a request says otherwise

	// Coordinate mapping
	PageWidth  float64
	PageHeight float64
	Bounds     geo.Bounds

	// Application configuration
	ConfigFile  string
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		Flatten:      true,
		PageWidth:    geo.DefaultPageWidth,
		PageHeight:   geo.DefaultPageHeight,
		Bounds:       geo.DefaultBounds(),
		Version:      "1.0.0",
		ServerName:   "mcp-pdf-form",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	if err := readConfigFile(); err != nil {
		return nil, err
	}

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	// Defaults for every key a flag or the config file can set
	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("mapping", cfg.MappingFile)
	viper.SetDefault("flatten", cfg.Flatten)
	// Coordinate mapping
	viper.SetDefault("pagewidth", cfg.PageWidth)
	viper.SetDefault("pageheight", cfg.PageHeight)
	viper.SetDefault("toplat", cfg.Bounds.TopLat)
	viper.SetDefault("leftlon", cfg.Bounds.LeftLon)
	viper.SetDefault("bottomlat", cfg.Bounds.BottomLat)
	viper.SetDefault("rightlon", cfg.Bounds.RightLon)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("config", "", "Optional YAML configuration file")
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF forms")
	pflag.String("mapping", cfg.MappingFile, "YAML file mapping field names to display keys")
	pflag.Bool("flatten", cfg.Flatten, "Flatten filled forms by default")
	// Coordinate mapping
	pflag.Float64("pagewidth", cfg.PageWidth, "Nominal page width for coordinate mapping")
	pflag.Float64("pageheight", cfg.PageHeight, "Nominal page height for coordinate mapping")
	pflag.Float64("toplat", cfg.Bounds.TopLat, "Latitude of the top page edge")
	pflag.Float64("leftlon", cfg.Bounds.LeftLon, "Longitude of the left page edge")
	pflag.Float64("bottomlat", cfg.Bounds.BottomLat, "Latitude of the bottom page edge")
	pflag.Float64("rightlon", cfg.Bounds.RightLon, "Longitude of the right page edge")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

var boundFlags = []string{
	"mode", "host", "port", "dir", "mapping", "flatten",
	"pagewidth", "pageheight", "toplat", "leftlon", "bottomlat", "rightlon",
	"loglevel", "maxfilesize",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range boundFlags {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// readConfigFile merges the optional --config file underneath flags and env
func readConfigFile() error {
	path, _ := pflag.CommandLine.GetString("config")
	if path == "" {
		path = viper.GetString("config")
	}
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Form - A Model Context Protocol server for reading and filling PDF forms\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms                    "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/forms      # web UI and SSE server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mapping=fields.yaml                   # custom display keys\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FORM_MODE        Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FORM_HOST        Server host\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FORM_PORT        Server port\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FORM_DIR         PDF directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FORM_MAPPING     Field mapping file\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FORM_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_PDF_FORM_MAXFILESIZE Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.ConfigFile = viper.ConfigFileUsed()
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.MappingFile = viper.GetString("mapping")
	cfg.Flatten = viper.GetBool("flatten")
	cfg.PageWidth = viper.GetFloat64("pagewidth")
	cfg.PageHeight = viper.GetFloat64("pageheight")
	cfg.Bounds = geo.Bounds{
		TopLat:    viper.GetFloat64("toplat"),
		LeftLon:   viper.GetFloat64("leftlon"),
		BottomLat: viper.GetFloat64("bottomlat"),
		RightLon:  viper.GetFloat64("rightlon"),
	}
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid. A PDF directory that does
// not exist yet passes here; the form service refuses it at startup.
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}
	if info, err := os.Stat(c.PDFDirectory); err == nil && !info.IsDir() {
		return fmt.Errorf("PDF directory %s is not a directory", c.PDFDirectory)
	} else if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	if c.MappingFile != "" {
		if _, err := os.Stat(c.MappingFile); err != nil {
			return fmt.Errorf("cannot access mapping file %s: %w", c.MappingFile, err)
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.PageWidth <= 0 || c.PageHeight <= 0 {
		return errors.New("page width and height must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Mapper returns the coordinate mapper described by the configuration
func (c *Config) Mapper() *geo.Mapper {
	return geo.NewMapper(c.PageWidth, c.PageHeight, c.Bounds)
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, MappingFile: %s, "+
		"LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.MappingFile, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
