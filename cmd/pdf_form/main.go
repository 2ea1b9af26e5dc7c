package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-pdf-form/internal/config"
	"github.com/a3tai/mcp-pdf-form/internal/form"
	"github.com/a3tai/mcp-pdf-form/internal/geo"
)

const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitInterrupted = 130

	outputFilePerm = 0o644
)

var commands = []string{"fields", "extract", "widgets", "geo", "tags", "fill"}

// options are the parsed command line flags
type options struct {
	set         []string
	valuesFile  string
	interactive bool
	tags        bool
	noFlatten   bool
	out         string
	format      string
	mapping     string
	maxFileSize int64
	help        bool
}

// app runs one command against one file
type app struct {
	opts     options
	stdout   io.Writer
	stderr   io.Writer
	prompter prompter
	mapper   *geo.Mapper
}

func main() {
	a := &app{stdout: os.Stdout, stderr: os.Stderr, prompter: surveyPrompter{}, mapper: geo.DefaultMapper()}
	os.Exit(a.run(context.Background(), os.Args[1:]))
}

func newFlagSet(opts *options, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("pdf_form", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringArrayVar(&opts.set, "set", nil, "Field value as name=value (repeatable)")
	fs.StringVar(&opts.valuesFile, "values", "", "JSON or YAML file of field values")
	fs.BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for every field")
	fs.BoolVar(&opts.tags, "tags", false, "Fill {{tag}} placeholders instead of form fields")
	fs.BoolVar(&opts.noFlatten, "no-flatten", false, "Keep the filled fields editable")
	fs.StringVarP(&opts.out, "out", "o", "", "Output file (default filled_form.pdf next to the input)")
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.StringVar(&opts.mapping, "mapping", "", "YAML file mapping field names to display keys")
	fs.Int64Var(&opts.maxFileSize, "maxfilesize", config.DefaultMaxFileSize, "Maximum PDF file size in bytes")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show help message")
	fs.Usage = func() { printHelp(stderr, fs) }
	return fs
}

func (a *app) run(ctx context.Context, args []string) int {
	fs := newFlagSet(&a.opts, a.stderr)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n\n", err)
		printUsage(a.stderr)
		return exitUsage
	}
	if a.opts.help {
		printHelp(a.stdout, fs)
		return exitOK
	}
	if fs.NArg() != 2 {
		fmt.Fprintf(a.stderr, "Error: command and PDF file path required\n\n")
		printUsage(a.stderr)
		return exitUsage
	}
	if a.opts.format != "text" && a.opts.format != "json" {
		fmt.Fprintf(a.stderr, "Error: unsupported output format: %s\n", a.opts.format)
		return exitUsage
	}

	command, path := fs.Arg(0), fs.Arg(1)
	if indexOf(commands, command) < 0 {
		fmt.Fprintf(a.stderr, "Error: unknown command %q (want one of %s)\n", command, strings.Join(commands, ", "))
		return exitUsage
	}

	if err := a.execute(ctx, command, path); err != nil {
		if errors.Is(err, errAborted) {
			fmt.Fprintln(a.stderr, "Aborted")
			return exitInterrupted
		}
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func (a *app) execute(ctx context.Context, command, path string) error {
	mapping := form.DefaultMapping()
	if a.opts.mapping != "" {
		loaded, err := form.LoadMapping(a.opts.mapping)
		if err != nil {
			return err
		}
		mapping = loaded
	}

	doc, err := form.LoadFile(path, a.opts.maxFileSize, mapping)
	if err != nil {
		return err
	}

	switch command {
	case "fields":
		fields, err := doc.Fields()
		if err != nil {
			return err
		}
		return a.output(fields, func(w io.Writer) { writeFields(w, fields) })
	case "extract":
		values, err := doc.Extract()
		if err != nil {
			return err
		}
		return a.output(values, func(w io.Writer) { writeValues(w, values) })
	case "widgets":
		widgets, err := doc.Widgets()
		if err != nil {
			return err
		}
		return a.output(widgets, func(w io.Writer) { writeWidgets(w, widgets) })
	case "geo":
		widgets, err := doc.Widgets()
		if err != nil {
			return err
		}
		points := form.MapWidgets(a.mapper, widgets)
		return a.output(points, func(w io.Writer) { writePoints(w, points) })
	case "tags":
		tags, err := doc.Tags()
		if err != nil {
			return err
		}
		return a.output(tags, func(w io.Writer) { writeTags(w, tags) })
	default:
		return a.fill(ctx, doc, path)
	}
}

type fillOutput struct {
	Output    string   `json:"output"`
	Filled    []string `json:"filled"`
	Warnings  []string `json:"warnings,omitempty"`
	Flattened bool     `json:"flattened"`
}

func (a *app) fill(ctx context.Context, doc *form.Document, path string) error {
	values, err := a.givenValues()
	if err != nil {
		return err
	}

	if a.opts.interactive {
		if a.opts.tags {
			tags, err := doc.Tags()
			if err != nil {
				return err
			}
			values, err = promptTags(ctx, a.prompter, tags, values)
			if err != nil {
				return err
			}
		} else {
			fields, err := doc.Fields()
			if err != nil {
				return err
			}
			values, err = promptFields(ctx, a.prompter, fields, values)
			if err != nil {
				return err
			}
		}
	}
	if len(values) == 0 {
		return errors.New("no values given; use --set, --values or --interactive")
	}

	outPath, err := outputPath(path, a.opts.out)
	if err != nil {
		return err
	}

	opts := form.FillOptions{Flatten: !a.opts.noFlatten}
	var res *form.FillResult
	if a.opts.tags {
		res, err = doc.FillTags(values, opts)
	} else {
		res, err = doc.Fill(values, opts)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, res.Data, outputFilePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	result := fillOutput{Output: outPath, Filled: res.Filled, Warnings: res.Warnings, Flattened: res.Flattened}
	return a.output(result, func(w io.Writer) {
		fmt.Fprintf(w, "✅ Filled %d field(s) into %s\n", len(res.Filled), outPath)
		for _, warning := range res.Warnings {
			fmt.Fprintf(w, "⚠️  %s\n", warning)
		}
	})
}

// givenValues merges the values file with --set pairs; --set wins
func (a *app) givenValues() (map[string]string, error) {
	values := make(map[string]string)
	if a.opts.valuesFile != "" {
		loaded, err := loadValues(a.opts.valuesFile)
		if err != nil {
			return nil, err
		}
		for k, v := range loaded {
			values[k] = v
		}
	}
	for _, pair := range a.opts.set {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: want name=value", pair)
		}
		values[name] = value
	}
	return values, nil
}

// loadValues reads a flat JSON or YAML object of field values. Scalars are
// rendered as text, so `Agree: true` becomes "true".
func loadValues(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file: %w", err)
	}

	var raw map[string]interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse values file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			values[k] = ""
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("value of %q must be a scalar", k)
		default:
			values[k] = fmt.Sprint(val)
		}
	}
	return values, nil
}

// outputPath defaults to filled_form.pdf next to the input and never
// overwrites the input
func outputPath(input, out string) (string, error) {
	if out == "" {
		out = filepath.Join(filepath.Dir(input), form.DefaultOutputName)
	}
	absIn, err := filepath.Abs(input)
	if err != nil {
		return "", err
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return "", err
	}
	if absIn == absOut {
		return "", fmt.Errorf("output must differ from the input file: %s", out)
	}
	return absOut, nil
}

func (a *app) output(v interface{}, text func(io.Writer)) error {
	if a.opts.format == "json" {
		encoder := json.NewEncoder(a.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}
	text(a.stdout)
	return nil
}

func writeFields(w io.Writer, fields []form.Field) {
	if len(fields) == 0 {
		fmt.Fprintln(w, "⚠️  No form fields detected in the PDF")
		return
	}
	fmt.Fprintf(w, "✅ Found %d form field(s)\n\n", len(fields))
	for i, f := range fields {
		fmt.Fprintf(w, "[%d] %s\n", i+1, f.Name)
		if f.Key != f.Name {
			fmt.Fprintf(w, "    Key: %s\n", f.Key)
		}
		fmt.Fprintf(w, "    Kind: %s\n", f.Kind)
		if f.Value != nil {
			fmt.Fprintf(w, "    Value: %v\n", f.Value)
		}
		if len(f.Pages) > 0 {
			fmt.Fprintf(w, "    Pages: %v\n", f.Pages)
		}
		if len(f.Options) > 0 {
			fmt.Fprintf(w, "    Options: %v\n", f.Options)
		}
		if f.Locked {
			fmt.Fprintln(w, "    Properties: [ReadOnly]")
		}
		fmt.Fprintln(w)
	}
}

func writeValues(w io.Writer, values map[string]interface{}) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if values[k] == nil {
			fmt.Fprintf(w, "%s: (empty)\n", k)
			continue
		}
		fmt.Fprintf(w, "%s: %v\n", k, values[k])
	}
}

func writeWidgets(w io.Writer, widgets []form.Widget) {
	for i, wd := range widgets {
		fmt.Fprintf(w, "[%d] %s\n", i+1, wd.Name)
		fmt.Fprintf(w, "    Page: %d\n", wd.Page)
		fmt.Fprintf(w, "    Position: left %.1f, top %.1f\n", wd.Left, wd.Top)
		fmt.Fprintf(w, "    Size: %.1f x %.1f\n", wd.Rect.Width, wd.Rect.Height)
	}
}

func writePoints(w io.Writer, points []geo.Named) {
	for _, p := range points {
		fmt.Fprintf(w, "%s: %.4f, %.4f\n", p.Name, p.Point.Latitude, p.Point.Longitude)
	}
}

func writeTags(w io.Writer, tags []form.TagField) {
	if len(tags) == 0 {
		fmt.Fprintln(w, "⚠️  No {{tag}} placeholders found")
		return
	}
	for _, t := range tags {
		fmt.Fprintf(w, "%s (%s)\n", t.ID, t.Label)
	}
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "PDF Form - Read and fill AcroForm fields and {{tag}} placeholders")
	fmt.Fprintln(w)
	printUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  fields     List form fields with kind, display key and value")
	fmt.Fprintln(w, "  extract    Print the current value of every field")
	fmt.Fprintln(w, "  widgets    Locate field widgets on their pages")
	fmt.Fprintln(w, "  geo        Map widget positions to latitude/longitude")
	fmt.Fprintln(w, "  tags       List {{tag}} placeholders in the page text")
	fmt.Fprintln(w, "  fill       Fill the form and write filled_form.pdf")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  pdf_form fields application.pdf")
	fmt.Fprintln(w, "  pdf_form fill --set policyNumber=P-100 --set Agree=true application.pdf")
	fmt.Fprintln(w, "  pdf_form fill --values values.yaml --no-flatten -o out.pdf application.pdf")
	fmt.Fprintln(w, "  pdf_form fill --tags --interactive letter.pdf")
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_form [OPTIONS] <command> <pdf_file>")
}
