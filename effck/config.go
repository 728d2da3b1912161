package main

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// options are the effck settings.
// They are read from an optional YAML file,
// and flags set on the command line override them.
type options struct {
	// Parallelism is the maximum number of declarations checked concurrently.
	Parallelism int `yaml:"parallelism,omitempty"`

	// VerboseNotes prints notes that are only shown in verbose mode.
	VerboseNotes bool `yaml:"verbose_notes,omitempty"`

	// WarningsAsErrors makes any warning fail the check.
	WarningsAsErrors bool `yaml:"warnings_as_errors,omitempty"`

	// Color is one of auto, always, or never.
	Color string `yaml:"color,omitempty"`

	// TraceDepth is the checker trace depth: 0 is off and -1 is unlimited.
	TraceDepth int `yaml:"trace_depth,omitempty"`

	// TrimPathPrefix is removed from file paths in diagnostics.
	TrimPathPrefix string `yaml:"trim_path_prefix,omitempty"`
}

func defaultOptions() options {
	return options{
		Parallelism: runtime.NumCPU(),
		Color:       "auto",
	}
}

// loadOptions reads a YAML config file over opts.
// Keys missing from the file keep their value in opts.
func loadOptions(path string, opts *options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return parseOptions(data, path, opts)
}

// parseOptions parses YAML config content over opts.
// The path argument is used only for error messages.
func parseOptions(data []byte, path string, opts *options) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := checkKeys(&node, path); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return opts.validate(path)
}

var knownKeys = map[string]bool{
	"parallelism":        true,
	"verbose_notes":      true,
	"warnings_as_errors": true,
	"color":              true,
	"trace_depth":        true,
	"trim_path_prefix":   true,
}

// checkKeys returns an error if the document has an unknown top-level key.
func checkKeys(doc *yaml.Node, path string) error {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return fmt.Errorf("%s:%d: expected a mapping", path, m.Line)
	}
	for i := 0; i < len(m.Content); i += 2 {
		key := m.Content[i]
		if !knownKeys[key.Value] {
			return fmt.Errorf("%s:%d: unknown key %q", path, key.Line, key.Value)
		}
	}
	return nil
}

func (o *options) validate(path string) error {
	switch o.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%s: color must be auto, always, or never, got %q", path, o.Color)
	}
	if o.TraceDepth < -1 {
		return fmt.Errorf("%s: trace_depth must be -1 or more, got %d", path, o.TraceDepth)
	}
	return nil
}
