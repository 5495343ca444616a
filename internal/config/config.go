// Package config holds the run configuration model and the optional HCL
// configuration file that populates it. CLI flags override file values;
// file values override built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Model is the fully resolved run configuration.
type Model struct {
	// InputDir is the directory holding the module load set.
	InputDir string
	// OutputDir receives the rewritten modules.
	OutputDir string
	// Marker is the file-name substring that selects patched root modules.
	Marker string
	// Extension filters which files in InputDir are module candidates.
	Extension string

	LogFormat string
	LogLevel  string
}

// Default returns the built-in configuration. InputDir has no default; it
// must come from the file or the command line.
func Default() *Model {
	return &Model{
		OutputDir: "stripped",
		Marker:    "Patched",
		Extension: ".snmod",
		LogFormat: "text",
		LogLevel:  "info",
	}
}

// fileSchema mirrors the attribute layout of an snstrip.hcl file. All
// attributes are optional; absent ones leave the model untouched.
type fileSchema struct {
	InputDir  *string `hcl:"input_dir,optional"`
	OutputDir *string `hcl:"output_dir,optional"`
	Marker    *string `hcl:"marker,optional"`
	Extension *string `hcl:"extension,optional"`
	LogFormat *string `hcl:"log_format,optional"`
	LogLevel  *string `hcl:"log_level,optional"`
}

// ApplyFile decodes the HCL configuration file at path into m, overriding
// any fields the file sets. Expressions in the file may interpolate
// process environment variables through the `env` object, e.g.
// `output_dir = "${env.HOME}/stripped"`.
func ApplyFile(m *Model, path string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("config: parse %s: %w", path, diags)
	}

	var fs fileSchema
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &fs); diags.HasErrors() {
		return fmt.Errorf("config: decode %s: %w", path, diags)
	}

	setIf(&m.InputDir, fs.InputDir)
	setIf(&m.OutputDir, fs.OutputDir)
	setIf(&m.Marker, fs.Marker)
	setIf(&m.Extension, fs.Extension)
	setIf(&m.LogFormat, fs.LogFormat)
	setIf(&m.LogLevel, fs.LogLevel)
	return nil
}

func setIf(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// evalContext exposes the process environment to config expressions as a
// single `env` object value.
func evalContext() *hcl.EvalContext {
	vals := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vals[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vals)},
	}
}

// Validate checks the resolved model for values the app cannot run with.
func (m *Model) Validate() error {
	if m.InputDir == "" {
		return fmt.Errorf("config: input directory is required")
	}
	if m.OutputDir == "" {
		return fmt.Errorf("config: output directory must not be empty")
	}
	if m.Marker == "" {
		return fmt.Errorf("config: patched-module marker must not be empty")
	}
	return nil
}
