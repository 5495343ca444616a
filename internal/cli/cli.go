package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fortender/StrongNameRemover/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// defaultConfigFile is picked up from the working directory when no
// -config flag is given.
const defaultConfigFile = "snstrip.hcl"

// Parse processes command-line arguments into a resolved configuration
// model. Precedence, lowest to highest: built-in defaults, SNSTRIP_*
// environment variables, the HCL config file, explicit flags. It returns
// the model, a boolean indicating the program should exit cleanly (help
// was printed), or an ExitError.
func Parse(args []string, output io.Writer) (*config.Model, bool, error) {
	flagSet := flag.NewFlagSet("snstrip", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
snstrip - strips strong-name identities along a module reference graph.

Usage:
  snstrip [options] [INPUT_DIR]

Arguments:
  INPUT_DIR
    Directory containing the module load set (non-recursive).

Options:
`)
		flagSet.PrintDefaults()
	}

	inFlag := flagSet.String("in", "", "Directory containing the module load set.")
	outFlag := flagSet.String("out", "", "Directory receiving rewritten modules.")
	markerFlag := flagSet.String("marker", "", "File-name substring selecting patched root modules.")
	extFlag := flagSet.String("ext", "", "Module file extension to load.")
	configFlag := flagSet.String("config", "", "Path to an HCL configuration file.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	model := config.Default()
	applyEnv(model)

	configPath := *configFlag
	if configPath == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			configPath = defaultConfigFile
		}
	}
	if configPath != "" {
		if err := config.ApplyFile(model, configPath); err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
	}

	// Explicit flags win over both the environment and the file.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			model.InputDir = *inFlag
		case "out":
			model.OutputDir = *outFlag
		case "marker":
			model.Marker = *markerFlag
		case "ext":
			model.Extension = *extFlag
		case "log-format":
			model.LogFormat = *logFormatFlag
		case "log-level":
			model.LogLevel = *logLevelFlag
		}
	})

	if model.InputDir == "" && flagSet.NArg() > 0 {
		model.InputDir = flagSet.Arg(0)
	}

	if model.InputDir == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	model.LogFormat = strings.ToLower(model.LogFormat)
	if model.LogFormat != "text" && model.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	model.LogLevel = strings.ToLower(model.LogLevel)
	switch model.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if err := model.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return model, false, nil
}

// applyEnv overlays SNSTRIP_* environment variables onto the model.
// main loads a .env file beforehand, so these also work from there.
func applyEnv(m *config.Model) {
	overlay := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	overlay(&m.InputDir, "SNSTRIP_IN")
	overlay(&m.OutputDir, "SNSTRIP_OUT")
	overlay(&m.Marker, "SNSTRIP_MARKER")
	overlay(&m.Extension, "SNSTRIP_EXT")
	overlay(&m.LogFormat, "SNSTRIP_LOG_FORMAT")
	overlay(&m.LogLevel, "SNSTRIP_LOG_LEVEL")
}
