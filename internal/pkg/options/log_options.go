package options

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// LogOptions configures the process log sink.
type LogOptions struct {
	// Level is the minimum level written: debug, info, warn or error.
	Level string `json:"level" mapstructure:"level"`
	// Dir is the directory receiving the per-binary log file.
	Dir string `json:"dir" mapstructure:"dir"`
}

// NewLogOptions returns LogOptions with defaults.
func NewLogOptions() *LogOptions {
	home, _ := os.UserHomeDir()

	return &LogOptions{
		Level: "info",
		Dir:   filepath.Join(home, ".poco", "logs"),
	}
}

// Validate checks LogOptions fields.
func (o *LogOptions) Validate() []error {
	var errs []error

	switch o.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", o.Level))
	}

	return errs
}

// AddFlags adds flags for the log options.
func (o *LogOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum log level: debug, info, warn or error.")
	fs.StringVar(&o.Dir, "log.dir", o.Dir, "Directory receiving the log file.")
}
