package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// DispatchOptions bounds the per-request LM and plugin exchange loop.
type DispatchOptions struct {
	// MaxSteps caps LM round trips within one user turn.
	MaxSteps int `json:"max-steps" mapstructure:"max-steps"`
}

// NewDispatchOptions returns DispatchOptions with defaults.
func NewDispatchOptions() *DispatchOptions {
	return &DispatchOptions{
		MaxSteps: 5,
	}
}

// Validate checks DispatchOptions fields.
func (o *DispatchOptions) Validate() []error {
	var errs []error

	if o.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("dispatch max steps must not be negative"))
	}

	return errs
}

// AddFlags adds flags for the dispatch options.
func (o *DispatchOptions) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.MaxSteps, "dispatch.max-steps", o.MaxSteps, "Maximum LM round trips per user turn.")
}
