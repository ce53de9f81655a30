package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// UsageOptions configures the usage tracker.
type UsageOptions struct {
	// ArchiveSize bounds the number of archived sessions kept for analytics.
	ArchiveSize int `json:"archive-size" mapstructure:"archive-size"`
	// DBPath, when set, mirrors archived sessions into a bolt database so
	// analytics survive restarts. Empty keeps the archive in memory only.
	DBPath string `json:"db-path" mapstructure:"db-path"`
}

// NewUsageOptions returns UsageOptions with defaults.
func NewUsageOptions() *UsageOptions {
	return &UsageOptions{
		ArchiveSize: 100,
	}
}

// Validate checks UsageOptions fields.
func (o *UsageOptions) Validate() []error {
	var errs []error

	if o.ArchiveSize < 1 {
		errs = append(errs, fmt.Errorf("usage archive size %d must be at least 1", o.ArchiveSize))
	}

	return errs
}

// AddFlags adds flags for the usage tracker options.
func (o *UsageOptions) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.ArchiveSize, "usage.archive-size", o.ArchiveSize, "Number of archived request sessions kept for analytics.")
	fs.StringVar(&o.DBPath, "usage.db-path", o.DBPath, "Bolt database file mirroring the session archive. Empty keeps it in memory.")
}
