package options

import (
	"github.com/spf13/pflag"
)

// HistoryOptions configures optional chat history persistence.
type HistoryOptions struct {
	// DBPath, when set, enables the sqlite conversation store at that path.
	DBPath string `json:"db-path" mapstructure:"db-path"`
}

// NewHistoryOptions returns HistoryOptions with persistence disabled.
func NewHistoryOptions() *HistoryOptions {
	return &HistoryOptions{}
}

// Validate checks HistoryOptions fields.
func (o *HistoryOptions) Validate() []error {
	return nil
}

// AddFlags adds flags for the history options.
func (o *HistoryOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.DBPath, "history.db-path", o.DBPath, "Sqlite file for conversation history. Empty disables persistence.")
}
