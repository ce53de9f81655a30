package options

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
)

// PluginsOptions holds the configuration for plugin discovery and
// supervision: where manifests live, how plugins are approved and started,
// and the deadlines applied to their lifecycle.
type PluginsOptions struct {
	// Root is the directory scanned for plugin subdirectories.
	Root string `json:"root" mapstructure:"root"`
	// Autostart starts every approved plugin at boot.
	Autostart bool `json:"autostart" mapstructure:"autostart"`
	// DisableAutostart overrides Autostart when both are set.
	DisableAutostart bool `json:"disable-autostart" mapstructure:"disable-autostart"`
	// AutoApprove grants each plugin its declared permissions before
	// autostart. Off by default; enable only on trusted local setups.
	AutoApprove bool `json:"auto-approve" mapstructure:"auto-approve"`
	// GrantsFile is where approved permissions are persisted.
	GrantsFile string `json:"grants-file" mapstructure:"grants-file"`
	// ReadinessDeadline bounds the post-spawn health probing.
	ReadinessDeadline time.Duration `json:"readiness-deadline" mapstructure:"readiness-deadline"`
	// StopDeadline bounds the graceful stop before the process is killed.
	StopDeadline time.Duration `json:"stop-deadline" mapstructure:"stop-deadline"`
	// StartDelay is the pause between consecutive autostart launches.
	StartDelay time.Duration `json:"start-delay" mapstructure:"start-delay"`
	// MaxStartAttempts caps per-plugin start attempts during autostart.
	MaxStartAttempts int `json:"max-start-attempts" mapstructure:"max-start-attempts"`
	// InvokeTimeout is the per-call deadline for plugin invocations.
	InvokeTimeout time.Duration `json:"invoke-timeout" mapstructure:"invoke-timeout"`
	// MaxResponseBytes caps the accepted plugin response size.
	MaxResponseBytes int64 `json:"max-response-bytes" mapstructure:"max-response-bytes"`
}

// NewPluginsOptions returns a new instance of PluginsOptions.
func NewPluginsOptions() *PluginsOptions {
	home, _ := os.UserHomeDir()

	return &PluginsOptions{
		Root:              filepath.Join(home, ".poco", "plugins"),
		GrantsFile:        filepath.Join(home, ".poco", "grants.json"),
		ReadinessDeadline: 10 * time.Second,
		StopDeadline:      5 * time.Second,
		StartDelay:        250 * time.Millisecond,
		MaxStartAttempts:  3,
		InvokeTimeout:     30 * time.Second,
		MaxResponseBytes:  10 << 20,
	}
}

// Validate checks PluginsOptions fields.
func (o *PluginsOptions) Validate() []error {
	var errs []error

	if o.Root == "" {
		errs = append(errs, fmt.Errorf("plugins root must not be empty"))
	}
	if o.MaxStartAttempts < 1 {
		errs = append(errs, fmt.Errorf("plugins max start attempts %d must be at least 1", o.MaxStartAttempts))
	}
	if o.ReadinessDeadline < 0 {
		errs = append(errs, fmt.Errorf("plugins readiness deadline must not be negative"))
	}
	if o.StopDeadline <= 0 {
		errs = append(errs, fmt.Errorf("plugins stop deadline must be positive"))
	}
	if o.InvokeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("plugins invoke timeout must be positive"))
	}
	if o.MaxResponseBytes <= 0 {
		errs = append(errs, fmt.Errorf("plugins max response bytes must be positive"))
	}

	return errs
}

// AddFlags adds flags for the plugins options.
func (o *PluginsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Root, "plugins.root", o.Root, "Directory scanned for plugin manifests.")
	fs.BoolVar(&o.Autostart, "plugins.autostart", o.Autostart, "Start approved plugins at boot.")
	fs.BoolVar(&o.DisableAutostart, "plugins.disable-autostart", o.DisableAutostart, "Override plugins.autostart and skip boot starts.")
	fs.BoolVar(&o.AutoApprove, "plugins.auto-approve", o.AutoApprove, "Grant declared permissions before autostart. Trusted local setups only.")
	fs.StringVar(&o.GrantsFile, "plugins.grants-file", o.GrantsFile, "File where approved permissions are persisted.")
	fs.DurationVar(&o.ReadinessDeadline, "plugins.readiness-deadline", o.ReadinessDeadline, "Deadline for a starting plugin to report healthy.")
	fs.DurationVar(&o.StopDeadline, "plugins.stop-deadline", o.StopDeadline, "Graceful stop deadline before the plugin process is killed.")
	fs.DurationVar(&o.StartDelay, "plugins.start-delay", o.StartDelay, "Delay between consecutive autostart launches.")
	fs.IntVar(&o.MaxStartAttempts, "plugins.max-start-attempts", o.MaxStartAttempts, "Per-plugin start attempt cap during autostart.")
	fs.DurationVar(&o.InvokeTimeout, "plugins.invoke-timeout", o.InvokeTimeout, "Per-call timeout for plugin invocations.")
	fs.Int64Var(&o.MaxResponseBytes, "plugins.max-response-bytes", o.MaxResponseBytes, "Maximum accepted plugin response size in bytes.")
}
