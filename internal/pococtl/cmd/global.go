package cmd

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/libreassistant/poco/internal/pococtl/api"
	"github.com/libreassistant/poco/internal/pococtl/types"
)

var (
	globalServerAddr string
	globalToken      string
	globalTimeout    time.Duration
)

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&globalServerAddr,
		types.FlagServer,
		api.DefaultServer,
		"Address of the poco daemon HTTP server")
	flags.StringVar(&globalToken,
		types.FlagToken,
		"",
		"Bearer token sent with every request (empty for loopback daemons)")
	flags.DurationVar(&globalTimeout,
		types.FlagTimeout,
		120*time.Second,
		"Timeout for daemon requests")
	flags.String(types.FlagPocoConfig,
		"",
		"Path to the pococtl configuration file")
}

// GetServerAddr returns the configured daemon address.
func GetServerAddr() string {
	return globalServerAddr
}
