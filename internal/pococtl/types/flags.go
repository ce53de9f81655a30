// Package types holds the flag names shared across the pococtl command tree.
package types

const (
	// FlagPocoConfig names the config file flag.
	FlagPocoConfig = "poco-config"
	// FlagServer names the daemon address flag.
	FlagServer = "server"
	// FlagToken names the bearer token flag.
	FlagToken = "token"
	// FlagTimeout names the request timeout flag.
	FlagTimeout = "timeout"
)
