// Package util keeps the helpers shared by the pococtl subcommands: the
// client factory and the error/usage conventions.
package util

import (
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/libreassistant/poco/internal/pococtl/api"
	"github.com/libreassistant/poco/internal/pococtl/types"
)

// Factory provides the daemon clients the pococtl commands run against.
// Commands depend on this interface rather than concrete clients so tests can
// substitute scripted implementations.
type Factory interface {
	// APIClient returns a client bound to the configured daemon address and
	// token.
	APIClient() *api.Client

	// HTTPClient returns the raw HTTP client with the configured timeout.
	HTTPClient() *http.Client
}

type defaultFactory struct{}

// NewDefaultFactory creates a Factory reading the daemon address, token and
// timeout from the bound global flags.
func NewDefaultFactory() Factory {
	return &defaultFactory{}
}

func (d *defaultFactory) APIClient() *api.Client {
	return api.NewClient(viper.GetString(types.FlagServer), viper.GetString(types.FlagToken), d.HTTPClient())
}

func (d *defaultFactory) HTTPClient() *http.Client {
	timeout := viper.GetDuration(types.FlagTimeout)
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &http.Client{Timeout: timeout}
}
