package poco

import (
	"errors"

	"github.com/libreassistant/poco/internal/poco/config"
	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/pkg/app"
)

const (
	// exitMissingRoot reports an absent plugins root, a setup problem the
	// operator must fix before the daemon can be of any use.
	exitMissingRoot = 64
	// exitFatal covers every other fatal boot or serve failure.
	exitFatal = 65
)

// Run runs the specified poco server. Under normal operation it blocks until
// the process is signalled.
func Run(cfg *config.Config) error {
	server, err := createAPIServer(cfg)
	if err != nil {
		return app.NewExitError(exitFatal, err)
	}

	if err := server.PrepareRun().Run(); err != nil {
		if errors.Is(err, errno.ErrPluginsRootAbsent) {
			return app.NewExitError(exitMissingRoot, err)
		}

		return app.NewExitError(exitFatal, err)
	}

	return nil
}
