package pocod

import (
	"fmt"
	"path/filepath"

	"github.com/libreassistant/poco/internal/poco"
	"github.com/libreassistant/poco/internal/poco/config"
	"github.com/libreassistant/poco/internal/poco/options"
	"github.com/libreassistant/poco/pkg/app"
	"github.com/libreassistant/poco/pkg/logger"
)

const commandDesc = `The poco daemon discovers plugins under the plugins root,
gates them behind explicit permission approval, supervises their processes and
routes chat turns between the configured language model and the plugins it
decides to invoke.

It serves the plugin and chat API over plain HTTP, bound to loopback unless
told otherwise.`

// NewApp creates an App object with default parameters.
func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp("poco daemon",
		basename,
		app.WithOptions(opts),
		app.WithDescription(commandDesc),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)

	return application
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		logPath := filepath.Join(opts.LogOptions.Dir, fmt.Sprintf("%s.log", basename))
		if err := logger.InitLog(logPath); err != nil {
			return err
		}
		defer logger.FlushLog()

		if err := logger.SetLevel(opts.LogOptions.Level); err != nil {
			return err
		}

		cfg, err := config.CreateConfigFromOptions(opts)
		if err != nil {
			return err
		}

		return poco.Run(cfg)
	}
}
