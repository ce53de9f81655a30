package cliflag

import (
	"github.com/spf13/pflag"

	"github.com/libreassistant/poco/pkg/logger"
)

// PrintFlags logs the flags in the flagset at debug level.
func PrintFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(flag *pflag.Flag) {
		logger.Debug("FLAG: --%s=%q", flag.Name, flag.Value)
	})
}
