package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/libreassistant/poco/pkg/logger"
)

const configFlagName = "config"

var cfgFile string

func init() {
	pflag.StringVarP(&cfgFile, configFlagName, "c", cfgFile,
		"Read configuration from specified `FILE`, support JSON, TOML, YAML, HCL, or Java properties formats.")
}

// addConfigFlag adds the --config flag to the given flag set and installs the
// viper hooks that read the file and the POCO_* environment.
func addConfigFlag(basename string, fs *pflag.FlagSet) {
	fs.AddFlag(pflag.Lookup(configFlagName))

	viper.AutomaticEnv()
	viper.SetEnvPrefix(strings.ReplaceAll(strings.ToUpper(basename), "-", "_"))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath(".")

			if appDir := appDirFromBasename(basename); appDir != "" {
				if home, err := os.UserHomeDir(); err == nil {
					viper.AddConfigPath(filepath.Join(home, "."+appDir))
				}
				viper.AddConfigPath(filepath.Join("/etc", appDir))
			}

			viper.SetConfigName(basename)
		}

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				logger.Warn("read config file %q: %v", viper.ConfigFileUsed(), err)
			}
		}
	})
}

// appDirFromBasename derives the config directory name from the binary name:
// pocod and pococtl both resolve to poco.
func appDirFromBasename(basename string) string {
	basename = strings.ToLower(basename)
	basename = strings.TrimSuffix(basename, "ctl")
	basename = strings.TrimSuffix(basename, "d")

	return basename
}
