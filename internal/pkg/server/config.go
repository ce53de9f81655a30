// Package server provides the generic HTTP and gRPC server plumbing shared by
// the poco daemons.
package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

// Config is a structure used to configure a GenericAPIServer.
type Config struct {
	Mode            string
	Healthz         bool
	EnableProfiling bool
	InsecureServing *InsecureServingInfo
}

// InsecureServingInfo holds the plain HTTP serving address.
type InsecureServingInfo struct {
	Address string
}

// NewConfig returns a Config struct with the default values.
func NewConfig() *Config {
	return &Config{
		Mode:            gin.ReleaseMode,
		Healthz:         true,
		EnableProfiling: false,
	}
}

// CompletedConfig is the completed configuration for GenericAPIServer.
type CompletedConfig struct {
	*Config
}

// Complete fills in any fields not set that are required to have valid data
// and can be derived from other fields.
func (c *Config) Complete() CompletedConfig {
	if c.InsecureServing == nil {
		c.InsecureServing = &InsecureServingInfo{Address: "127.0.0.1:11750"}
	}

	return CompletedConfig{c}
}

// New returns a new instance of GenericAPIServer from the given config.
func (c CompletedConfig) New() (*GenericAPIServer, error) {
	gin.SetMode(c.Mode)

	s := &GenericAPIServer{
		Engine:          gin.New(),
		healthz:         c.Healthz,
		enableProfiling: c.EnableProfiling,
		address:         c.InsecureServing.Address,
	}

	initGenericAPIServer(s)

	return s, nil
}

// LoadConfig reads in config file and ENV variables if set. Used by client
// tools that do not go through pkg/app.
func LoadConfig(cfg string, defaultName string) {
	if cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".poco"))
		}
		viper.AddConfigPath("/etc/poco")
		viper.SetConfigName(defaultName)
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("POCO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			_, _ = os.Stderr.WriteString("warning: read config file failed: " + err.Error() + "\n")
		}
	}
}
