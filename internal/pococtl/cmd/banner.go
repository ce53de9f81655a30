package cmd

import (
	"fmt"

	"github.com/libreassistant/poco/pkg/version"
)

const bannerText = `
  ____   ___   ____ ___
 |  _ \ / _ \ / ___/ _ \
 | |_) | | | | |  | | | |
 |  __/| |_| | |__| |_| |
 |_|    \___/ \____\___/

   Plugin Orchestration Core
`

// Banner returns the CLI banner string.
func Banner() string {
	return fmt.Sprintf("%s\n  Version: %s\n", bannerText, version.Get().String())
}
