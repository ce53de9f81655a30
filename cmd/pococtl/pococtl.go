package main

import (
	"os"

	"github.com/libreassistant/poco/internal/pococtl/cmd"
)

func main() {
	command := cmd.NewDefaultPocoCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
