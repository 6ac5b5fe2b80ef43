package main

import (
	"os"

	"github.com/Aesylwinn/tox-forward/cmd/forwarder/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
