package main

import (
	"os"

	"github.com/go-go-golems/can-assistant/cmd/can-assistant/cmds"
)

func main() {
	if err := cmds.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
