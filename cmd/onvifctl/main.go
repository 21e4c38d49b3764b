// Package main is onvifctl, a command line client for ONVIF device sessions.
package main

import (
	"os"
)

func main() {
	root := rootCommand()
	root.AddCommand(discoverCommand())
	root.AddCommand(bootstrapCommand())
	root.AddCommand(commandsCommand())
	root.AddCommand(callCommand())
	root.AddCommand(serveCommand())
	root.AddCommand(configCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
