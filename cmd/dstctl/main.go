// dstctl drives the bot's command dispatcher from a terminal. Every
// command runs as an administrator in private scope.
package main

import (
	"os"
)

func main() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
