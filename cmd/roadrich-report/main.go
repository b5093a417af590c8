// Command roadrich-report renders monthly PDF reports outside the server:
// from a JSON bundle on disk, or straight from the configured store.
package main

import (
	"os"

	"roadrich/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
