package main

import (
	"os"

	"beaconagent/internal/cli"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
