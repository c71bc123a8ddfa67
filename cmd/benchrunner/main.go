// Command benchrunner runs benchmark suites one job at a time
package main

import (
	"os"

	"github.com/benchrunner/benchrunner/pkg/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	os.Exit(cli.ExitCode(cli.ExecuteWithVersion(version)))
}
