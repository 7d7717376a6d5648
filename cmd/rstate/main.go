// Command rstate runs and inspects reactive state scenarios.
package main

import (
	"os"

	"github.com/roach88/rstate/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
