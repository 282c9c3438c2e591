// Command remoctl administers the reps database. See internal/cli.
package main

import (
	"os"

	"github.com/sakif/remo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
