// Command lawlens is the LawLens command-line tool.
package main

import (
	"os"

	"github.com/turtacn/LawLens/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
