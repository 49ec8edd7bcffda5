// Command gmslots manages and runs game master script slots.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/gmslots/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
