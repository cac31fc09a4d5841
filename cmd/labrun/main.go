// Command labrun runs lab-automation protocols on the hardware simulator.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/labrun/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
