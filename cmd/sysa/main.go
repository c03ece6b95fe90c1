// Command sysa builds component models by running rules to fixpoint.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sysa/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
