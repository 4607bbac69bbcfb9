// Command crust runs tick runtime scenarios, validates scenario files and
// inspects journaled runs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/crust/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "crust:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
