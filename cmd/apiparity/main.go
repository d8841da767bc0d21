// Package main provides the apiparity binary.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/apiparity/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		code := cli.GetExitCode(err)
		if code == cli.ExitCommandError || code == cli.ExitSpecLoad {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(code)
	}
}
