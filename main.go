package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/compozy/flowctl/cli"
	"github.com/compozy/flowctl/cli/helpers"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		// command handlers already printed categorized errors
		var cliErr *helpers.CliError
		if !errors.As(err, &cliErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
