// Package main is the entry point for the formsignal CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/formsignal/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
