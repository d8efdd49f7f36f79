package main

import (
	"fmt"
	"io"
	"os"

	"github.com/roach88/objcore/internal/cli"
)

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

// run executes the CLI with the given arguments, separate from main for testing.
func run(stdout, stderr io.Writer, args []string) error {
	cmd := cli.NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	return cmd.Execute()
}
