package main

import (
	"os"

	"github.com/easelhq/easel/internal/cli"
)

func main() {
	// Commands print their own diagnostics; only the exit code is left
	// to decide here.
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
