package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// interruptExitCode mirrors the conventional 128+SIGINT shell code so
// wrappers can tell a cancelled run from a failed one.
const interruptExitCode = 130

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(interruptExitCode)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
