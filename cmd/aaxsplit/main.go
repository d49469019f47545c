package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exitInterrupted follows the shell convention for SIGINT.
const exitInterrupted = 130

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "aaxsplit: interrupted")
			os.Exit(exitInterrupted)
		}
		fmt.Fprintf(os.Stderr, "aaxsplit: %v\n", err)
		os.Exit(1)
	}
}
