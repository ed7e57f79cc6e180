package main

import (
	"fmt"
	"os"
)

// Set by -ldflags "-X main.version=..." at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vtond:", err)
		os.Exit(1)
	}
}
