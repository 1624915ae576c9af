// Command clearroute is the operator CLI: one-off predictions, model checks
// and admin token issuance.
package main

import (
	"fmt"
	"os"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
