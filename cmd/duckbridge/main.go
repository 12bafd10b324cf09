// Package main provides the CLI entry point for DuckBridge.
package main

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/duckbridge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
