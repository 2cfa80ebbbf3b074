// Package main provides the flowcanvas command line client.
package main

import (
	"context"
	"os"

	"github.com/dukex/flowcanvas/pkg/log"
)

func main() {
	logger := log.WithModule("cli")

	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
