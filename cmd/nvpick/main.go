// Package main is the entry point for the nvpick CLI.
package main

import (
	"os"

	"github.com/runger/nvpick/internal/cmd"
)

func main() {
	os.Exit(cmd.Run(os.Args[1:]))
}
