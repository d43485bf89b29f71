package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags "-X main.version=..."
var (
	version   = "dev"
	buildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wplanctl %s\n", version)
			fmt.Fprintf(out, "build date: %s\n", buildDate)
			fmt.Fprintf(out, "go version: %s\n", runtime.Version())
		},
	}
}
