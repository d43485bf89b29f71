// wplanctl is the operator CLI: it imports invoice workbooks, validates
// them without writing anything, and mints API sessions.
package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/cli"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wplanctl",
		Short: "Operator tooling for the practice planning service",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
			cli.SetupLogger()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
