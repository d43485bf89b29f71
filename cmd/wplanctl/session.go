package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/cli"
)

// newSessionCmd mints a bearer token for API access. Login flows live
// with the hosted auth provider; this backs scripts and smoke tests.
func newSessionCmd() *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create an API session token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()
			cfg := cli.LoadAndValidateConfig(logger)
			repo := cli.InitStorage(logger, cfg)
			defer repo.Close()

			token, err := repo.CreateSession(cmd.Context(), strings.TrimSpace(user), ttl)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User ID the token belongs to (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "How long the session stays valid")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
