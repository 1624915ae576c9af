package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/clearroute/clearroute/internal/auth"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage admin bearer tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(root))
	return cmd
}

func newTokenIssueCmd(root *rootOptions) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token for the /v1/admin endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			token, expiresAt, err := auth.NewJWTService(auth.FromAppConfig(cfg.JWT)).GenerateToken(subject, role, ttl)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"token":     token,
				"subject":   subject,
				"role":      role,
				"expiresAt": expiresAt.UTC().Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject, e.g. an operator email")
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenExpiry, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
