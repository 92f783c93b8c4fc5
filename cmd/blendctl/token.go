package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dailyblend/blender/internal/auth"
)

type issuedToken struct {
	Token     string    `json:"token" yaml:"token"`
	Subject   string    `json:"subject" yaml:"subject"`
	Role      auth.Role `json:"role" yaml:"role"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage admin API tokens",
	}

	var (
		role string
		ttl  time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue <subject>",
		Short: "Issue a bearer token for the admin API",
		Long: `Issue signs a PASETO token with the key at API_KEY_PATH, generating the key
on first use. The bot must run with the same key to accept the token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			key, err := auth.LoadOrGenerateKey(cfg.API.KeyPath)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService(key)
			if err != nil {
				return err
			}

			issuedAt := time.Now()
			token, err := tokens.Issue(args[0], auth.Role(role), ttl)
			if err != nil {
				return err
			}
			return a.render(issuedToken{
				Token:     token,
				Subject:   args[0],
				Role:      auth.Role(role),
				ExpiresAt: issuedAt.Add(ttl).UTC().Truncate(time.Second),
			}, token)
		},
	}
	issue.Flags().StringVar(&role, "role", string(auth.RoleViewer), "Token role: operator or viewer")
	issue.Flags().DurationVar(&ttl, "ttl", 720*time.Hour, "Token lifetime")

	cmd.AddCommand(issue)
	return cmd
}
