package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bissquit/timesheet/internal/domain"
	"github.com/bissquit/timesheet/internal/identity"
)

var (
	tokenUserID string
	tokenRole   string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an actor",
	Long: `token signs an actor token with auth.jwt_secret. The API accepts it in
the Authorization header when it runs with the same secret.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "actor user ID")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(domain.RoleEmployee), "actor role: employee, manager or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	_ = tokenCmd.MarkFlagRequired("user-id")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	role := domain.Role(tokenRole)
	if !role.IsValid() {
		return fmt.Errorf("invalid role %q", tokenRole)
	}

	ttl := tokenTTL
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}

	token, err := identity.NewJWTResolver(cfg.Auth.JWTSecret).Issue(domain.Actor{ID: tokenUserID, Role: role}, ttl, time.Now())
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
