package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/orders-api/pkg/auth"
)

var (
	tokenUserID   int64
	tokenUsername string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the configured auth secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.Secret == "" {
			return errors.New("auth.secret is not configured")
		}

		token, err := auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).
			GenerateAccessToken(tokenUserID, tokenUsername)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user-id", 1, "user id placed in the token subject")
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "admin", "username claim")
}
