package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"workmatch/internal/security"
	"workmatch/internal/store"
)

var (
	tokenUserID int64
	tokenTTL    time.Duration
)

// tokenCmd stands in for the identity provider during development.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for a directory user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()

		u, err := st.Users.GetByID(cmd.Context(), tokenUserID)
		if err != nil {
			return fmt.Errorf("look up user %d: %w", tokenUserID, err)
		}

		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.AccessTokenTTL
		}
		tok, err := security.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL).CreateWithTTL(u.ID, u.Role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user", 0, "Directory user id")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default ACCESS_TOKEN_EXPIRE_MINUTES)")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(tokenCmd)
}
