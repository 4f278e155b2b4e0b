package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"workmatch/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()

		if err := st.Migrate(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("schema is up to date", zap.String("database", st.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
