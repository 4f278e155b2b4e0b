package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"workmatch/internal/domain"
	"workmatch/internal/service"
	"workmatch/internal/store"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the user directory",
}

var userAddInput service.RegisterInput

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a directory user under an identity provider id",
	Example: `  workmatch user add --id 1 --role client --fullname "Rana K." --governorate Beirut --district Beirut --needs Plumber
  workmatch user add --id 2 --role specialist --fullname "Sami H." --specialty Electrician --available`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		userAddInput.Role = domain.Role(role)

		st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()
		if err := st.Migrate(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		u, err := service.NewUserService(st.Users).Register(cmd.Context(), userAddInput)
		if err != nil {
			return err
		}
		logger.Info("user registered", zap.Int64("id", u.ID), zap.String("role", string(u.Role)))
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", u.ID)
		return nil
	},
}

func init() {
	f := userAddCmd.Flags()
	f.Int64Var(&userAddInput.ID, "id", 0, "Identity provider user id (the token's sub claim)")
	f.String("role", "", "client or specialist")
	f.StringVar(&userAddInput.FullName, "fullname", "", "Display name")
	f.StringVar(&userAddInput.Governorate, "governorate", "", "Governorate, e.g. \"Mount Lebanon\"")
	f.StringVar(&userAddInput.District, "district", "", "District within the governorate")
	f.StringVar(&userAddInput.Specialty, "specialty", "", "Specialty (specialists only)")
	f.BoolVar(&userAddInput.IsAvailable, "available", false, "Specialist accepts new work")
	f.StringSliceVar(&userAddInput.NeededSpecialists, "needs", nil, "Specialties a client is looking for (clients only)")
	_ = userAddCmd.MarkFlagRequired("id")
	_ = userAddCmd.MarkFlagRequired("role")
	_ = userAddCmd.MarkFlagRequired("fullname")

	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
