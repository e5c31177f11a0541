package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cbt-marketplace/apiserver/config"
	"github.com/cbt-marketplace/apiserver/internal/db"
	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var adminFlags struct {
	email    string
	name     string
	password string
}

// Administrators cannot self-register, so the first one is bootstrapped here.
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Creates an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminFlags.email == "" || adminFlags.password == "" {
			return errors.New("--email and --password are required")
		}

		cfg := config.LoadConfig()
		logger := slog.Default()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		users := services.NewUserService(
			store.NewUserRepository(dbConn),
				policy.New(nil),
			events.Discard{},
			logger,
		)
		admin, err := users.CreateAdmin(cmd.Context(), adminFlags.email, adminFlags.name, adminFlags.password)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		logger.Info("administrator created", "id", admin.ID, "email", admin.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)
	createAdminCmd.Flags().StringVar(&adminFlags.email, "email", "", "administrator email")
	createAdminCmd.Flags().StringVar(&adminFlags.name, "name", "Administrator", "display name")
	createAdminCmd.Flags().StringVar(&adminFlags.password, "password", "", "initial password")
}
