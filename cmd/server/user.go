package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pompomputin/wwebjs-webui-docker/internal/auth"
	"github.com/pompomputin/wwebjs-webui-docker/internal/db"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/repository"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	var password, role string
	var reset bool
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an API user",
		Long:  `Creates a user that can log in at POST /auth/login. Roles are "viewer" (read only) and "operator".`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			r := model.Role(role)
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}

			database, err := db.InitDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.CloseDB()

			// Signing is not needed here, so any secret will do.
			svc := auth.NewService(repository.NewUserRepository(database), "unused", cfg.TokenTTL)
			if reset {
				err = svc.EnsureUser(cmd.Context(), args[0], password, r)
			} else {
				_, err = svc.CreateUser(cmd.Context(), args[0], password, r)
			}
			if errors.Is(err, model.ErrUserExists) {
				return fmt.Errorf("user %q already exists (use --reset to change the password)", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s created with role %s\n", args[0], r)
			return nil
		},
	}
	add.Flags().StringVarP(&password, "password", "p", "", "password (at least 8 characters)")
	add.Flags().StringVarP(&role, "role", "r", string(model.RoleOperator), "role: viewer or operator")
	add.Flags().BoolVar(&reset, "reset", false, "update password and role if the user exists")
	add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}
