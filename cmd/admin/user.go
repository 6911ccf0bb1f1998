package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sitetrack/internal/repository"
	"sitetrack/internal/service/auth"
	"sitetrack/pkg/rbac"
)

func userCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long: `Create an account that can log in through POST /login.

Examples:
  sitetrack-admin user create --email=site@example.com --password=secret --role=contractor
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")

			pool, err := a.db()
			if err != nil {
				return err
			}
			svc := auth.NewService(repository.NewUserRepository(pool), a.cfg.JWT.Secret, a.cfg.TokenTTL(), a.log)

			u, err := svc.Register(cmd.Context(), email, password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s, %s)\n", u.ID, u.Email, u.Role)
			return nil
		},
	}
	create.Flags().String("email", "", "Login email (required)")
	create.Flags().String("password", "", "Password (required)")
	create.Flags().String("role", rbac.RoleContractor, "contractor, owner or admin")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")
	cmd.AddCommand(create)

	return cmd
}
