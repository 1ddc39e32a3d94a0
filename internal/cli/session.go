package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kroma-labs/rainlogger-go/auth"
)

func newLoginCommand(app *App) *cobra.Command {
	var req auth.LoginRequest

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := app.Auth.Login(cmd.Context(), req)
			if err != nil {
				return describe(err)
			}

			user := resp.Data.User
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s> (%s)\n", user.Name, user.Email, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Auth.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !app.Auth.HasSession() {
				return errNotLoggedIn
			}

			resp, err := app.Auth.IsLoggedIn(cmd.Context())
			if err != nil {
				return describe(err)
			}

			user := resp.Data.User
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), user)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", user.Name, user.Email)
			fmt.Fprintf(out, "role:        %s\n", user.Role)
			fmt.Fprintf(out, "permissions: %s\n", strings.Join(user.Permissions, ", "))
			return nil
		},
	}
}
