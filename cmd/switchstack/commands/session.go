package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string

	registerName     string
	registerEmail    string
	registerPassword string
	registerConfirm  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and cache the session",
	Long: `Log in and cache the session for later commands.

Use demo@example.com / password for a local demo home that never
contacts the server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		if err := a.store.Hydrate(ctx); err != nil {
			return err
		}
		user, err := a.client.Login(ctx, loginEmail, loginPassword)
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "Logged in as %s <%s>, %d room(s)\n", user.Name, user.Email, len(a.store.Rooms()))
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		if err := a.store.Hydrate(ctx); err != nil {
			return err
		}
		user, err := a.client.Register(ctx, registerName, registerEmail, registerPassword, registerConfirm)
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "Registered %s <%s>\n", user.Name, user.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and clear cached rooms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.requireUser(); err != nil {
			return err
		}
		if err := a.store.Hydrate(cmd.Context()); err != nil {
			return err
		}
		return a.client.Logout(cmd.Context())
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	loginCmd.MarkFlagRequired("email")
	loginCmd.MarkFlagRequired("password")

	registerCmd.Flags().StringVar(&registerName, "name", "", "display name")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "password")
	registerCmd.Flags().StringVar(&registerConfirm, "confirm", "", "password confirmation")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("email")
	registerCmd.MarkFlagRequired("password")
	registerCmd.MarkFlagRequired("confirm")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd)
}
