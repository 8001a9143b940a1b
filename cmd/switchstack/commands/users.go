package commands

import (
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage who can access a room",
}

var usersListCmd = &cobra.Command{
	Use:   "list <device-id>",
	Short: "List users with access to a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.loadRooms(cmd.Context()); err != nil {
			return err
		}
		users, err := a.store.ListRoomUsers(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printUsers(a.out, users)
	},
}

var usersAddCmd = &cobra.Command{
	Use:   "add <device-id> <email>",
	Short: "Share a room with another account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.loadRooms(cmd.Context()); err != nil {
			return err
		}
		return a.store.AddRoomUser(cmd.Context(), args[0], args[1])
	},
}

var usersRemoveCmd = &cobra.Command{
	Use:   "remove <device-id> <email>",
	Short: "Revoke an account's access to a room",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.loadRooms(cmd.Context()); err != nil {
			return err
		}
		return a.store.RemoveRoomUser(cmd.Context(), args[0], args[1])
	},
}

func init() {
	usersCmd.AddCommand(usersListCmd, usersAddCmd, usersRemoveCmd)
	rootCmd.AddCommand(usersCmd)
}
