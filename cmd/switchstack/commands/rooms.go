package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"switchstack/internal/domain"
)

var (
	roomsJSON  bool
	addIcon    string
	roomIcon   string
	roomName   string
	switchName string
	switchIcon string
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Manage rooms",
}

var roomsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rooms and switch states",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.loadRooms(cmd.Context()); err != nil {
			return err
		}

		rooms := a.store.Rooms()
		if roomsJSON {
			return printJSON(a.out, rooms)
		}
		return printRooms(a.out, rooms)
	},
}

var roomsAddCmd = &cobra.Command{
	Use:   "add <device-id> <name>",
	Short: "Add a room for a controller",
	Long: `Add a room for a controller.

The device id "demo" creates a local demo room with sample switches.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.loadRooms(cmd.Context()); err != nil {
			return err
		}
		room, err := a.store.AddRoom(cmd.Context(), args[0], args[1], addIcon)
		if err != nil {
			return err
		}
		return printRooms(a.out, []domain.Room{room})
	},
}

var roomsUpdateCmd = &cobra.Command{
	Use:   "update <device-id>",
	Short: "Rename a room or change its icon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch domain.RoomPatch
		if cmd.Flags().Changed("name") {
			patch.Name = &roomName
		}
		if cmd.Flags().Changed("icon") {
			patch.Icon = &roomIcon
		}
		if patch.Empty() {
			return fmt.Errorf("nothing to update, pass --name or --icon")
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.loadRooms(cmd.Context()); err != nil {
			return err
		}
		return a.store.UpdateRoom(cmd.Context(), args[0], patch)
	},
}

var roomsDeleteCmd = &cobra.Command{
	Use:   "delete <device-id>",
	Short: "Delete a room",
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
		return a.store.DeleteRoom(cmd.Context(), args[0])
	},
}

var roomsReorderCmd = &cobra.Command{
	Use:   "reorder <from> <to>",
	Short: "Move the room at position from to position to",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parsePositions(args[0], args[1])
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.loadRooms(cmd.Context()); err != nil {
			return err
		}
		if err := a.store.ReorderRooms(cmd.Context(), from, to); err != nil {
			return err
		}
		return printRooms(a.out, a.store.Rooms())
	},
}

var switchesCmd = &cobra.Command{
	Use:   "switches",
	Short: "Manage switches within a room",
}

var switchesUpdateCmd = &cobra.Command{
	Use:   "update <device-id> <switch-id>",
	Short: "Rename a switch or change its icon",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch domain.SwitchPatch
		if cmd.Flags().Changed("name") {
			patch.Name = &switchName
		}
		if cmd.Flags().Changed("icon") {
			patch.Icon = &switchIcon
		}
		if patch.Empty() {
			return fmt.Errorf("nothing to update, pass --name or --icon")
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.loadRooms(cmd.Context()); err != nil {
			return err
		}
		return a.store.UpdateSwitch(cmd.Context(), args[0], args[1], patch)
	},
}

var switchesReorderCmd = &cobra.Command{
	Use:   "reorder <device-id> <from> <to>",
	Short: "Move a switch within its room",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parsePositions(args[1], args[2])
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.loadRooms(cmd.Context()); err != nil {
			return err
		}
		if err := a.store.ReorderSwitches(cmd.Context(), args[0], from, to); err != nil {
			return err
		}
		room, _ := a.store.Room(args[0])
		return printRooms(a.out, []domain.Room{room})
	},
}

func parsePositions(fromArg, toArg string) (int, int, error) {
	from, err := strconv.Atoi(fromArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid position %q", fromArg)
	}
	to, err := strconv.Atoi(toArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid position %q", toArg)
	}
	return from, to, nil
}

func init() {
	roomsListCmd.Flags().BoolVar(&roomsJSON, "json", false, "print rooms as JSON")
	roomsAddCmd.Flags().StringVar(&addIcon, "icon", "house", "room icon")
	roomsUpdateCmd.Flags().StringVar(&roomName, "name", "", "new room name")
	roomsUpdateCmd.Flags().StringVar(&roomIcon, "icon", "", "new room icon")
	roomsCmd.AddCommand(roomsListCmd, roomsAddCmd, roomsUpdateCmd, roomsDeleteCmd, roomsReorderCmd)

	switchesUpdateCmd.Flags().StringVar(&switchName, "name", "", "new switch name")
	switchesUpdateCmd.Flags().StringVar(&switchIcon, "icon", "", "new switch icon")
	switchesCmd.AddCommand(switchesUpdateCmd, switchesReorderCmd)

	rootCmd.AddCommand(roomsCmd, switchesCmd)
}
