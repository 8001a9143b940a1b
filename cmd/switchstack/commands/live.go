package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"switchstack/internal/domain"
	"switchstack/internal/realtime"
)

var (
	toggleTimeout time.Duration
	watchJSON     bool
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <device-id> <switch-id>",
	Short: "Flip a switch",
	Long: `Flip a switch over the real-time connection and wait for the
server to confirm the new state.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID, switchID := args[0], args[1]

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.requireUser(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), toggleTimeout)
		defer cancel()

		room, demo, err := a.startLive(ctx, deviceID)
		if err != nil {
			return err
		}
		if !demo {
			if err := waitConnected(ctx, a); err != nil {
				return err
			}
		}

		confirmed := make(chan bool, 1)
		id := a.store.Subscribe(func(rooms []domain.Room) {
			for _, r := range rooms {
				if r.DeviceID != deviceID {
					continue
				}
				if i := r.SwitchIndex(switchID); i >= 0 {
					select {
					case confirmed <- r.Switches[i].State:
					default:
					}
				}
			}
		})
		defer a.store.Unsubscribe(id)

		if err := a.store.Toggle(ctx, deviceID, switchID); err != nil {
			return err
		}

		state := <-confirmed
		if !demo {
			// The first change is the optimistic flip; give the server a
			// moment to correct it.
			select {
			case state = <-confirmed:
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
		}

		fmt.Fprintf(a.out, "%s / %s is %s\n", room.Name, switchID, onOff(state))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream switch state until interrupted",
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

		a.store.Subscribe(func(rooms []domain.Room) {
			fmt.Fprintf(a.out, "--- %s\n", time.Now().Format(time.TimeOnly))
			if watchJSON {
				printJSON(a.out, rooms)
				return
			}
			printRooms(a.out, rooms)
		})

		if err := a.client.Start(cmd.Context()); err != nil {
			return err
		}

		<-cmd.Context().Done()
		a.logger.Info("shutting down")
		return nil
	},
}

// startLive starts the client and returns the target room.
func (a *app) startLive(ctx context.Context, deviceID string) (domain.Room, bool, error) {
	if err := a.client.Start(ctx); err != nil {
		return domain.Room{}, false, err
	}
	room, ok := a.store.Room(deviceID)
	if !ok {
		return domain.Room{}, false, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, deviceID)
	}
	return room, room.IsDemo(), nil
}

func waitConnected(ctx context.Context, a *app) error {
	connected := make(chan struct{}, 1)
	id := a.client.OnStatus(func(ev realtime.Event) {
		if ev.Status == realtime.StatusConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	defer a.client.RemoveStatusHandler(id)

	if a.client.IsConnected() {
		return nil
	}

	select {
	case <-connected:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for connection: %w", domain.ErrNotConnected)
	}
}

func init() {
	toggleCmd.Flags().DurationVar(&toggleTimeout, "timeout", 15*time.Second, "how long to wait for the connection")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print rooms as JSON")
	rootCmd.AddCommand(toggleCmd, watchCmd)
}
