package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"switchstack/internal/domain"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRooms(w io.Writer, rooms []domain.Room) error {
	if len(rooms) == 0 {
		fmt.Fprintln(w, "No rooms")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDEVICE\tROOM\tSWITCH\tID\tSTATE")
	for _, r := range rooms {
		name := r.Name
		if r.IsDemo() {
			name += " (demo)"
		}
		if len(r.Switches) == 0 {
			fmt.Fprintf(tw, "%d\t%s\t%s\t-\t-\t-\n", r.DisplayOrder, r.DeviceID, name)
			continue
		}
		for i, sw := range r.Switches {
			if i > 0 {
				fmt.Fprintf(tw, "\t\t\t%s\t%s\t%s\n", sw.Name, sw.ID, onOff(sw.State))
				continue
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.DisplayOrder, r.DeviceID, name, sw.Name, sw.ID, onOff(sw.State))
		}
	}
	return tw.Flush()
}

func printUsers(w io.Writer, users []domain.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEMAIL")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\n", u.Name, u.Email)
	}
	return tw.Flush()
}

func onOff(state bool) string {
	if state {
		return "on"
	}
	return "off"
}
