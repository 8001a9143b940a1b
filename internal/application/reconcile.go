package application

import (
	"cmp"
	"slices"

	"switchstack/internal/domain"
)

// Reconcile merges a server snapshot into the cached rooms. The server decides
// which rooms exist and the live name, icon and state; the cache keeps user
// ordering and switches the server did not list. Demo rooms are local only
// and always kept.
func Reconcile(cached, server []domain.Room) []domain.Room {
	server = sortedByOrder(server)

	hasReal := slices.ContainsFunc(cached, func(r domain.Room) bool { return !r.IsDemo() })

	var merged []domain.Room
	switch {
	case len(server) == 0:
		for _, r := range cached {
			if r.IsDemo() {
				merged = append(merged, r.Clone())
			}
		}

	case !hasReal:
		for _, r := range cached {
			merged = append(merged, r.Clone())
		}
		for _, r := range server {
			merged = append(merged, r.Clone())
		}

	default:
		index := make(map[string]int, len(server))
		for i, r := range server {
			index[r.DeviceID] = i
		}

		seen := make(map[string]bool, len(server))
		for _, r := range cached {
			if r.IsDemo() {
				merged = append(merged, r.Clone())
				continue
			}
			i, ok := index[r.DeviceID]
			if !ok {
				continue
			}
			seen[r.DeviceID] = true
			merged = append(merged, mergeRoom(r, server[i]))
		}

		for _, r := range server {
			if !seen[r.DeviceID] {
				merged = append(merged, r.Clone())
			}
		}
	}

	for i := range merged {
		normalizeRoom(&merged[i])
		merged[i].DisplayOrder = i
	}
	return merged
}

func mergeRoom(cached, server domain.Room) domain.Room {
	out := cached.Clone()
	out.Name = server.Name
	out.Icon = server.Icon

	index := make(map[string]int, len(server.Switches))
	for i, sw := range server.Switches {
		index[sw.ID] = i
	}

	seen := make(map[string]bool, len(server.Switches))
	for i := range out.Switches {
		j, ok := index[out.Switches[i].ID]
		if !ok {
			continue
		}
		seen[out.Switches[i].ID] = true
		out.Switches[i].Name = server.Switches[j].Name
		out.Switches[i].Icon = server.Switches[j].Icon
		out.Switches[i].State = server.Switches[j].State
	}

	for _, sw := range server.Switches {
		if !seen[sw.ID] {
			out.Switches = append(out.Switches, sw.Clone())
		}
	}
	return out
}

// normalizeRoom routes every switch through its containing room.
func normalizeRoom(r *domain.Room) {
	if r.Switches == nil {
		r.Switches = []domain.Switch{}
	}
	for i := range r.Switches {
		r.Switches[i].OwnerDeviceID = r.DeviceID
	}
}

func sortedByOrder(rooms []domain.Room) []domain.Room {
	out := slices.Clone(rooms)
	slices.SortStableFunc(out, func(a, b domain.Room) int {
		return cmp.Compare(a.DisplayOrder, b.DisplayOrder)
	})
	return out
}
