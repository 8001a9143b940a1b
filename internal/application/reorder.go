package application

import (
	"fmt"
	"slices"

	"switchstack/internal/domain"
)

// move removes the item at from and reinserts it at to.
func move[T any](items []T, from, to int) ([]T, error) {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("%w: move %d -> %d in %d items", domain.ErrIndexOutOfRange, from, to, n)
	}

	out := slices.Clone(items)
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item), nil
}

func renumberRooms(rooms []domain.Room) {
	for i := range rooms {
		rooms[i].DisplayOrder = i
	}
}

func renumberSwitches(switches []domain.Switch) {
	for i := range switches {
		order := i
		switches[i].DisplayOrder = &order
	}
}
