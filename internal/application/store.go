package application

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"switchstack/internal/domain"
	"switchstack/internal/observer"
)

// Store is the single owner of the room and switch collection. Every
// mutation runs under one lock, is written through to the cache and then
// published to subscribers.
type Store struct {
	api      RoomAPI
	cache    Cache
	sender   Sender
	notifier Notifier
	logger   *slog.Logger

	mu      sync.RWMutex
	rooms   []domain.Room
	loading bool
	epoch   uint64 // bumped by Clear; snapshots fetched before it are dropped

	refreshMu sync.Mutex
	changes   observer.Registry[[]domain.Room]
}

func NewStore(api RoomAPI, cache Cache, sender Sender, notifier Notifier, logger *slog.Logger) *Store {
	return &Store{
		api:      api,
		cache:    cache,
		sender:   sender,
		notifier: notifier,
		logger:   logger,
		loading:  true,
	}
}

// Hydrate replaces the in-memory rooms with the cached snapshot.
func (s *Store) Hydrate(ctx context.Context) error {
	rooms, err := s.loadCached(ctx)
	if err != nil {
		s.setLoading(false)
		return fmt.Errorf("loading cached rooms: %w", err)
	}

	s.mu.Lock()
	s.rooms = rooms
	s.loading = false
	snapshot := domain.CloneRooms(s.rooms)
	s.mu.Unlock()

	s.logger.Info("rooms loaded from cache", "rooms", len(rooms))
	s.changes.Notify(snapshot)
	return nil
}

// Refresh fetches the server snapshot and reconciles it with the cached
// rooms. Concurrent calls are serialized. A snapshot that arrives after
// Clear belongs to the previous session and is discarded.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	epoch := s.epoch
	s.loading = true
	s.mu.Unlock()
	defer s.setLoading(false)

	s.logger.Info("fetching rooms from server")

	server, err := s.api.ListRooms(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.report(ctx, "Failed to load rooms", err)
		}
		return fmt.Errorf("fetching rooms: %w", err)
	}

	return s.mutate(ctx, func() (bool, error) {
		if s.epoch != epoch {
			s.logger.Info("discarding snapshot fetched before clear", "server", len(server))
			return false, nil
		}
		s.rooms = Reconcile(s.rooms, server)
		s.logger.Info("rooms reconciled", "server", len(server), "rooms", len(s.rooms))
		return true, nil
	})
}

func (s *Store) Rooms() []domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneRooms(s.rooms)
}

func (s *Store) Room(deviceID string) (domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.roomIndexLocked(deviceID)
	if i < 0 {
		return domain.Room{}, false
	}
	return s.rooms[i].Clone(), true
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Subscribe registers h to receive a copy of the rooms after every change.
func (s *Store) Subscribe(h func([]domain.Room)) observer.ID {
	return s.changes.Add(h)
}

func (s *Store) Unsubscribe(id observer.ID) bool {
	return s.changes.Remove(id)
}

// AddRoom inserts the room locally and then creates it on the server. A
// room with the demo device id stays local and gets sample switches.
func (s *Store) AddRoom(ctx context.Context, deviceID, name, icon string) (domain.Room, error) {
	deviceID = strings.TrimSpace(deviceID)
	name = strings.TrimSpace(name)
	if deviceID == "" || name == "" {
		return domain.Room{}, errors.New("device id and name are required")
	}

	room := domain.Room{
		DeviceID: deviceID,
		Name:     name,
		Icon:     icon,
		Switches: []domain.Switch{},
		Kind:     domain.RoomKindReal,
	}
	if deviceID == domain.DemoDeviceID {
		room.Kind = domain.RoomKindDemo
		room.Switches = demoSwitches(deviceID)
	}

	err := s.mutate(ctx, func() (bool, error) {
		if s.roomIndexLocked(deviceID) >= 0 {
			return false, fmt.Errorf("%w: %s", domain.ErrRoomExists, deviceID)
		}
		room.DisplayOrder = len(s.rooms)
		s.rooms = append(s.rooms, room.Clone())
		return true, nil
	})
	if err != nil {
		return domain.Room{}, err
	}

	if room.IsDemo() {
		s.notify(ctx, fmt.Sprintf("Room %q created successfully", name))
		return room, nil
	}

	created, err := s.api.CreateRoom(ctx, deviceID, name, icon)
	if err != nil {
		s.report(ctx, "Failed to create room", err)
		return room, err
	}
	if created.DeviceID == "" {
		created.DeviceID = deviceID
	}

	_ = s.mutate(ctx, func() (bool, error) {
		i := s.roomIndexLocked(deviceID)
		if i < 0 {
			return false, nil
		}
		created.DisplayOrder = s.rooms[i].DisplayOrder
		normalizeRoom(&created)
		s.rooms[i] = created.Clone()
		return true, nil
	})

	s.notify(ctx, fmt.Sprintf("Room %q created successfully", name))
	return created, nil
}

// UpdateRoom applies the patch locally first. A failed remote update is
// reported and the local patch stays.
func (s *Store) UpdateRoom(ctx context.Context, deviceID string, patch domain.RoomPatch) error {
	var demo bool
	err := s.mutate(ctx, func() (bool, error) {
		i := s.roomIndexLocked(deviceID)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, deviceID)
		}
		patch.Apply(&s.rooms[i])
		demo = s.rooms[i].IsDemo()
		return !patch.Empty(), nil
	})
	if err != nil || demo || patch.Empty() {
		return err
	}

	if err := s.api.UpdateRoom(ctx, deviceID, patch); err != nil {
		s.report(ctx, "Failed to update room", err)
		return err
	}

	s.notify(ctx, "Room updated successfully")
	return nil
}

func (s *Store) UpdateSwitch(ctx context.Context, deviceID, switchID string, patch domain.SwitchPatch) error {
	var demo bool
	err := s.mutate(ctx, func() (bool, error) {
		ri, si, err := s.switchIndexLocked(deviceID, switchID)
		if err != nil {
			return false, err
		}
		patch.Apply(&s.rooms[ri].Switches[si])
		demo = s.rooms[ri].IsDemo()
		return !patch.Empty(), nil
	})
	if err != nil || demo || patch.Empty() {
		return err
	}

	if err := s.api.UpdateSwitch(ctx, deviceID, switchID, patch); err != nil {
		s.report(ctx, "Failed to update switch", err)
		return err
	}

	s.notify(ctx, "Switch updated successfully")
	return nil
}

// DeleteRoom removes the room only after the server confirms.
func (s *Store) DeleteRoom(ctx context.Context, deviceID string) error {
	room, ok := s.Room(deviceID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRoomNotFound, deviceID)
	}

	if !room.IsDemo() {
		if err := s.api.DeleteRoom(ctx, deviceID); err != nil {
			s.report(ctx, "Failed to delete room", err)
			return err
		}
	}

	err := s.mutate(ctx, func() (bool, error) {
		i := s.roomIndexLocked(deviceID)
		if i < 0 {
			return false, nil
		}
		s.rooms = slices.Delete(s.rooms, i, i+1)
		renumberRooms(s.rooms)
		return true, nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, fmt.Sprintf("Room %q deleted successfully", room.Name))
	return nil
}

// ReorderRooms moves the room at startIndex to endIndex and renumbers the
// display order of every room.
func (s *Store) ReorderRooms(ctx context.Context, startIndex, endIndex int) error {
	return s.mutate(ctx, func() (bool, error) {
		rooms, err := move(s.rooms, startIndex, endIndex)
		if err != nil {
			return false, err
		}
		if startIndex == endIndex {
			return false, nil
		}
		renumberRooms(rooms)
		s.rooms = rooms
		return true, nil
	})
}

func (s *Store) ReorderSwitches(ctx context.Context, deviceID string, startIndex, endIndex int) error {
	return s.mutate(ctx, func() (bool, error) {
		i := s.roomIndexLocked(deviceID)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, deviceID)
		}
		switches, err := move(s.rooms[i].Switches, startIndex, endIndex)
		if err != nil {
			return false, err
		}
		if startIndex == endIndex {
			return false, nil
		}
		renumberSwitches(switches)
		s.rooms[i].Switches = switches
		return true, nil
	})
}

// Toggle flips the switch locally and sends the desired state. If the
// command cannot be sent the flip is undone, since the server never saw it.
func (s *Store) Toggle(ctx context.Context, deviceID, switchID string) error {
	var sendErr error
	err := s.mutate(ctx, func() (bool, error) {
		ri, si, err := s.switchIndexLocked(deviceID, switchID)
		if err != nil {
			return false, err
		}
		room := &s.rooms[ri]
		sw := &room.Switches[si]

		desired := !sw.State
		sw.State = desired
		if room.IsDemo() {
			return true, nil
		}

		payload, err := json.Marshal(domain.ToggleCommand{
			DeviceID: sw.OwnerDeviceID,
			SwitchID: sw.ID,
			State:    desired,
		})
		if err != nil {
			sw.State = !desired
			return false, fmt.Errorf("encoding toggle: %w", err)
		}

		if err := s.sender.Send(payload); err != nil {
			sw.State = !desired
			sendErr = err
			return false, err
		}
		return true, nil
	})

	if sendErr != nil {
		msg := "Failed to toggle switch"
		if errors.Is(sendErr, domain.ErrNotConnected) {
			msg = "Not connected to server. Please try again later."
		}
		s.report(ctx, msg, sendErr)
	}
	return err
}

// HandleMessage applies an inbound switch update. Malformed messages are
// logged and dropped; error reports are surfaced without touching state.
func (s *Store) HandleMessage(data []byte) {
	ctx := context.Background()

	var update domain.SwitchUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		s.logger.Warn("dropping malformed message", "error", err, "bytes", len(data))
		return
	}

	if update.IsError() {
		s.logger.Warn("toggle rejected",
			"device_id", update.DeviceID,
			"switch_id", update.SwitchID,
			"message", update.Message,
		)
		s.notify(ctx, MsgToggleRejected+update.Message)
		return
	}

	_ = s.mutate(ctx, func() (bool, error) {
		ri, si, err := s.switchIndexLocked(update.DeviceID, update.SwitchID)
		if err != nil {
			s.logger.Debug("update for unknown switch",
				"device_id", update.DeviceID,
				"switch_id", update.SwitchID,
			)
			return false, nil
		}
		sw := &s.rooms[ri].Switches[si]
		if sw.State == update.State {
			return false, nil
		}
		sw.State = update.State
		return true, nil
	})
}

// Clear drops every room and the cached snapshot. Refreshes still in
// flight will not restore them.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.epoch++
	s.rooms = nil
	err := s.cache.Remove(ctx, RoomsKey)
	s.mu.Unlock()

	s.changes.Notify([]domain.Room{})
	if err != nil {
		return fmt.Errorf("removing cached rooms: %w", err)
	}
	return nil
}

// SeedDemo adds the demo room unless it already exists.
func (s *Store) SeedDemo(ctx context.Context) error {
	if _, ok := s.Room(domain.DemoDeviceID); ok {
		return nil
	}
	_, err := s.AddRoom(ctx, domain.DemoDeviceID, "Living Room", "house")
	if errors.Is(err, domain.ErrRoomExists) {
		return nil
	}
	return err
}

func (s *Store) ListRoomUsers(ctx context.Context, deviceID string) ([]domain.User, error) {
	if err := s.checkRemote(deviceID); err != nil {
		return nil, err
	}

	users, err := s.api.ListRoomUsers(ctx, deviceID)
	if err != nil {
		s.report(ctx, "Failed to load room users", err)
		return nil, err
	}
	return users, nil
}

func (s *Store) AddRoomUser(ctx context.Context, deviceID, email string) error {
	if err := s.checkRemote(deviceID); err != nil {
		return err
	}

	if err := s.api.AddRoomUser(ctx, deviceID, email); err != nil {
		s.report(ctx, "Failed to add user", err)
		return err
	}

	s.notify(ctx, fmt.Sprintf("User %s added", email))
	return nil
}

func (s *Store) RemoveRoomUser(ctx context.Context, deviceID, email string) error {
	if err := s.checkRemote(deviceID); err != nil {
		return err
	}

	if err := s.api.RemoveRoomUser(ctx, deviceID, email); err != nil {
		s.report(ctx, "Failed to remove user", err)
		return err
	}

	s.notify(ctx, fmt.Sprintf("User %s removed", email))
	return nil
}

func (s *Store) checkRemote(deviceID string) error {
	room, ok := s.Room(deviceID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRoomNotFound, deviceID)
	}
	if room.IsDemo() {
		return domain.ErrDemoRoom
	}
	return nil
}

// mutate runs fn under the write lock. When fn reports a change the rooms
// are written to the cache and published.
func (s *Store) mutate(ctx context.Context, fn func() (bool, error)) error {
	s.mu.Lock()
	changed, err := fn()
	var snapshot []domain.Room
	if changed {
		s.persistLocked(ctx)
		snapshot = domain.CloneRooms(s.rooms)
	}
	s.mu.Unlock()

	if changed {
		s.changes.Notify(snapshot)
	}
	return err
}

func (s *Store) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.rooms)
	if err != nil {
		s.logger.Error("encoding rooms", "error", err)
		return
	}
	if err := s.cache.Save(ctx, RoomsKey, string(data)); err != nil {
		s.logger.Error("saving rooms to cache", "error", err)
	}
}

func (s *Store) loadCached(ctx context.Context) ([]domain.Room, error) {
	raw, ok, err := s.cache.Load(ctx, RoomsKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var rooms []domain.Room
	if err := json.Unmarshal([]byte(raw), &rooms); err != nil {
		s.logger.Warn("discarding unreadable room cache", "error", err)
		if err := s.cache.Remove(ctx, RoomsKey); err != nil {
			s.logger.Warn("removing room cache", "error", err)
		}
		return nil, nil
	}

	slices.SortStableFunc(rooms, func(a, b domain.Room) int {
		return cmp.Compare(a.DisplayOrder, b.DisplayOrder)
	})
	for i := range rooms {
		normalizeRoom(&rooms[i])
	}
	return rooms, nil
}

func (s *Store) roomIndexLocked(deviceID string) int {
	for i := range s.rooms {
		if s.rooms[i].DeviceID == deviceID {
			return i
		}
	}
	return -1
}

func (s *Store) switchIndexLocked(deviceID, switchID string) (int, int, error) {
	ri := s.roomIndexLocked(deviceID)
	if ri < 0 {
		return -1, -1, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, deviceID)
	}
	si := s.rooms[ri].SwitchIndex(switchID)
	if si < 0 {
		return -1, -1, fmt.Errorf("%w: %s/%s", domain.ErrSwitchNotFound, deviceID, switchID)
	}
	return ri, si, nil
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) report(ctx context.Context, fallback string, err error) {
	s.logger.Error(strings.ToLower(fallback), "error", err)

	msg := fallback
	var remote *domain.RemoteCallError
	if errors.As(err, &remote) && remote.Message != "" {
		msg = remote.Message
	}
	s.notify(ctx, msg)
}

func (s *Store) notify(ctx context.Context, message string) {
	if err := s.notifier.Notify(ctx, message); err != nil {
		s.logger.Warn("notifying", "error", err)
	}
}

func demoSwitches(deviceID string) []domain.Switch {
	names := []struct{ name, icon string }{
		{"Main Light", "lightbulb"},
		{"TV", "monitor"},
	}

	switches := make([]domain.Switch, len(names))
	for i, n := range names {
		order := i
		switches[i] = domain.Switch{
			ID:            "demo-" + uuid.NewString(),
			OwnerDeviceID: deviceID,
			Name:          n.name,
			Icon:          n.icon,
			DisplayOrder:  &order,
		}
	}
	return switches
}
