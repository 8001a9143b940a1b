package application_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"switchstack/internal/application"
	"switchstack/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]string)}
}

func (c *memoryCache) Load(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memoryCache) Save(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) rooms(t *testing.T) []domain.Room {
	t.Helper()
	raw, ok, _ := c.Load(context.Background(), application.RoomsKey)
	if !ok {
		return nil
	}
	var rooms []domain.Room
	if err := json.Unmarshal([]byte(raw), &rooms); err != nil {
		t.Fatalf("decoding cached rooms: %v", err)
	}
	return rooms
}

type fakeAPI struct {
	mu    sync.Mutex
	rooms []domain.Room
	users []domain.User
	err   error
	calls []string

	// listing, when set, receives a value as each ListRooms call starts;
	// the call then waits for gate to close or its context to end.
	listing   chan struct{}
	gate      chan struct{}
	active    int
	maxActive int
}

// holdListRooms makes ListRooms block until the returned channel is closed.
func (a *fakeAPI) holdListRooms() chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listing = make(chan struct{}, 8)
	a.gate = make(chan struct{})
	return a.gate
}

func (a *fakeAPI) peakListRooms() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxActive
}

func (a *fakeAPI) record(call string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
	return a.err
}

func (a *fakeAPI) callLog() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *fakeAPI) ListRooms(ctx context.Context) ([]domain.Room, error) {
	if err := a.record("ListRooms"); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.active++
	a.maxActive = max(a.maxActive, a.active)
	listing, gate := a.listing, a.gate
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.active--
		a.mu.Unlock()
	}()

	if gate != nil {
		listing <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.CloneRooms(a.rooms), nil
}

func (a *fakeAPI) CreateRoom(_ context.Context, deviceID, name, icon string) (domain.Room, error) {
	if err := a.record("CreateRoom " + deviceID); err != nil {
		return domain.Room{}, err
	}
	return domain.Room{
		DeviceID: deviceID,
		Name:     name,
		Icon:     icon,
		Switches: []domain.Switch{{ID: "sw-1", Name: "Switch 1"}},
	}, nil
}

func (a *fakeAPI) UpdateRoom(_ context.Context, deviceID string, _ domain.RoomPatch) error {
	return a.record("UpdateRoom " + deviceID)
}

func (a *fakeAPI) DeleteRoom(_ context.Context, deviceID string) error {
	return a.record("DeleteRoom " + deviceID)
}

func (a *fakeAPI) UpdateSwitch(_ context.Context, deviceID, switchID string, _ domain.SwitchPatch) error {
	return a.record("UpdateSwitch " + deviceID + "/" + switchID)
}

func (a *fakeAPI) ListRoomUsers(_ context.Context, deviceID string) ([]domain.User, error) {
	if err := a.record("ListRoomUsers " + deviceID); err != nil {
		return nil, err
	}
	return a.users, nil
}

func (a *fakeAPI) AddRoomUser(_ context.Context, deviceID, email string) error {
	return a.record("AddRoomUser " + deviceID + " " + email)
}

func (a *fakeAPI) RemoveRoomUser(_ context.Context, deviceID, email string) error {
	return a.record("RemoveRoomUser " + deviceID + " " + email)
}

type fakeSender struct {
	mu        sync.Mutex
	connected bool
	sent      []domain.ToggleCommand
}

func (s *fakeSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return domain.ErrNotConnected
	}
	var cmd domain.ToggleCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return err
	}
	s.sent = append(s.sent, cmd)
	return nil
}

func (s *fakeSender) commands() []domain.ToggleCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ToggleCommand(nil), s.sent...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func (n *recordingNotifier) has(message string) bool {
	for _, m := range n.all() {
		if m == message {
			return true
		}
	}
	return false
}

type storeFixture struct {
	store    *application.Store
	api      *fakeAPI
	cache    *memoryCache
	sender   *fakeSender
	notifier *recordingNotifier
}

// newStoreFixture hydrates a store from cached rooms.
func newStoreFixture(t *testing.T, cached []domain.Room) *storeFixture {
	t.Helper()

	f := &storeFixture{
		api:      &fakeAPI{},
		cache:    newMemoryCache(),
		sender:   &fakeSender{connected: true},
		notifier: &recordingNotifier{},
	}

	if cached != nil {
		data, err := json.Marshal(cached)
		if err != nil {
			t.Fatalf("encoding rooms: %v", err)
		}
		f.cache.data[application.RoomsKey] = string(data)
	}

	f.store = application.NewStore(f.api, f.cache, f.sender, f.notifier, discardLogger())
	if err := f.store.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	return f
}

func room(deviceID string, order int, switches ...domain.Switch) domain.Room {
	for i := range switches {
		switches[i].OwnerDeviceID = deviceID
	}
	if switches == nil {
		switches = []domain.Switch{}
	}
	return domain.Room{
		DeviceID:     deviceID,
		Name:         "Room " + deviceID,
		Icon:         "house",
		DisplayOrder: order,
		Switches:     switches,
	}
}

func sw(id, name string, state bool) domain.Switch {
	return domain.Switch{ID: id, Name: name, Icon: "lightbulb", State: state}
}
