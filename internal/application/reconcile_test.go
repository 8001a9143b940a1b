package application_test

import (
	"testing"

	"switchstack/internal/application"
	"switchstack/internal/domain"
)

func TestReconcile_ServerWinsOnOverlappingFields(t *testing.T) {
	cached := []domain.Room{
		room("esp1", 0, sw("s1", "A", false), sw("local", "Only Local", true)),
	}
	server := []domain.Room{
		room("esp1", 0, sw("s1", "B", true)),
	}
	server[0].Name = "Kitchen"

	merged := application.Reconcile(cached, server)

	if len(merged) != 1 {
		t.Fatalf("rooms: got %d, want 1", len(merged))
	}
	r := merged[0]
	if r.Name != "Kitchen" {
		t.Errorf("room name: got %s, want Kitchen", r.Name)
	}
	if len(r.Switches) != 2 {
		t.Fatalf("switches: got %d, want 2", len(r.Switches))
	}
	if !r.Switches[0].State || r.Switches[0].Name != "B" {
		t.Errorf("s1: got state=%v name=%s, want state=true name=B", r.Switches[0].State, r.Switches[0].Name)
	}
	if r.Switches[1].ID != "local" || !r.Switches[1].State {
		t.Errorf("cached-only switch lost: %+v", r.Switches[1])
	}
}

func TestReconcile_NewServerSwitchesAreAppended(t *testing.T) {
	cached := []domain.Room{room("esp1", 0, sw("s2", "Two", false), sw("s1", "One", false))}
	server := []domain.Room{room("esp1", 0, sw("s1", "One", true), sw("s2", "Two", false), sw("s3", "Three", true))}

	merged := application.Reconcile(cached, server)

	var ids []string
	for _, s := range merged[0].Switches {
		ids = append(ids, s.ID)
	}
	want := []string{"s2", "s1", "s3"}
	if len(ids) != len(want) {
		t.Fatalf("switch ids: got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("switch ids: got %v, want %v", ids, want)
		}
	}
}

func TestReconcile_EmptyServerSupersedesCache(t *testing.T) {
	cached := []domain.Room{room("esp1", 0), room("esp2", 1)}

	merged := application.Reconcile(cached, nil)

	if len(merged) != 0 {
		t.Errorf("rooms: got %d, want 0", len(merged))
	}
}

func TestReconcile_EmptyCacheAdoptsServer(t *testing.T) {
	server := []domain.Room{room("esp2", 1, sw("b", "B", true)), room("esp1", 0)}

	merged := application.Reconcile(nil, server)

	if len(merged) != 2 {
		t.Fatalf("rooms: got %d, want 2", len(merged))
	}
	if merged[0].DeviceID != "esp1" || merged[1].DeviceID != "esp2" {
		t.Errorf("order: got %s, %s", merged[0].DeviceID, merged[1].DeviceID)
	}
	if !merged[1].Switches[0].State {
		t.Error("server switch state not adopted")
	}
}

func TestReconcile_KeepsCachedOrderDropsAndAppends(t *testing.T) {
	cached := []domain.Room{room("b", 0), room("a", 1), room("gone", 2)}
	server := []domain.Room{room("a", 0), room("b", 1), room("new", 2)}

	merged := application.Reconcile(cached, server)

	want := []string{"b", "a", "new"}
	if len(merged) != len(want) {
		t.Fatalf("rooms: got %d, want %d", len(merged), len(want))
	}
	for i, id := range want {
		if merged[i].DeviceID != id {
			t.Errorf("position %d: got %s, want %s", i, merged[i].DeviceID, id)
		}
		if merged[i].DisplayOrder != i {
			t.Errorf("%s order: got %d, want %d", id, merged[i].DisplayOrder, i)
		}
	}
}

func TestReconcile_DemoRoomsSurvive(t *testing.T) {
	demo := room(domain.DemoDeviceID, 0, sw("d1", "Main Light", false))
	demo.Kind = domain.RoomKindDemo
	cached := []domain.Room{demo, room("esp1", 1)}

	for name, server := range map[string][]domain.Room{
		"empty server": nil,
		"with rooms":   {room("esp1", 0)},
	} {
		merged := application.Reconcile(cached, server)
		if len(merged) == 0 || merged[0].DeviceID != domain.DemoDeviceID {
			t.Errorf("%s: demo room dropped: %+v", name, merged)
		}
	}
}

func TestReconcile_NormalizesSwitchOwner(t *testing.T) {
	server := []domain.Room{{DeviceID: "esp1", Switches: []domain.Switch{{ID: "s1", OwnerDeviceID: "other"}}}}

	merged := application.Reconcile(nil, server)

	if got := merged[0].Switches[0].OwnerDeviceID; got != "esp1" {
		t.Errorf("owner: got %s, want esp1", got)
	}
}
