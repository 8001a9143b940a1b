package domain

type RoomKind string

const (
	RoomKindReal RoomKind = "real"
	RoomKindDemo RoomKind = "demo"
)

// DemoDeviceID is the device id that marks a locally synthesized room.
const DemoDeviceID = "demo"

type Room struct {
	DeviceID     string   `json:"esp_id"`
	Name         string   `json:"name"`
	Icon         string   `json:"icon"`
	Switches     []Switch `json:"switches"`
	DisplayOrder int      `json:"order"`
	Kind         RoomKind `json:"type,omitempty"`
}

// IsDemo reports whether the room must stay out of all API and socket traffic.
func (r Room) IsDemo() bool {
	return r.Kind == RoomKindDemo || r.DeviceID == DemoDeviceID
}

// Clone returns a deep copy so callers can never alias store-owned switches.
func (r Room) Clone() Room {
	out := r
	if r.Switches != nil {
		out.Switches = make([]Switch, len(r.Switches))
		for i, sw := range r.Switches {
			out.Switches[i] = sw.Clone()
		}
	}
	return out
}

func (r Room) SwitchIndex(switchID string) int {
	for i := range r.Switches {
		if r.Switches[i].ID == switchID {
			return i
		}
	}
	return -1
}

type RoomPatch struct {
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

func (p RoomPatch) Apply(r *Room) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Icon != nil {
		r.Icon = *p.Icon
	}
}

func (p RoomPatch) Empty() bool {
	return p.Name == nil && p.Icon == nil
}

func CloneRooms(rooms []Room) []Room {
	out := make([]Room, len(rooms))
	for i, r := range rooms {
		out[i] = r.Clone()
	}
	return out
}
