package domain

// StatusError marks an inbound message that reports a failed toggle.
const StatusError = "error"

// ToggleCommand is sent over the real-time connection to request a switch state.
type ToggleCommand struct {
	DeviceID string `json:"deviceId"`
	SwitchID string `json:"switchId"`
	State    bool   `json:"state"`
}

// SwitchUpdate is a confirmation or broadcast of a switch's authoritative state.
type SwitchUpdate struct {
	DeviceID string `json:"deviceId"`
	SwitchID string `json:"switchId"`
	State    bool   `json:"state"`
	Status   string `json:"status,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (u SwitchUpdate) IsError() bool {
	return u.Status == StatusError
}
