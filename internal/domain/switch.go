package domain

type Switch struct {
	ID            string `json:"_id"`
	OwnerDeviceID string `json:"esp"`
	Name          string `json:"name"`
	Icon          string `json:"icon"`
	State         bool   `json:"state"`
	DisplayOrder  *int   `json:"order,omitempty"`
}

func (s Switch) Clone() Switch {
	if s.DisplayOrder != nil {
		order := *s.DisplayOrder
		s.DisplayOrder = &order
	}
	return s
}

type SwitchPatch struct {
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

func (p SwitchPatch) Apply(s *Switch) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Icon != nil {
		s.Icon = *p.Icon
	}
}

func (p SwitchPatch) Empty() bool {
	return p.Name == nil && p.Icon == nil
}
