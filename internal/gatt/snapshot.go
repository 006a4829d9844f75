package gatt

import "encoding/json"

// ServiceSnapshot is the serializable view of a service tree, used for
// diagnostics and for comparing trees in tests.
type ServiceSnapshot struct {
	UUID            string                   `json:"uuid"`
	Name            string                   `json:"name,omitempty"`
	Primary         bool                     `json:"primary"`
	Characteristics []CharacteristicSnapshot `json:"characteristics"`
}

// CharacteristicSnapshot is the serializable view of a characteristic.
type CharacteristicSnapshot struct {
	UUID        string               `json:"uuid"`
	Name        string               `json:"name,omitempty"`
	Value       string               `json:"value,omitempty"`
	Properties  []string             `json:"properties"`
	Permissions []string             `json:"permissions"`
	Descriptors []DescriptorSnapshot `json:"descriptors"`
}

// DescriptorSnapshot is the serializable view of a descriptor.
type DescriptorSnapshot struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name,omitempty"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Snapshot returns the serializable view of s.
func (s *Service) Snapshot() ServiceSnapshot {
	snap := ServiceSnapshot{
		UUID:            s.uuid.String(),
		Name:            s.KnownName(),
		Primary:         s.primary,
		Characteristics: make([]CharacteristicSnapshot, 0, len(s.characteristics)),
	}
	for _, c := range s.characteristics {
		cs := CharacteristicSnapshot{
			UUID:        c.uuid.String(),
			Name:        c.KnownName(),
			Value:       c.value.String(),
			Properties:  orEmpty(c.properties.Names()),
			Permissions: orEmpty(c.permissions.Names()),
			Descriptors: make([]DescriptorSnapshot, 0, len(c.descriptors)),
		}
		for _, d := range c.descriptors {
			cs.Descriptors = append(cs.Descriptors, DescriptorSnapshot{
				UUID:  d.uuid.String(),
				Name:  d.KnownName(),
				Kind:  d.value.Kind().String(),
				Value: d.value.String(),
			})
		}
		snap.Characteristics = append(snap.Characteristics, cs)
	}
	return snap
}

// MarshalJSON encodes the service tree.
func (s *Service) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
