package gatt

import "fmt"

// InlineCharacteristic is the characteristic record a service declaration may
// carry directly. All three fields are required when the record is present.
type InlineCharacteristic struct {
	Value       any
	Properties  *PropertyMask
	Permissions *PermissionMask
}

// ServiceOptions declares a service.
type ServiceOptions struct {
	UUID            string                // required
	Primary         *bool                 // required
	Inline          *InlineCharacteristic // optional; becomes the first characteristic
	Characteristics []*Characteristic     // appended after the inline one, in order
}

// Service is a collection of characteristics. Immutable once built.
type Service struct {
	uuid            UUID
	primary         bool
	characteristics []*Characteristic
}

// NewService validates opts and builds a Service. It does not register it;
// see Registry.Register.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.UUID == "" {
		return nil, missingField("uuid")
	}
	if opts.Primary == nil {
		return nil, missingField("primary")
	}
	u, err := ParseUUID(opts.UUID)
	if err != nil {
		return nil, err
	}

	seen := make(map[*Characteristic]int, len(opts.Characteristics))
	for i, c := range opts.Characteristics {
		field := fmt.Sprintf("characteristics[%d]", i)
		if c == nil {
			return nil, missingField(field)
		}
		if c.owner != nil {
			return nil, &Error{Kind: AlreadyAttached, Field: field,
				Msg: fmt.Sprintf("characteristic %s belongs to service %s", c.uuid, c.owner.uuid)}
		}
		if j, dup := seen[c]; dup {
			return nil, &Error{Kind: AlreadyAttached, Field: field,
				Msg: fmt.Sprintf("characteristic %s is already listed at characteristics[%d]", c.uuid, j)}
		}
		seen[c] = i
	}

	chars := make([]*Characteristic, 0, len(opts.Characteristics)+1)
	if opts.Inline != nil {
		inline, err := buildInline(u, opts.Inline)
		if err != nil {
			return nil, err
		}
		chars = append(chars, inline)
	}
	chars = append(chars, opts.Characteristics...)

	s := &Service{uuid: u, primary: *opts.Primary, characteristics: chars}
	s.attach()
	return s, nil
}

func (s *Service) attach() {
	for _, c := range s.characteristics {
		c.owner = s
	}
}

// Detach releases the characteristics of a service that was built but never
// registered, so they can be listed in another service. Registry.Register
// detaches on failure; calling it on a registered service is a caller error.
func (s *Service) Detach() {
	for _, c := range s.characteristics {
		if c.owner == s {
			c.owner = nil
		}
	}
}

func buildInline(u UUID, in *InlineCharacteristic) (*Characteristic, error) {
	switch {
	case in.Value == nil:
		return nil, missingField("data")
	case in.Properties == nil:
		return nil, missingField("properties")
	case in.Permissions == nil:
		return nil, missingField("permissions")
	}
	return NewCharacteristic(CharacteristicOptions{
		UUID:        u.String(),
		Value:       in.Value,
		Properties:  *in.Properties,
		Permissions: *in.Permissions,
	})
}

// UUID returns the service type.
func (s *Service) UUID() UUID {
	return s.uuid
}

// IsPrimary reports whether the service is primary.
func (s *Service) IsPrimary() bool {
	return s.primary
}

// Characteristics returns the characteristics in construction order.
func (s *Service) Characteristics() []*Characteristic {
	return append([]*Characteristic(nil), s.characteristics...)
}

// KnownName returns the SIG name of the service type, or "".
func (s *Service) KnownName() string {
	return s.uuid.KnownName()
}
