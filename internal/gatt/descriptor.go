package gatt

// DescriptorOptions declares a descriptor.
type DescriptorOptions struct {
	UUID  string // required
	Value any    // required; see EncodeValue
}

// Descriptor is metadata attached to a characteristic. Immutable once built.
type Descriptor struct {
	uuid  UUID
	value Value
	owner *Characteristic
}

// NewDescriptor validates opts and builds a Descriptor.
// Descriptors are not registrable on their own; attach them to a characteristic.
func NewDescriptor(opts DescriptorOptions) (*Descriptor, error) {
	u, err := ParseUUID(opts.UUID)
	if err != nil {
		return nil, err
	}
	if opts.Value == nil {
		return nil, missingField("value")
	}
	v, err := EncodeValue(opts.Value)
	if err != nil {
		return nil, err
	}
	return &Descriptor{uuid: u, value: v}, nil
}

// UUID returns the descriptor type.
func (d *Descriptor) UUID() UUID {
	return d.uuid
}

// Value returns the descriptor value.
func (d *Descriptor) Value() Value {
	return d.value
}

// KnownName returns the SIG name of the descriptor type, or "".
func (d *Descriptor) KnownName() string {
	return d.uuid.KnownName()
}

// Characteristic returns the characteristic the descriptor is attached to, nil if detached.
func (d *Descriptor) Characteristic() *Characteristic {
	return d.owner
}
