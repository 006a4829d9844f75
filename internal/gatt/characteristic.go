package gatt

import "fmt"

// CharacteristicOptions declares a characteristic.
type CharacteristicOptions struct {
	UUID        string         // required
	Value       any            // optional static value; see EncodeValue
	Properties  PropertyMask   // passed through unvalidated
	Permissions PermissionMask // passed through unvalidated
	Descriptors []*Descriptor  // attached after the auto-descriptor, in order
}

// Characteristic is a single data point of a service. Immutable once built.
//
// Every characteristic carries an auto-descriptor with its own UUID and value as
// the first descriptor. Characteristics that notify or indicate should not carry
// a static value; the platform decides what to do with one, the builder does not.
type Characteristic struct {
	uuid        UUID
	value       Value
	properties  PropertyMask
	permissions PermissionMask
	descriptors []*Descriptor
	owner       *Service
}

// NewCharacteristic validates opts and builds a Characteristic, attaching the
// auto-descriptor followed by opts.Descriptors.
func NewCharacteristic(opts CharacteristicOptions) (*Characteristic, error) {
	u, err := ParseUUID(opts.UUID)
	if err != nil {
		return nil, err
	}

	var value Value
	if opts.Value != nil {
		if value, err = EncodeValue(opts.Value); err != nil {
			return nil, err
		}
	}

	seen := make(map[*Descriptor]int, len(opts.Descriptors))
	for i, d := range opts.Descriptors {
		field := fmt.Sprintf("descriptors[%d]", i)
		if d == nil {
			return nil, missingField(field)
		}
		if d.owner != nil {
			return nil, &Error{Kind: AlreadyAttached, Field: field,
				Msg: fmt.Sprintf("descriptor %s belongs to characteristic %s", d.uuid, d.owner.uuid)}
		}
		if j, dup := seen[d]; dup {
			return nil, &Error{Kind: AlreadyAttached, Field: field,
				Msg: fmt.Sprintf("descriptor %s is already listed at descriptors[%d]", d.uuid, j)}
		}
		seen[d] = i
	}

	c := &Characteristic{
		uuid:        u,
		value:       value,
		properties:  opts.Properties,
		permissions: opts.Permissions,
	}

	auto := &Descriptor{uuid: u, value: value, owner: c}
	if auto.value.IsEmpty() {
		auto.value = Value{kind: KindBytes, data: []byte{}}
	}
	c.descriptors = make([]*Descriptor, 0, len(opts.Descriptors)+1)
	c.descriptors = append(c.descriptors, auto)
	for _, d := range opts.Descriptors {
		d.owner = c
		c.descriptors = append(c.descriptors, d)
	}
	return c, nil
}

// UUID returns the characteristic type.
func (c *Characteristic) UUID() UUID {
	return c.uuid
}

// Value returns the static value; empty when the characteristic has none.
func (c *Characteristic) Value() Value {
	return c.value
}

// Properties returns the property mask.
func (c *Characteristic) Properties() PropertyMask {
	return c.properties
}

// Permissions returns the permission mask.
func (c *Characteristic) Permissions() PermissionMask {
	return c.permissions
}

// Descriptors returns the descriptors in construction order, auto-descriptor first.
func (c *Characteristic) Descriptors() []*Descriptor {
	return append([]*Descriptor(nil), c.descriptors...)
}

// KnownName returns the SIG name of the characteristic type, or "".
func (c *Characteristic) KnownName() string {
	return c.uuid.KnownName()
}

// Service returns the service the characteristic belongs to, nil if detached.
func (c *Characteristic) Service() *Service {
	return c.owner
}
