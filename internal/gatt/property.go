package gatt

import (
	"fmt"
	"strconv"
	"strings"
)

// PropertyMask is the set of operations a central may perform on a characteristic.
// Bit values match CoreBluetooth's CBCharacteristicProperties; the low eight bits
// are also the GATT characteristic declaration properties.
type PropertyMask uint32

const (
	PropBroadcast                  PropertyMask = 1 << 0
	PropRead                       PropertyMask = 1 << 1
	PropWriteWithoutResponse       PropertyMask = 1 << 2
	PropWrite                      PropertyMask = 1 << 3
	PropNotify                     PropertyMask = 1 << 4
	PropIndicate                   PropertyMask = 1 << 5
	PropAuthenticatedSignedWrites  PropertyMask = 1 << 6
	PropExtendedProperties         PropertyMask = 1 << 7
	PropNotifyEncryptionRequired   PropertyMask = 1 << 8
	PropIndicateEncryptionRequired PropertyMask = 1 << 9
)

// propertyNames lists every property bit in declaration order.
var propertyNames = []struct {
	bit  PropertyMask
	name string
}{
	{PropBroadcast, "broadcast"},
	{PropRead, "read"},
	{PropWriteWithoutResponse, "write-without-response"},
	{PropWrite, "write"},
	{PropNotify, "notify"},
	{PropIndicate, "indicate"},
	{PropAuthenticatedSignedWrites, "authenticated-signed-writes"},
	{PropExtendedProperties, "extended-properties"},
	{PropNotifyEncryptionRequired, "notify-encryption-required"},
	{PropIndicateEncryptionRequired, "indicate-encryption-required"},
}

// Has reports whether every bit of p is set in m.
func (m PropertyMask) Has(p PropertyMask) bool {
	return m&p == p
}

// Names returns the names of the set bits, in bit order.
func (m PropertyMask) Names() []string {
	var names []string
	for _, p := range propertyNames {
		if m&p.bit != 0 {
			names = append(names, p.name)
		}
	}
	return names
}

func (m PropertyMask) String() string {
	if m == 0 {
		return "none"
	}
	return strings.Join(m.Names(), ",")
}

// ParsePropertyMask parses a comma-separated list of property names
// (e.g. "read,notify") or a decimal / 0x-prefixed number.
func ParsePropertyMask(s string) (PropertyMask, error) {
	bits, err := parseMask(s, func(name string) (uint32, bool) {
		for _, p := range propertyNames {
			if p.name == name {
				return uint32(p.bit), true
			}
		}
		return 0, false
	})
	return PropertyMask(bits), err
}

// parseMask is shared by the property and permission parsers.
func parseMask(s string, lookup func(string) (uint32, bool)) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return uint32(n), nil
	}

	var mask uint32
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		name = strings.ReplaceAll(name, "_", "-")
		if name == "" {
			continue
		}
		bit, ok := lookup(name)
		if !ok {
			return 0, &Error{Kind: InvalidValueKind, Msg: fmt.Sprintf("unknown flag %q", part)}
		}
		mask |= bit
	}
	return mask, nil
}
