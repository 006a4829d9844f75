package gatt

import "strings"

// PermissionMask is the access control the platform enforces on an attribute value.
// Bit values match CoreBluetooth's CBAttributePermissions.
type PermissionMask uint32

const (
	PermReadable                PermissionMask = 1 << 0
	PermWriteable               PermissionMask = 1 << 1
	PermReadEncryptionRequired  PermissionMask = 1 << 2
	PermWriteEncryptionRequired PermissionMask = 1 << 3
)

var permissionNames = []struct {
	bit  PermissionMask
	name string
}{
	{PermReadable, "readable"},
	{PermWriteable, "writeable"},
	{PermReadEncryptionRequired, "read-encryption-required"},
	{PermWriteEncryptionRequired, "write-encryption-required"},
}

// Has reports whether every bit of p is set in m.
func (m PermissionMask) Has(p PermissionMask) bool {
	return m&p == p
}

// Names returns the names of the set bits, in bit order.
func (m PermissionMask) Names() []string {
	var names []string
	for _, p := range permissionNames {
		if m&p.bit != 0 {
			names = append(names, p.name)
		}
	}
	return names
}

func (m PermissionMask) String() string {
	if m == 0 {
		return "none"
	}
	return strings.Join(m.Names(), ",")
}

// ParsePermissionMask parses a comma-separated list of permission names
// (e.g. "readable,writeable") or a number.
func ParsePermissionMask(s string) (PermissionMask, error) {
	bits, err := parseMask(s, func(name string) (uint32, bool) {
		name = strings.Replace(name, "writable", "writeable", 1)
		for _, p := range permissionNames {
			if p.name == name {
				return uint32(p.bit), true
			}
		}
		return 0, false
	})
	return PermissionMask(bits), err
}
