package gatt

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/srg/blimp/internal/bledb"
)

// UUID is a canonical attribute identifier: upper-case hex, 4 or 8 digits for
// SIG-assigned short forms, dashed 36-character form for 128-bit UUIDs.
type UUID string

// String returns the canonical form.
func (u UUID) String() string {
	return string(u)
}

// Len returns the UUID width in bytes: 2, 4 or 16.
func (u UUID) Len() int {
	switch len(u) {
	case 4:
		return 2
	case 8:
		return 4
	default:
		return 16
	}
}

// KnownName returns the SIG-assigned name of u as a service, characteristic or
// descriptor, in that order of preference.
func (u UUID) KnownName() string {
	s := string(u)
	if name := bledb.LookupService(s); name != "" {
		return name
	}
	if name := bledb.LookupCharacteristic(s); name != "" {
		return name
	}
	return bledb.LookupDescriptor(s)
}

// ParseUUID validates s against the attribute UUID grammar and returns its canonical form.
//
// Accepted: 16-bit ("180D", "0x180D"), 32-bit ("0001180D") and 128-bit UUIDs in any
// notation understood by github.com/google/uuid. 32-bit values with a zero upper
// half and 128-bit UUIDs derived from the Bluetooth SIG base shorten to their
// 16-bit form.
func ParseUUID(s string) (UUID, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return "", &Error{Kind: InvalidUUID, Msg: "empty UUID"}
	}

	short := raw
	if strings.HasPrefix(short, "0x") || strings.HasPrefix(short, "0X") {
		short = short[2:]
	}
	if (len(short) == 4 || len(short) == 8) && isHex(short) {
		short = strings.ToUpper(short)
		if len(short) == 8 && strings.HasPrefix(short, "0000") {
			short = short[4:]
		}
		return UUID(short), nil
	}

	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", &Error{Kind: InvalidUUID, Msg: fmt.Sprintf("%q", s), Err: err}
	}

	canonical := strings.ToUpper(parsed.String())
	if normalized := bledb.NormalizeUUID(canonical); len(normalized) == 4 {
		return UUID(strings.ToUpper(normalized)), nil
	}
	return UUID(canonical), nil
}

// MustParseUUID is like ParseUUID but panics on malformed input.
// Intended for constants and tests.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
