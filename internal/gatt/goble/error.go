package goble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/srg/blimp/internal/gatt"
)

var (
	ErrBluetoothOff        = errors.New("bluetooth is turned off")
	ErrUnauthorized        = errors.New("bluetooth access is not authorized")
	ErrUnsupportedPlatform = errors.New("bluetooth LE is not supported on this platform")
	ErrNotReady            = errors.New("bluetooth is not ready")
	ErrDuplicateService    = errors.New("service already registered")
	ErrSecondaryService    = errors.New("secondary services are not supported")
)

// NormalizeError maps known go-ble error messages to the package sentinels and the
// manager state they imply. Unrecognized errors are returned unchanged with StateUnknown.
func NormalizeError(err error) (gatt.ManagerState, error) {
	if err == nil {
		return gatt.StatePoweredOn, nil
	}
	if errors.Is(err, ErrBluetoothOff) {
		return gatt.StatePoweredOff, err
	}
	if errors.Is(err, ErrUnsupportedPlatform) {
		return gatt.StateUnsupported, err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "central manager has invalid state"):
		state := stateFromInvalidStateMessage(msg)
		switch state {
		case gatt.StatePoweredOff:
			return state, fmt.Errorf("%w: %v", ErrBluetoothOff, err)
		case gatt.StateUnauthorized:
			return state, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case gatt.StateUnsupported:
			return state, fmt.Errorf("%w: %v", ErrUnsupportedPlatform, err)
		default:
			return state, fmt.Errorf("%w: %v", ErrNotReady, err)
		}
	case strings.Contains(msg, "bluetooth is turned off"), strings.Contains(msg, "powered off"):
		return gatt.StatePoweredOff, fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case strings.Contains(msg, "not authorized"), strings.Contains(msg, "operation not permitted"):
		return gatt.StateUnauthorized, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case strings.Contains(msg, "not supported"), strings.Contains(msg, "no such device"):
		return gatt.StateUnsupported, fmt.Errorf("%w: %v", ErrUnsupportedPlatform, err)
	default:
		return gatt.StateUnknown, err
	}
}

// stateFromInvalidStateMessage extracts the "have=N" state from go-ble's darwin
// error, e.g. "central manager has invalid state: have=4 want=5: is Bluetooth turned on?".
func stateFromInvalidStateMessage(msg string) gatt.ManagerState {
	i := strings.Index(msg, "have=")
	if i < 0 || i+len("have=") >= len(msg) {
		return gatt.StateUnknown
	}
	d := msg[i+len("have=")]
	if d < '0' || d > '5' {
		return gatt.StateUnknown
	}
	return gatt.ManagerState(d - '0')
}
