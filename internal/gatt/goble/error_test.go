package goble

import (
	"errors"
	"testing"

	"github.com/srg/blimp/internal/gatt"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantState gatt.ManagerState
		wantIs    error
	}{
		{"nil", nil, gatt.StatePoweredOn, nil},
		{"darwin powered off", errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"), gatt.StatePoweredOff, ErrBluetoothOff},
		{"darwin unauthorized", errors.New("central manager has invalid state: have=3 want=5"), gatt.StateUnauthorized, ErrUnauthorized},
		{"darwin unsupported", errors.New("central manager has invalid state: have=2 want=5"), gatt.StateUnsupported, ErrUnsupportedPlatform},
		{"darwin resetting", errors.New("central manager has invalid state: have=1 want=5"), gatt.StateResetting, ErrNotReady},
		{"turned off", errors.New("Bluetooth is turned off"), gatt.StatePoweredOff, ErrBluetoothOff},
		{"linux permission", errors.New("can't init hci: operation not permitted"), gatt.StateUnauthorized, ErrUnauthorized},
		{"linux no adapter", errors.New("can't init hci: no such device"), gatt.StateUnsupported, ErrUnsupportedPlatform},
		{"sentinel passthrough", ErrUnsupportedPlatform, gatt.StateUnsupported, ErrUnsupportedPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := NormalizeError(tt.err)
			assert.Equal(t, tt.wantState, state)
			if tt.wantIs == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantIs)
			if tt.err != nil {
				assert.Contains(t, err.Error(), tt.err.Error())
			}
		})
	}
}

func TestNormalizeError_Unknown(t *testing.T) {
	orig := errors.New("something else")
	state, err := NormalizeError(orig)
	assert.Equal(t, gatt.StateUnknown, state)
	assert.Same(t, orig, err)
}

func TestToBLEProperty(t *testing.T) {
	prop, dropped := ToBLEProperty(gatt.PropRead | gatt.PropWriteWithoutResponse | gatt.PropIndicateEncryptionRequired)
	assert.Equal(t, uint8(0x06), uint8(prop))
	assert.Equal(t, gatt.PropIndicateEncryptionRequired, dropped)

	prop, dropped = ToBLEProperty(gatt.PropBroadcast | gatt.PropExtendedProperties)
	assert.Equal(t, uint8(0x81), uint8(prop))
	assert.Zero(t, dropped)
}
