package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/internal/gatt/goble"
	"github.com/srg/blimp/internal/lua"
	"github.com/stretchr/testify/assert"
)

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
		{
			name:     "bluetooth off behind registration failure",
			err:      fmt.Errorf("failed to publish profile: %w", &gatt.Error{Kind: gatt.RegistrationFailed, Err: goble.ErrBluetoothOff}),
			expected: "Bluetooth is turned off, enable it and retry",
		},
		{
			name:     "unauthorized",
			err:      fmt.Errorf("%w: operation not permitted", goble.ErrUnauthorized),
			expected: "Bluetooth access is not authorized, grant this terminal Bluetooth permission in system settings",
		},
		{
			name:     "builder error with field",
			err:      fmt.Errorf("services[0]: %w", &gatt.Error{Kind: gatt.MissingRequiredField, Field: "primary"}),
			expected: `missing required field "primary"`,
		},
		{
			name:     "builder error with cause",
			err:      &gatt.Error{Kind: gatt.InvalidUUID, Field: "uuid", Msg: "not hex", Err: errors.New("XYZ")},
			expected: `invalid UUID "uuid": not hex: XYZ`,
		},
		{
			name:     "script error with line",
			err:      fmt.Errorf("failed to execute script: %w", &lua.ScriptError{Type: "runtime", Source: "demo.lua", Line: 3, Message: "boom"}),
			expected: "runtime error in demo.lua at line 3: boom",
		},
		{
			name:     "script error without line",
			err:      &lua.ScriptError{Type: "api", Source: "demo.lua", Message: "empty script"},
			expected: "api error in demo.lua: empty script",
		},
		{
			name:     "anything else",
			err:      errors.New("disk full"),
			expected: "disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatUserError(tt.err))
		})
	}
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}
