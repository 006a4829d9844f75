package main

import (
	"errors"
	"fmt"

	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/internal/gatt/goble"
	"github.com/srg/blimp/internal/lua"
	"github.com/srg/blimp/pkg/session"
)

// Command-level errors
var (
	// ErrNoServices indicates a profile that declares nothing to publish.
	ErrNoServices = errors.New("profile declares no services")
	// ErrInvalidFormat indicates an unsupported --format value.
	ErrInvalidFormat = errors.New("invalid output format")
)

// platformHints are shown for the platform failures a user can act on.
var platformHints = []struct {
	err  error
	hint string
}{
	{goble.ErrBluetoothOff, "Bluetooth is turned off, enable it and retry"},
	{goble.ErrUnauthorized, "Bluetooth access is not authorized, grant this terminal Bluetooth permission in system settings"},
	{goble.ErrUnsupportedPlatform, "Bluetooth LE is not supported on this platform"},
	{goble.ErrNotReady, "Bluetooth is not ready yet, retry in a moment"},
	{goble.ErrSecondaryService, "secondary services are not supported by this Bluetooth stack, declare the service as primary"},
	{session.ErrScanUnsupported, "scanning is not supported by this Bluetooth stack"},
}

var kindMessages = map[gatt.ErrorKind]string{
	gatt.InvalidUUID:          "invalid UUID",
	gatt.InvalidValueKind:     "invalid value",
	gatt.MissingRequiredField: "missing required field",
	gatt.UnknownField:         "unknown field",
	gatt.AlreadyAttached:      "attribute is already attached to another parent",
	gatt.ServiceNotFound:      "service is not registered",
	gatt.RegistrationFailed:   "service registration failed",
}

// FormatUserError turns err into a message fit for the terminal.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	for _, h := range platformHints {
		if errors.Is(err, h.err) {
			return h.hint
		}
	}

	var scriptErr *lua.ScriptError
	if errors.As(err, &scriptErr) {
		if scriptErr.Line > 0 {
			return fmt.Sprintf("%s error in %s at line %d: %s", scriptErr.Type, scriptErr.Source, scriptErr.Line, scriptErr.Message)
		}
		return fmt.Sprintf("%s error in %s: %s", scriptErr.Type, scriptErr.Source, scriptErr.Message)
	}

	var gattErr *gatt.Error
	if errors.As(err, &gattErr) {
		msg, ok := kindMessages[gattErr.Kind]
		if !ok {
			msg = string(gattErr.Kind)
		}
		if gattErr.Field != "" {
			msg = fmt.Sprintf("%s %q", msg, gattErr.Field)
		}
		if gattErr.Msg != "" {
			msg = fmt.Sprintf("%s: %s", msg, gattErr.Msg)
		}
		if gattErr.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, gattErr.Err)
		}
		return msg
	}

	return err.Error()
}
