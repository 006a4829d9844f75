//go:build !darwin && !linux

package goble

import "github.com/go-ble/ble"

func newDefaultDevice() (ble.Device, error) {
	return nil, ErrUnsupportedPlatform
}
