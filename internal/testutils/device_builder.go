//go:build test

package testutils

import (
	"github.com/go-ble/ble"
	"github.com/srg/blimp/internal/testutils/mocks"
	"github.com/stretchr/testify/mock"
)

// DeviceBuilder builds a mocked ble.Device acting as a local GATT server.
//
// The mock accepts service changes (optionally failing AddService), and replays
// the configured advertisements to every Scan handler.
type DeviceBuilder struct {
	addServiceErr  error
	scanErr        error
	advertisements []ble.Advertisement
}

// NewDeviceBuilder creates a builder for a device that accepts every call.
func NewDeviceBuilder() *DeviceBuilder {
	return &DeviceBuilder{}
}

// WithAddServiceError makes every AddService call fail with err.
func (b *DeviceBuilder) WithAddServiceError(err error) *DeviceBuilder {
	b.addServiceErr = err
	return b
}

// WithScanError makes Scan return err after replaying the advertisements.
func (b *DeviceBuilder) WithScanError(err error) *DeviceBuilder {
	b.scanErr = err
	return b
}

// WithScanAdvertisements adds advertisements delivered to Scan handlers, in order.
func (b *DeviceBuilder) WithScanAdvertisements(ads ...ble.Advertisement) *DeviceBuilder {
	b.advertisements = append(b.advertisements, ads...)
	return b
}

// Build creates the mock device. Expectations are optional (Maybe), so tests
// assert on recorded calls with AssertCalled/AssertNumberOfCalls.
func (b *DeviceBuilder) Build() *mocks.MockDevice {
	dev := &mocks.MockDevice{}

	dev.On("AddService", mock.Anything).Return(b.addServiceErr).Maybe()
	dev.On("SetServices", mock.Anything).Return(nil).Maybe()
	dev.On("RemoveAllServices").Return(nil).Maybe()
	dev.On("Stop").Return(nil).Maybe()

	ads := append([]ble.Advertisement(nil), b.advertisements...)
	dev.On("Scan", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			handler := args.Get(2).(ble.AdvHandler)
			for _, adv := range ads {
				handler(adv)
			}
		}).
		Return(b.scanErr).Maybe()

	return dev
}
