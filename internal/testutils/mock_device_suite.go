//go:build test

package testutils

import (
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/gatt/goble"
	"github.com/srg/blimp/internal/testutils/mocks"
	"github.com/stretchr/testify/suite"
)

// MockBLEDeviceSuite replaces goble.DeviceFactory with a mocked ble.Device for
// every test and restores it afterwards.
//
// Basic usage (device accepts every call):
//
//	type PlatformSuite struct {
//	    testutils.MockBLEDeviceSuite
//	}
//
//	func TestPlatformSuite(t *testing.T) {
//	    suite.Run(t, new(PlatformSuite))
//	}
//
// Custom device:
//
//	func (s *PlatformSuite) SetupTest() {
//	    s.WithDevice().WithScanAdvertisements(
//	        testutils.NewAdvertisementBuilder().WithAddress("AA:BB:CC:DD:EE:FF").Build())
//	    s.MockBLEDeviceSuite.SetupTest() // call parent last to apply configuration
//	}
//
// Device that fails to open:
//
//	s.WithOpenError(errors.New("central manager has invalid state: have=4 want=5"))
type MockBLEDeviceSuite struct {
	suite.Suite

	Helper      *TestHelper
	Logger      *logrus.Logger
	TestTimeout time.Duration

	// Device is the mock handed out by the factory in the current test; nil when
	// the factory is configured to fail.
	Device *mocks.MockDevice

	originalFactory func() (ble.Device, error)
	deviceBuilder   *DeviceBuilder
	openErr         error
	opened          int
}

// SetupSuite is called once before all tests.
func (s *MockBLEDeviceSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second
	s.originalFactory = goble.DeviceFactory

	s.T().Cleanup(func() {
		if s.originalFactory != nil {
			goble.DeviceFactory = s.originalFactory
		}
	})
}

// SetupTest installs the mock device factory.
func (s *MockBLEDeviceSuite) SetupTest() {
	if s.deviceBuilder == nil {
		s.deviceBuilder = NewDeviceBuilder()
	}
	s.opened = 0
	if s.openErr == nil {
		s.Device = s.deviceBuilder.Build()
	}

	goble.DeviceFactory = func() (ble.Device, error) {
		s.opened++
		if s.openErr != nil {
			return nil, s.openErr
		}
		return s.Device, nil
	}
	s.Logger.Debug("Mock BLE device factory installed")
}

// TearDownTest restores the factory and clears per-test configuration.
func (s *MockBLEDeviceSuite) TearDownTest() {
	goble.DeviceFactory = s.originalFactory
	s.deviceBuilder = nil
	s.openErr = nil
	s.Device = nil
}

// WithDevice returns the builder for the device handed out in the next test.
func (s *MockBLEDeviceSuite) WithDevice() *DeviceBuilder {
	if s.deviceBuilder == nil {
		s.deviceBuilder = NewDeviceBuilder()
	}
	return s.deviceBuilder
}

// WithOpenError makes the device factory fail with err in the next test.
func (s *MockBLEDeviceSuite) WithOpenError(err error) {
	s.openErr = err
}

// DevicesOpened returns how many times the factory was called in this test.
func (s *MockBLEDeviceSuite) DevicesOpened() int {
	return s.opened
}
