//go:build test

package goble_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/internal/gatt/goble"
	"github.com/srg/blimp/internal/testutils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type PlatformTestSuite struct {
	testutils.MockBLEDeviceSuite
}

func TestPlatformTestSuite(t *testing.T) {
	suite.Run(t, new(PlatformTestSuite))
}

func (s *PlatformTestSuite) heartRateService(primary bool) *gatt.Service {
	desc, err := gatt.NewDescriptor(gatt.DescriptorOptions{UUID: "2901", Value: "Heart Rate"})
	s.Require().NoError(err)
	char, err := gatt.NewCharacteristic(gatt.CharacteristicOptions{
		UUID:        "2A37",
		Value:       []byte{0x00, 0x50},
		Properties:  gatt.PropRead | gatt.PropNotify | gatt.PropNotifyEncryptionRequired,
		Permissions: gatt.PermReadable,
		Descriptors: []*gatt.Descriptor{desc},
	})
	s.Require().NoError(err)
	svc, err := gatt.NewService(gatt.ServiceOptions{UUID: "180D", Primary: &primary, Characteristics: []*gatt.Characteristic{char}})
	s.Require().NoError(err)
	return svc
}

func (s *PlatformTestSuite) newPlatform() *goble.Platform {
	p := goble.NewPlatform(s.Logger, 8)
	s.T().Cleanup(func() { _ = p.Close() })
	return p
}

func (s *PlatformTestSuite) nextEvent(p *goble.Platform) gatt.Event {
	select {
	case ev, ok := <-p.Events():
		s.Require().True(ok, "event channel closed")
		return ev
	case <-time.After(s.TestTimeout):
		s.FailNow("no event received")
		return gatt.Event{}
	}
}

func (s *PlatformTestSuite) TestOpenPublishesPoweredOn() {
	p := s.newPlatform()

	ev := s.nextEvent(p)
	s.Equal(gatt.EventStateChanged, ev.Type)
	s.Equal(gatt.StatePoweredOn, ev.State)
	s.Equal(gatt.AuthorizationAllowedAlways, p.Authorization())
	s.Equal(1, s.DevicesOpened())
}

func (s *PlatformTestSuite) TestAdvertiseServiceConvertsTree() {
	p := s.newPlatform()
	svc := s.heartRateService(true)

	s.Require().NoError(p.AdvertiseService(svc))

	s.Device.AssertCalled(s.T(), "AddService", mock.MatchedBy(func(bs *ble.Service) bool {
		if !bs.UUID.Equal(ble.UUID16(0x180D)) || len(bs.Characteristics) != 1 {
			return false
		}
		c := bs.Characteristics[0]
		return c.UUID.Equal(ble.UUID16(0x2A37)) &&
			c.Property == ble.CharRead|ble.CharNotify &&
			string(c.Value) == "\x00\x50" &&
			len(c.Descriptors) == 2 &&
			c.Descriptors[0].UUID.Equal(ble.UUID16(0x2A37)) &&
			c.Descriptors[1].UUID.Equal(ble.UUID16(0x2901)) &&
			string(c.Descriptors[1].Value) == "Heart Rate"
	}))
}

func (s *PlatformTestSuite) TestAdvertiseServiceRejects() {
	p := s.newPlatform()

	err := p.AdvertiseService(s.heartRateService(false))
	s.ErrorIs(err, goble.ErrSecondaryService)

	s.Require().NoError(p.AdvertiseService(s.heartRateService(true)))
	err = p.AdvertiseService(s.heartRateService(true))
	s.ErrorIs(err, goble.ErrDuplicateService)

	s.Device.AssertNumberOfCalls(s.T(), "AddService", 1)
}

func (s *PlatformTestSuite) TestWithdrawServiceKeepsOthers() {
	p := s.newPlatform()
	hr := s.heartRateService(true)
	primary := true
	battery, err := gatt.NewService(gatt.ServiceOptions{UUID: "180F", Primary: &primary})
	s.Require().NoError(err)

	s.Require().NoError(p.AdvertiseService(hr))
	s.Require().NoError(p.AdvertiseService(battery))
	s.Require().NoError(p.WithdrawService(hr))

	s.Device.AssertCalled(s.T(), "SetServices", mock.MatchedBy(func(svcs []*ble.Service) bool {
		return len(svcs) == 1 && svcs[0].UUID.Equal(ble.UUID16(0x180F))
	}))

	// withdrawing twice is a no-op
	s.Require().NoError(p.WithdrawService(hr))
	s.Device.AssertNumberOfCalls(s.T(), "SetServices", 1)
}

func (s *PlatformTestSuite) TestWithdrawAllServices() {
	p := s.newPlatform()
	s.Require().NoError(p.AdvertiseService(s.heartRateService(true)))

	s.Require().NoError(p.WithdrawAllServices())
	s.Device.AssertNumberOfCalls(s.T(), "RemoveAllServices", 1)

	// the service may be added again once withdrawn
	s.NoError(p.AdvertiseService(s.heartRateService(true)))
}

func (s *PlatformTestSuite) TestRestartRestoresServices() {
	p := s.newPlatform()
	svc := s.heartRateService(true)
	s.Require().NoError(p.AdvertiseService(svc))
	s.nextEvent(p) // initial state

	s.Require().NoError(p.Restart())

	s.Equal(2, s.DevicesOpened())
	s.Device.AssertCalled(s.T(), "Stop")

	ev := s.nextEvent(p)
	s.Equal(gatt.EventStateChanged, ev.Type)
	ev = s.nextEvent(p)
	s.Equal(gatt.EventRestoreState, ev.Type)
	s.Equal([]*gatt.Service{svc}, ev.Services)
}

func (s *PlatformTestSuite) TestCloseIsIdempotent() {
	p := goble.NewPlatform(s.Logger, 8)
	s.nextEvent(p)

	s.NoError(p.Close())
	s.NoError(p.Close())
	s.Device.AssertNumberOfCalls(s.T(), "Stop", 1)

	_, ok := <-p.Events()
	s.False(ok)
	s.ErrorIs(p.AdvertiseService(s.heartRateService(true)), goble.ErrNotReady)
}

type UnavailableDeviceSuite struct {
	testutils.MockBLEDeviceSuite
}

func TestUnavailableDeviceSuite(t *testing.T) {
	suite.Run(t, new(UnavailableDeviceSuite))
}

func (s *UnavailableDeviceSuite) SetupTest() {
	s.WithOpenError(errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"))
	s.MockBLEDeviceSuite.SetupTest()
}

func (s *UnavailableDeviceSuite) TestPoweredOff() {
	p := goble.NewPlatform(s.Logger, 4)
	defer p.Close()

	ev := <-p.Events()
	s.Equal(gatt.StatePoweredOff, ev.State)
	s.Equal(gatt.StatePoweredOff, p.State())

	primary := true
	svc, err := gatt.NewService(gatt.ServiceOptions{UUID: "180F", Primary: &primary})
	s.Require().NoError(err)

	err = p.AdvertiseService(svc)
	s.ErrorIs(err, goble.ErrBluetoothOff)

	registry := gatt.NewRegistry(p, s.Logger)
	err = registry.Register(svc)
	s.ErrorIs(err, gatt.ErrRegistrationFailed)
	s.ErrorIs(err, goble.ErrBluetoothOff)
	s.Equal(0, registry.Len())
}

type ScanTestSuite struct {
	testutils.MockBLEDeviceSuite
}

func TestScanTestSuite(t *testing.T) {
	suite.Run(t, new(ScanTestSuite))
}

func (s *ScanTestSuite) SetupTest() {
	hr := testutils.NewAdvertisementBuilder().
		WithAddress("AA:BB:CC:DD:EE:FF").WithName("HeartRate").WithRSSI(-40).WithServices("180D").Build()
	hrAgain := testutils.NewAdvertisementBuilder().
		WithAddress("AA:BB:CC:DD:EE:FF").WithName("HeartRate").WithRSSI(-42).WithServices("180D").Build()
	battery := testutils.NewAdvertisementBuilder().FromJSON(`{
		"address": "11:22:33:44:55:66",
		"name": "Battery",
		"services": ["180F"],
		"serviceData": {"180F": "Mg=="},
		"txPower": 4
	}`).Build()

	s.WithDevice().WithScanAdvertisements(hr, hrAgain, battery)
	s.MockBLEDeviceSuite.SetupTest()
}

func (s *ScanTestSuite) scan(opts gatt.ScanOptions) []gatt.PeripheralInfo {
	p := goble.NewPlatform(s.Logger, 16)
	defer p.Close()

	var found []gatt.PeripheralInfo
	err := p.Scan(context.Background(), opts, func(info gatt.PeripheralInfo) {
		found = append(found, info)
	})
	s.Require().NoError(err)
	return found
}

func (s *ScanTestSuite) TestDeduplicatesByAddress() {
	found := s.scan(gatt.ScanOptions{})
	s.Require().Len(found, 2)
	s.Equal("AA:BB:CC:DD:EE:FF", found[0].Address)
	s.Equal(-40, found[0].RSSI)
	s.Equal([]gatt.UUID{"180D"}, found[0].AdvertisementData.ServiceUUIDs)

	s.Equal("Battery", found[1].Name)
	s.Equal([]byte{0x32}, found[1].AdvertisementData.ServiceData["180F"])
	s.Equal(4, found[1].AdvertisementData.TxPowerLevel)
}

func (s *ScanTestSuite) TestAllowDuplicates() {
	found := s.scan(gatt.ScanOptions{AllowDuplicates: true})
	s.Len(found, 3)
}

func (s *ScanTestSuite) TestServiceFilter() {
	found := s.scan(gatt.ScanOptions{Services: []gatt.UUID{"180F"}})
	s.Require().Len(found, 1)
	s.Equal("11:22:33:44:55:66", found[0].Address)
}

func (s *ScanTestSuite) TestPublishesDiscoveries() {
	p := goble.NewPlatform(s.Logger, 16)
	defer p.Close()
	<-p.Events() // state

	s.Require().NoError(p.Scan(context.Background(), gatt.ScanOptions{}, nil))

	ev := <-p.Events()
	s.Equal(gatt.EventPeripheralDiscovered, ev.Type)
	s.Require().NotNil(ev.Peripheral)
	s.Equal("AA:BB:CC:DD:EE:FF", ev.Peripheral.Address)
}

func (s *ScanTestSuite) TestContextErrorsAreNotFailures() {
	s.Device.ExpectedCalls = nil
	s.Device.On("Scan", mock.Anything, mock.Anything, mock.Anything).Return(context.DeadlineExceeded)
	s.Device.On("Stop").Return(nil)

	p := goble.NewPlatform(s.Logger, 4)
	defer p.Close()
	s.NoError(p.Scan(context.Background(), gatt.ScanOptions{Duration: time.Millisecond}, nil))
}
