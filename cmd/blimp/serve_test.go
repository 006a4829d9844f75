//go:build test

package main

import (
	"errors"
	"testing"

	"github.com/srg/blimp"
	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/internal/gatt/goble"
	"github.com/stretchr/testify/suite"
)

type ServeCommandTestSuite struct {
	CommandTestSuite
}

func TestServeCommandTestSuite(t *testing.T) {
	suite.Run(t, new(ServeCommandTestSuite))
}

func (s *ServeCommandTestSuite) TestPublishesAndWithdrawsProfile() {
	path := s.WriteFile("heart_rate.yaml", blimp.ExampleProfile)

	stdout, _, err := s.ExecuteCommand("serve", path, "--duration", "50ms")
	s.Require().NoError(err)

	s.Contains(stdout, "Serving 3 services from heart-rate-monitor")
	s.Contains(stdout, "180F (Battery Service)")
	s.Contains(stdout, "read,notify")
	s.Contains(stdout, "Services withdrawn")

	s.Device.AssertNumberOfCalls(s.T(), "AddService", 3)
	s.Device.AssertNumberOfCalls(s.T(), "RemoveAllServices", 1)
	s.Device.AssertCalled(s.T(), "Stop")
}

func (s *ServeCommandTestSuite) TestJSONFormat() {
	path := s.WriteFile("battery.yaml", `
services:
  - uuid: 180F
    primary: true
    data: [80]
    properties: read
    permissions: readable
`)

	stdout, _, err := s.ExecuteCommand("serve", path, "--duration", "10ms", "--format", "json")
	s.Require().NoError(err)
	s.Contains(stdout, `"uuid": "180F"`)
	s.Contains(stdout, `"primary": true`)
}

func (s *ServeCommandTestSuite) TestRejectsInvalidInput() {
	s.Run("unknown profile key", func() {
		path := s.WriteFile("bad.yaml", "services:\n  - uuid: 180F\n    primary: true\n    colour: red\n")
		_, _, err := s.ExecuteCommand("serve", path)
		s.Error(err)
	})

	s.Run("malformed UUID", func() {
		path := s.WriteFile("bad_uuid.yaml", "services:\n  - uuid: XYZ\n    primary: true\n")
		_, _, err := s.ExecuteCommand("serve", path)
		s.ErrorIs(err, gatt.ErrInvalidUUID)
	})

	s.Run("empty profile", func() {
		path := s.WriteFile("empty.yaml", "name: empty\nservices: []\n")
		_, _, err := s.ExecuteCommand("serve", path)
		s.ErrorIs(err, ErrNoServices)
	})

	s.Run("missing file", func() {
		_, _, err := s.ExecuteCommand("serve", "does-not-exist.yaml")
		s.Error(err)
	})

	s.Run("invalid format", func() {
		path := s.WriteFile("ok.yaml", blimp.ExampleProfile)
		_, _, err := s.ExecuteCommand("serve", path, "--format", "xml")
		s.ErrorIs(err, ErrInvalidFormat)
	})

	s.Equal(0, s.DevicesOpened(), "invalid input MUST NOT open the device")
}

func (s *ServeCommandTestSuite) TestBluetoothOff() {
	s.WithOpenError(errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"))
	s.MockBLEDeviceSuite.SetupTest()

	path := s.WriteFile("heart_rate.yaml", blimp.ExampleProfile)
	_, _, err := s.ExecuteCommand("serve", path, "--duration", "10ms")
	s.Require().Error(err)
	s.ErrorIs(err, gatt.ErrRegistrationFailed)
	s.ErrorIs(err, goble.ErrBluetoothOff)
	s.Equal("Bluetooth is turned off, enable it and retry", FormatUserError(err))
}

func (s *ServeCommandTestSuite) TestPartialFailureWithdrawsPublished() {
	path := s.WriteFile("with_secondary.yaml", `
services:
  - uuid: 180F
    primary: true
  - uuid: 180D
    primary: false
`)

	_, _, err := s.ExecuteCommand("serve", path, "--duration", "10ms")
	s.Require().Error(err)
	s.ErrorIs(err, goble.ErrSecondaryService)

	s.Device.AssertNumberOfCalls(s.T(), "AddService", 1)
	s.Device.AssertNumberOfCalls(s.T(), "RemoveAllServices", 1)
}
