//go:build test

package main

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ConstantsCommandTestSuite struct {
	CommandTestSuite
}

func TestConstantsCommandTestSuite(t *testing.T) {
	suite.Run(t, new(ConstantsCommandTestSuite))
}

func (s *ConstantsCommandTestSuite) TestListsConstants() {
	stdout, _, err := s.ExecuteCommand("constants")
	s.Require().NoError(err)
	s.Contains(stdout, "ble.CHARACTERISTIC_PROPERTIES_READ")
	s.Contains(stdout, `"ABDD3056-28FA-441D-A470-55A75A52553A"`)
	s.NotContains(stdout, "\x1b[", "a buffer is not a terminal")
	s.Equal(0, s.DevicesOpened(), "listing constants MUST NOT open the device")
}

func (s *ConstantsCommandTestSuite) TestPrefixFilter() {
	stdout, _, err := s.ExecuteCommand("constants", "central_manager_state", "--color", "never")
	s.Require().NoError(err)
	s.Contains(stdout, "ble.CENTRAL_MANAGER_STATE_POWERED_ON")
	s.Contains(stdout, "5\n")
	s.NotContains(stdout, "CHARACTERISTIC_PROPERTIES")
}

func (s *ConstantsCommandTestSuite) TestForcedColor() {
	stdout, _, err := s.ExecuteCommand("constants", "PERIPHERAL_STATE", "--color", "always")
	s.Require().NoError(err)
	s.Contains(stdout, "\x1b[36mble.PERIPHERAL_STATE_CONNECTED")
}

func (s *ConstantsCommandTestSuite) TestErrors() {
	_, _, err := s.ExecuteCommand("constants", "NOPE")
	s.ErrorContains(err, "no constants match")

	_, _, err = s.ExecuteCommand("constants", "--color", "sometimes")
	s.ErrorContains(err, "invalid color mode")
}
