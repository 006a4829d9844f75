//go:build test

package lua

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/internal/testutils"
	"github.com/srg/blimp/internal/testutils/mocks"
	"github.com/srg/blimp/pkg/session"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

// barrierEvent is dispatched after injected events; once a listener sees it,
// every event sent before it has been handled.
const barrierEvent gatt.EventType = "test-barrier"

// TestCase is one scripted scenario run against a mock platform.
//
// Example YAML:
//
//	test_cases:
//	  - name: "register a service"
//	    script: |
//	      ble.addService{uuid = "180D", primary = true}
//	    expected_services: |
//	      [{"uuid": "180D", "primary": true}]
type TestCase struct {
	Name   string            `yaml:"name"`
	Script string            `yaml:"script"`
	Args   map[string]string `yaml:"args,omitempty"`

	// AdvertiseError makes the platform reject every AdvertiseService call.
	AdvertiseError string `yaml:"advertise_error,omitempty"`
	// Authorization is reported by the platform (default allowed-always).
	Authorization *int `yaml:"authorization,omitempty"`
	// Events are delivered by the platform after the script has run.
	Events []TestEvent `yaml:"events,omitempty"`

	// ExpectError is a substring of the script error; empty means success.
	ExpectError      string `yaml:"expect_error,omitempty"`
	ExpectedStdout   string `yaml:"expected_stdout,omitempty"`
	ExpectedStderr   string `yaml:"expected_stderr,omitempty"`
	ExpectedServices string `yaml:"expected_services,omitempty"`

	Skip string `yaml:"skip,omitempty"`
}

// TestEvent is a platform notification injected into a test case.
type TestEvent struct {
	Type       string          `yaml:"type"`
	State      int             `yaml:"state,omitempty"`
	Peripheral *TestPeripheral `yaml:"peripheral,omitempty"`
}

type TestPeripheral struct {
	Address   string   `yaml:"address"`
	Name      string   `yaml:"name,omitempty"`
	RSSI      int      `yaml:"rssi,omitempty"`
	LocalName string   `yaml:"local_name,omitempty"`
	Services  []string `yaml:"services,omitempty"`
}

func (e TestEvent) toEvent() gatt.Event {
	switch gatt.EventType(e.Type) {
	case gatt.EventPeripheralDiscovered:
		p := gatt.PeripheralInfo{}
		if e.Peripheral != nil {
			p.Address = e.Peripheral.Address
			p.Name = e.Peripheral.Name
			p.RSSI = e.Peripheral.RSSI
			p.AdvertisementData.LocalName = e.Peripheral.LocalName
			for _, s := range e.Peripheral.Services {
				p.AdvertisementData.ServiceUUIDs = append(p.AdvertisementData.ServiceUUIDs, gatt.MustParseUUID(s))
			}
		}
		return gatt.PeripheralDiscoveredEvent(p)
	case gatt.EventRestoreState:
		return gatt.RestoreStateEvent(nil)
	default:
		return gatt.StateChangedEvent(gatt.ManagerState(e.State))
	}
}

// APITestSuite runs Lua scripts through API against a mock platform.
//
// Each test gets a fresh platform, session and API. Script output is captured
// by a Collector and read back once the API is closed.
type APITestSuite struct {
	suite.Suite

	Helper *testutils.TestHelper
	Logger *logrus.Logger

	Platform  *mocks.MockPlatform
	Session   *session.Session
	API       *API
	Collector *Collector
}

func (s *APITestSuite) SetupSuite() {
	s.Helper = testutils.NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
}

func (s *APITestSuite) SetupTest() {
	s.setup()
}

func (s *APITestSuite) TearDownTest() {
	s.teardown()
}

// SetupSubTest gives every subtest of RunTestCasesFromFile its own platform.
func (s *APITestSuite) SetupSubTest() {
	s.teardown()
	s.setup()
}

func (s *APITestSuite) setup() {
	s.Platform = mocks.NewMockPlatform()
	s.Platform.On("Close").Return(nil).Maybe()

	s.Session = session.New(s.Platform, s.Logger)
	s.API = NewAPI(context.Background(), s.Session, s.Logger, 256)

	c, err := NewCollector(s.API.OutputChannel(), 256)
	s.Require().NoError(err)
	s.Require().NoError(c.Start())
	s.Collector = c
}

func (s *APITestSuite) teardown() {
	if s.API == nil {
		return
	}
	s.API.Close()
	s.Collector.Wait()
	s.NoError(s.Session.Close())
}

// AcceptAll lets every registry and scan call succeed and reports allowed-always
// authorization.
func (s *APITestSuite) AcceptAll() {
	s.Platform.On("Authorization").Return(gatt.AuthorizationAllowedAlways).Maybe()
	s.Platform.On("Scan", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	s.Platform.AcceptAll()
}

// Exec loads and executes script.
func (s *APITestSuite) Exec(script string) error {
	if err := s.API.LoadScript(script, "test"); err != nil {
		return err
	}
	return s.API.Execute()
}

// Deliver sends events from the platform and waits until the session has
// dispatched all of them.
func (s *APITestSuite) Deliver(events ...gatt.Event) {
	done := make(chan struct{})
	unsubscribe := s.Session.Subscribe(barrierEvent, func(gatt.Event) { close(done) })
	defer unsubscribe()

	for _, ev := range events {
		s.Platform.EventsCh <- ev
	}
	s.Platform.EventsCh <- gatt.Event{Type: barrierEvent}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.FailNow("timed out waiting for events to be dispatched")
	}
}

// Output closes the API and returns everything the script wrote to source.
// The API is unusable afterwards.
func (s *APITestSuite) Output(source string) string {
	s.API.Close()
	s.Collector.Wait()
	text, err := s.Collector.Text(source)
	s.Require().NoError(err)
	return text
}

// RunTestCase executes tc and checks its expectations.
func (s *APITestSuite) RunTestCase(tc TestCase) {
	if tc.Skip != "" {
		s.T().Skip(tc.Skip)
	}

	if tc.AdvertiseError != "" {
		s.Platform.On("AdvertiseService", mock.Anything).Return(errors.New(tc.AdvertiseError))
	}
	if tc.Authorization != nil {
		s.Platform.On("Authorization").Return(gatt.AuthorizationStatus(*tc.Authorization))
	}
	s.AcceptAll()

	s.API.SetArgs(tc.Args)
	err := s.Exec(tc.Script)
	if tc.ExpectError != "" {
		s.Require().Error(err)
		s.Contains(err.Error(), tc.ExpectError)
	} else {
		s.Require().NoError(err)
	}

	if len(tc.Events) > 0 {
		events := make([]gatt.Event, 0, len(tc.Events))
		for _, e := range tc.Events {
			events = append(events, e.toEvent())
		}
		s.Deliver(events...)
	}

	if tc.ExpectedServices != "" {
		testutils.NewJSONAsserterWithInterface(s.T()).AssertServices(s.Session.Registry().Services(), tc.ExpectedServices)
	}

	if tc.ExpectedStdout != "" || tc.ExpectedStderr != "" {
		s.API.Close()
		s.Collector.Wait()
		records, rerr := s.Collector.Records()
		s.Require().NoError(rerr)

		var stdout, stderr strings.Builder
		for _, rec := range records {
			if rec.Source == "stderr" {
				stderr.WriteString(rec.Content)
			} else {
				stdout.WriteString(rec.Content)
			}
		}
		if tc.ExpectedStdout != "" {
			testutils.NewTextAsserterWithInterface(s.T()).Assert(stdout.String(), tc.ExpectedStdout)
		}
		if tc.ExpectedStderr != "" {
			s.Contains(stderr.String(), strings.TrimSpace(tc.ExpectedStderr))
		}
	}
}

// RunTestCasesFromFile runs every case of a YAML file as a subtest.
func (s *APITestSuite) RunTestCasesFromFile(path string) {
	data, err := os.ReadFile(path)
	s.Require().NoError(err)

	var doc struct {
		TestCases []TestCase `yaml:"test_cases"`
	}
	s.Require().NoError(yaml.Unmarshal(data, &doc))
	s.Require().NotEmpty(doc.TestCases, "no test cases in %s", path)

	for _, tc := range doc.TestCases {
		s.Run(tc.Name, func() {
			s.RunTestCase(tc)
		})
	}
}
