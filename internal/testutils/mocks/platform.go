//go:build test

package mocks

import (
	"context"

	"github.com/srg/blimp/internal/gatt"
	"github.com/stretchr/testify/mock"
)

// MockPlatform is a testify mock of gatt.Platform that also implements
// gatt.AuthorizationReporter and gatt.Scanner.
//
// Events are delivered through EventsCh, which tests feed directly.
type MockPlatform struct {
	mock.Mock
	EventsCh chan gatt.Event
}

// NewMockPlatform returns a MockPlatform with a buffered event channel.
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{EventsCh: make(chan gatt.Event, 16)}
}

func (m *MockPlatform) AdvertiseService(svc *gatt.Service) error {
	args := m.Called(svc)
	return args.Error(0)
}

func (m *MockPlatform) WithdrawService(svc *gatt.Service) error {
	args := m.Called(svc)
	return args.Error(0)
}

func (m *MockPlatform) WithdrawAllServices() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPlatform) Events() <-chan gatt.Event {
	return m.EventsCh
}

func (m *MockPlatform) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPlatform) Authorization() gatt.AuthorizationStatus {
	args := m.Called()
	return args.Get(0).(gatt.AuthorizationStatus)
}

func (m *MockPlatform) Scan(ctx context.Context, opts gatt.ScanOptions, handler func(gatt.PeripheralInfo)) error {
	args := m.Called(ctx, opts, handler)
	return args.Error(0)
}

// AcceptAll sets permissive expectations for every platform call.
func (m *MockPlatform) AcceptAll() *MockPlatform {
	m.On("AdvertiseService", mock.Anything).Return(nil).Maybe()
	m.On("WithdrawService", mock.Anything).Return(nil).Maybe()
	m.On("WithdrawAllServices").Return(nil).Maybe()
	m.On("Close").Return(nil).Maybe()
	return m
}
