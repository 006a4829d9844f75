// Package goble implements gatt.Platform on top of a go-ble ble.Device.
package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/internal/ringchan"
)

// DeviceFactory creates the ble.Device behind a Platform (can be overridden in tests)
var DeviceFactory = newDefaultDevice

// DefaultEventCapacity is used when NewPlatform is given a non-positive capacity.
const DefaultEventCapacity = 64

type registeredService struct {
	svc *gatt.Service
	ble *ble.Service
}

// Platform publishes gatt services through a go-ble device.
//
// go-ble has no secondary services and no per-attribute permissions; secondary
// services are rejected and permissions are left to the stack.
type Platform struct {
	mu       sync.Mutex
	dev      ble.Device
	openErr  error
	state    gatt.ManagerState
	services []registeredService
	closed   bool

	evMu    sync.Mutex
	events  *ringchan.RingChannel[gatt.Event]
	eventsC <-chan gatt.Event

	logger *logrus.Logger
}

var (
	_ gatt.Platform              = (*Platform)(nil)
	_ gatt.AuthorizationReporter = (*Platform)(nil)
	_ gatt.Scanner               = (*Platform)(nil)
)

// NewPlatform opens the default device through DeviceFactory.
//
// A device that cannot be opened does not fail construction: the normalized
// manager state is published as the first event and every later call reports
// the open error.
func NewPlatform(logger *logrus.Logger, eventCapacity int) *Platform {
	if logger == nil {
		logger = logrus.New()
	}
	if eventCapacity <= 0 {
		eventCapacity = DefaultEventCapacity
	}

	events := ringchan.New[gatt.Event](eventCapacity)
	p := &Platform{
		events:  events,
		eventsC: events.C(),
		logger:  logger,
	}
	p.mu.Lock()
	p.open()
	p.mu.Unlock()
	return p
}

// open must be called with p.mu held.
func (p *Platform) open() {
	dev, err := DeviceFactory()
	state, err := NormalizeError(err)
	if err != nil {
		p.dev = nil
		p.openErr = err
		p.logger.WithFields(logrus.Fields{
			"state": state,
			"error": err,
		}).Warn("BLE device unavailable")
	} else {
		p.dev = dev
		p.openErr = nil
		p.logger.Debug("BLE device opened")
	}
	p.state = state
	p.publish(gatt.StateChangedEvent(state))
}

// ready must be called with p.mu held.
func (p *Platform) ready() error {
	switch {
	case p.closed:
		return fmt.Errorf("%w: platform closed", ErrNotReady)
	case p.dev == nil && p.openErr != nil:
		return p.openErr
	case p.dev == nil:
		return ErrNotReady
	}
	return nil
}

// State returns the manager state observed when the device was last opened.
func (p *Platform) State() gatt.ManagerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Authorization derives the authorization from the manager state: go-ble only
// learns about it when opening the device fails.
func (p *Platform) Authorization() gatt.AuthorizationStatus {
	switch p.State() {
	case gatt.StateUnauthorized:
		return gatt.AuthorizationDenied
	case gatt.StatePoweredOn, gatt.StatePoweredOff, gatt.StateResetting:
		return gatt.AuthorizationAllowedAlways
	default:
		return gatt.AuthorizationNotDetermined
	}
}

func (p *Platform) AdvertiseService(svc *gatt.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ready(); err != nil {
		return err
	}
	if !svc.IsPrimary() {
		return fmt.Errorf("%w: %s", ErrSecondaryService, svc.UUID())
	}
	for _, rs := range p.services {
		if rs.svc.UUID() == svc.UUID() {
			return fmt.Errorf("%w: %s", ErrDuplicateService, svc.UUID())
		}
	}

	bs, err := toBLEService(svc, p.logger)
	if err != nil {
		return err
	}
	if err := p.dev.AddService(bs); err != nil {
		_, nerr := NormalizeError(err)
		return nerr
	}
	p.services = append(p.services, registeredService{svc: svc, ble: bs})

	p.logger.WithFields(logrus.Fields{
		"service":         svc.UUID(),
		"characteristics": len(bs.Characteristics),
	}).Debug("Service added to device")
	return nil
}

func (p *Platform) WithdrawService(svc *gatt.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ready(); err != nil {
		return err
	}

	remaining := make([]registeredService, 0, len(p.services))
	bleServices := make([]*ble.Service, 0, len(p.services))
	for _, rs := range p.services {
		if rs.svc.UUID() == svc.UUID() {
			continue
		}
		remaining = append(remaining, rs)
		bleServices = append(bleServices, rs.ble)
	}
	if len(remaining) == len(p.services) {
		return nil
	}

	if err := p.dev.SetServices(bleServices); err != nil {
		_, nerr := NormalizeError(err)
		return nerr
	}
	p.services = remaining
	p.logger.WithField("service", svc.UUID()).Debug("Service withdrawn from device")
	return nil
}

func (p *Platform) WithdrawAllServices() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ready(); err != nil {
		return err
	}
	if err := p.dev.RemoveAllServices(); err != nil {
		_, nerr := NormalizeError(err)
		return nerr
	}
	p.services = nil
	p.logger.Debug("All services withdrawn from device")
	return nil
}

// Restart stops the device, opens a new one and republishes the services the
// old device held. Subscribers observe StateChanged followed by RestoreState
// with the services that could be restored.
func (p *Platform) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("%w: platform closed", ErrNotReady)
	}
	if p.dev != nil {
		if err := p.dev.Stop(); err != nil {
			p.logger.WithError(err).Debug("Device stop failed during restart")
		}
	}

	held := p.services
	p.services = nil
	p.open()
	if p.dev == nil {
		return p.openErr
	}

	restored := make([]*gatt.Service, 0, len(held))
	var errs []error
	for _, rs := range held {
		if err := p.dev.AddService(rs.ble); err != nil {
			_, nerr := NormalizeError(err)
			errs = append(errs, fmt.Errorf("restore %s: %w", rs.svc.UUID(), nerr))
			continue
		}
		p.services = append(p.services, rs)
		restored = append(restored, rs.svc)
	}
	p.publish(gatt.RestoreStateEvent(restored))
	return errors.Join(errs...)
}

// Scan discovers remote peripherals until ctx is done or opts.Duration elapses.
// Each discovery goes to handler and is published as a PeripheralDiscovered event.
func (p *Platform) Scan(ctx context.Context, opts gatt.ScanOptions, handler func(gatt.PeripheralInfo)) error {
	p.mu.Lock()
	if err := p.ready(); err != nil {
		p.mu.Unlock()
		return err
	}
	dev := p.dev
	p.mu.Unlock()

	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	wanted := make(map[gatt.UUID]struct{}, len(opts.Services))
	for _, u := range opts.Services {
		wanted[u] = struct{}{}
	}
	seen := hashmap.New[string, struct{}]()

	p.logger.WithFields(logrus.Fields{
		"services":         len(opts.Services),
		"allow_duplicates": opts.AllowDuplicates,
		"duration":         opts.Duration,
	}).Debug("Starting BLE scan")

	err := dev.Scan(ctx, opts.AllowDuplicates, func(adv ble.Advertisement) {
		info := fromBLEAdvertisement(adv)
		if !advertisesAny(info, wanted) {
			return
		}
		if !opts.AllowDuplicates {
			if _, loaded := seen.GetOrInsert(info.Address, struct{}{}); loaded {
				return
			}
		}
		if handler != nil {
			handler(info)
		}
		p.publish(gatt.PeripheralDiscoveredEvent(info))
	})

	p.logger.WithField("peripherals", seen.Len()).Debug("BLE scan finished")

	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	_, nerr := NormalizeError(err)
	return nerr
}

func advertisesAny(info gatt.PeripheralInfo, wanted map[gatt.UUID]struct{}) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, u := range info.AdvertisementData.ServiceUUIDs {
		if _, ok := wanted[u]; ok {
			return true
		}
	}
	return false
}

func (p *Platform) Events() <-chan gatt.Event {
	return p.eventsC
}

// Close stops the device and closes the event channel. Further calls return nil.
func (p *Platform) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	dev := p.dev
	p.dev = nil
	p.services = nil
	p.mu.Unlock()

	var err error
	if dev != nil {
		err = dev.Stop()
	}

	p.evMu.Lock()
	p.events.Close()
	p.events = nil
	p.evMu.Unlock()

	p.logger.Debug("BLE platform closed")
	return err
}

func (p *Platform) publish(ev gatt.Event) {
	p.evMu.Lock()
	defer p.evMu.Unlock()

	if p.events == nil {
		return
	}
	if p.events.Send(ev) {
		p.logger.WithField("event", ev.Type).Debug("Event buffer full, oldest event dropped")
	}
}
