// Package session ties a gatt.Platform to its Registry and fans platform
// notifications out to listeners.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/internal/groutine"
)

var (
	ErrClosed          = errors.New("session closed")
	ErrScanUnsupported = errors.New("platform does not support scanning")
	ErrUnknownEvent    = errors.New("unknown event")
)

// Listener receives platform events on the session's event goroutine.
// It must not block for long: events behind it wait in the platform queue.
type Listener func(gatt.Event)

type listenerEntry struct {
	id int
	fn Listener
}

// Session owns a Platform and the Registry of services registered through it.
//
// One goroutine consumes Platform.Events: state changes update State, restore
// notifications repopulate the Registry, and every event is then passed to the
// listeners subscribed to its type, in subscription order.
type Session struct {
	platform gatt.Platform
	registry *gatt.Registry
	logger   *logrus.Logger

	mu        sync.RWMutex
	state     gatt.ManagerState
	listeners map[gatt.EventType][]listenerEntry
	nextID    int
	closed    bool

	scans     sync.WaitGroup
	cancel    context.CancelFunc
	pumpDone  <-chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New creates a session over platform and starts its event goroutine.
func New(platform gatt.Platform, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		platform:  platform,
		registry:  gatt.NewRegistry(platform, logger),
		logger:    logger,
		listeners: make(map[gatt.EventType][]listenerEntry),
		cancel:    cancel,
	}
	s.pumpDone = groutine.Go(ctx, "session-events", s.pump)
	return s
}

// ParseEventType validates an event name.
func ParseEventType(name string) (gatt.EventType, error) {
	switch t := gatt.EventType(name); t {
	case gatt.EventStateChanged, gatt.EventRestoreState, gatt.EventPeripheralDiscovered:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

func (s *Session) Registry() *gatt.Registry {
	return s.registry
}

func (s *Session) Platform() gatt.Platform {
	return s.platform
}

// State returns the last manager state reported by the platform.
func (s *Session) State() gatt.ManagerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// AuthorizationState returns the platform's authorization, or not-determined
// when the platform cannot tell.
func (s *Session) AuthorizationState() gatt.AuthorizationStatus {
	if r, ok := s.platform.(gatt.AuthorizationReporter); ok {
		return r.Authorization()
	}
	return gatt.AuthorizationNotDetermined
}

// Register registers svc with the platform and records it.
func (s *Session) Register(svc *gatt.Service) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.registry.Register(svc)
}

// RegisterAll registers services in order and stops at the first failure.
// Services registered before the failure stay registered.
func (s *Session) RegisterAll(services []*gatt.Service) error {
	for _, svc := range services {
		if err := s.Register(svc); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe adds fn for events of type t and returns a function removing it.
func (s *Session) Subscribe(t gatt.EventType, fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners[t] = append(s.listeners[t], listenerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(t, id) })
	}
}

func (s *Session) unsubscribe(t gatt.EventType, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.listeners[t]
	for i, e := range entries {
		if e.id == id {
			s.listeners[t] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Scan runs a platform scan in the background. Discoveries reach listeners as
// PeripheralDiscovered events. The returned channel yields the scan result once.
func (s *Session) Scan(ctx context.Context, opts gatt.ScanOptions) (<-chan error, error) {
	scanner, ok := s.platform.(gatt.Scanner)
	if !ok {
		return nil, ErrScanUnsupported
	}
	if s.isClosed() {
		return nil, ErrClosed
	}

	result := make(chan error, 1)
	s.scans.Add(1)
	groutine.Go(ctx, "session-scan", func(ctx context.Context) {
		defer s.scans.Done()
		err := scanner.Scan(ctx, opts, nil)
		if err != nil {
			s.logger.WithError(err).Warn("Scan failed")
		}
		result <- err
	})
	return result, nil
}

// WaitScans blocks until every scan started with Scan has returned or ctx is done.
func (s *Session) WaitScans(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.scans.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the event goroutine, forgets registered services and closes the
// platform. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		<-s.pumpDone
		s.registry.Reset()
		s.closeErr = s.platform.Close()
		s.logger.Debug("Session closed")
	})
	return s.closeErr
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) pump(ctx context.Context) {
	defer s.logger.Debugf("%s: exiting", groutine.GetName(ctx))

	events := s.platform.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.apply(ev)
			s.dispatch(ev)
		}
	}
}

func (s *Session) apply(ev gatt.Event) {
	switch ev.Type {
	case gatt.EventStateChanged:
		s.mu.Lock()
		prev := s.state
		s.state = ev.State
		s.mu.Unlock()

		s.logger.WithFields(logrus.Fields{
			"from": prev,
			"to":   ev.State,
		}).Debug("Manager state changed")

		// the stack drops its GATT database when it goes down
		if ev.State == gatt.StateResetting || ev.State == gatt.StatePoweredOff {
			if n := s.registry.Len(); n > 0 {
				s.logger.WithField("services", n).Info("BLE stack went down, registry cleared")
			}
			s.registry.Reset()
		}
	case gatt.EventRestoreState:
		s.registry.Restore(ev.Services)
	}
}

func (s *Session) dispatch(ev gatt.Event) {
	s.mu.RLock()
	entries := append([]listenerEntry(nil), s.listeners[ev.Type]...)
	s.mu.RUnlock()

	for _, e := range entries {
		s.call(e.fn, ev)
	}
}

func (s *Session) call(fn Listener, ev gatt.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"event": ev.Type,
				"panic": r,
			}).Error("Event listener panicked")
		}
	}()
	fn(ev)
}
