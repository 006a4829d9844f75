package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/gatt"
)

// CentralOptions configures a CentralManager.
type CentralOptions struct {
	// ShowPowerAlert warns when the manager is created while Bluetooth is not powered on.
	ShowPowerAlert bool
	// RestoreIdentifier names the manager for state restoration; restore
	// notifications are only delivered to managers that set one.
	RestoreIdentifier string
}

// CentralManager is a script-facing handle for central operations: state,
// scanning and event listeners. Listeners it added are removed by Close.
type CentralManager struct {
	session *Session
	opts    CentralOptions

	mu     sync.Mutex
	unsubs []func()
	cancel []context.CancelFunc
}

// NewCentralManager creates a manager bound to the session.
func (s *Session) NewCentralManager(opts CentralOptions) *CentralManager {
	m := &CentralManager{session: s, opts: opts}

	if state := s.State(); opts.ShowPowerAlert && state != gatt.StatePoweredOn {
		s.logger.WithField("state", state).Warn("Bluetooth is not powered on; turn it on to use central features")
	}
	s.logger.WithFields(logrus.Fields{
		"show_power_alert":   opts.ShowPowerAlert,
		"restore_identifier": opts.RestoreIdentifier,
	}).Debug("Central manager created")
	return m
}

func (m *CentralManager) Options() CentralOptions {
	return m.opts
}

// State returns the session's manager state.
func (m *CentralManager) State() gatt.ManagerState {
	return m.session.State()
}

// AddEventListener subscribes fn to events of type t.
func (m *CentralManager) AddEventListener(t gatt.EventType, fn Listener) {
	if t == gatt.EventRestoreState && m.opts.RestoreIdentifier == "" {
		m.session.logger.Debug("Restore listener added to a manager without restore identifier; it will not fire")
		return
	}

	unsub := m.session.Subscribe(t, fn)
	m.mu.Lock()
	m.unsubs = append(m.unsubs, unsub)
	m.mu.Unlock()
}

// StartScan starts a background scan; discoveries are delivered to
// PeripheralDiscovered listeners.
func (m *CentralManager) StartScan(ctx context.Context, opts gatt.ScanOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	if _, err := m.session.Scan(ctx, opts); err != nil {
		cancel()
		return err
	}
	m.mu.Lock()
	m.cancel = append(m.cancel, cancel)
	m.mu.Unlock()
	return nil
}

// StopScan cancels every scan this manager started.
func (m *CentralManager) StopScan() {
	m.mu.Lock()
	cancels := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}

// Close stops scans and removes the manager's listeners.
func (m *CentralManager) Close() {
	m.StopScan()

	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}
