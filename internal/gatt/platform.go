package gatt

import (
	"context"
	"time"
)

// Platform is the boundary to the operating system's BLE stack.
//
// AdvertiseService publishes a finished service in the local GATT database and
// returns the platform's rejection reason on failure (stack powered off, duplicate
// UUID, invalid state). Events delivers asynchronous notifications; the channel is
// closed by Close.
type Platform interface {
	AdvertiseService(svc *Service) error
	WithdrawService(svc *Service) error
	WithdrawAllServices() error
	Events() <-chan Event
	Close() error
}

// AuthorizationReporter is implemented by platforms that know the application's
// Bluetooth authorization.
type AuthorizationReporter interface {
	Authorization() AuthorizationStatus
}

// Scanner is implemented by platforms that can discover remote peripherals.
// Discoveries are delivered both to the handler and as PeripheralDiscovered events.
type Scanner interface {
	Scan(ctx context.Context, opts ScanOptions, handler func(PeripheralInfo)) error
}

// ScanOptions configures a central scan.
type ScanOptions struct {
	Services        []UUID        // only report peripherals advertising one of these; empty = all
	AllowDuplicates bool          // report every advertisement, not only the first per peripheral
	Duration        time.Duration // 0 = until ctx is done
}

// EventType identifies a platform notification.
type EventType string

const (
	EventStateChanged         EventType = "updated"
	EventRestoreState         EventType = "restore_state"
	EventPeripheralDiscovered EventType = "peripheral_discovered"
)

// Event is a platform notification. Exactly one of the payload fields is set,
// according to Type.
type Event struct {
	Type       EventType
	State      ManagerState    // EventStateChanged
	Services   []*Service      // EventRestoreState
	Peripheral *PeripheralInfo // EventPeripheralDiscovered
}

// StateChangedEvent builds an EventStateChanged notification.
func StateChangedEvent(state ManagerState) Event {
	return Event{Type: EventStateChanged, State: state}
}

// RestoreStateEvent builds an EventRestoreState notification.
func RestoreStateEvent(services []*Service) Event {
	return Event{Type: EventRestoreState, Services: services}
}

// PeripheralDiscoveredEvent builds an EventPeripheralDiscovered notification.
func PeripheralDiscoveredEvent(p PeripheralInfo) Event {
	return Event{Type: EventPeripheralDiscovered, Peripheral: &p}
}

// PeripheralInfo is a discovered remote peripheral with its advertisement.
type PeripheralInfo struct {
	Address           string
	Name              string
	RSSI              int
	State             PeripheralState
	AdvertisementData AdvertisementData
}

// AdvertisementData is the decoded advertisement payload.
type AdvertisementData struct {
	LocalName        string
	ManufacturerData []byte
	ServiceUUIDs     []UUID
	ServiceData      map[UUID][]byte
	TxPowerLevel     int
	Connectable      bool
}
