package gatt

// ManagerState mirrors the platform radio state. Values match CoreBluetooth's CBManagerState.
type ManagerState int

const (
	StateUnknown      ManagerState = 0
	StateResetting    ManagerState = 1
	StateUnsupported  ManagerState = 2
	StateUnauthorized ManagerState = 3
	StatePoweredOff   ManagerState = 4
	StatePoweredOn    ManagerState = 5
)

func (s ManagerState) String() string {
	switch s {
	case StateResetting:
		return "resetting"
	case StateUnsupported:
		return "unsupported"
	case StateUnauthorized:
		return "unauthorized"
	case StatePoweredOff:
		return "powered-off"
	case StatePoweredOn:
		return "powered-on"
	default:
		return "unknown"
	}
}

// AuthorizationStatus is the application's permission to use Bluetooth.
// Values match CoreBluetooth's CBManagerAuthorization.
type AuthorizationStatus int

const (
	AuthorizationNotDetermined AuthorizationStatus = 0
	AuthorizationRestricted    AuthorizationStatus = 1
	AuthorizationDenied        AuthorizationStatus = 2
	AuthorizationAllowedAlways AuthorizationStatus = 3
)

func (a AuthorizationStatus) String() string {
	switch a {
	case AuthorizationRestricted:
		return "restricted"
	case AuthorizationDenied:
		return "denied"
	case AuthorizationAllowedAlways:
		return "allowed-always"
	default:
		return "not-determined"
	}
}

// PeripheralState is the connection state of a remote peripheral as seen by a central.
// Values match CoreBluetooth's CBPeripheralState.
type PeripheralState int

const (
	PeripheralDisconnected  PeripheralState = 0
	PeripheralConnecting    PeripheralState = 1
	PeripheralConnected     PeripheralState = 2
	PeripheralDisconnecting PeripheralState = 3
)

func (s PeripheralState) String() string {
	switch s {
	case PeripheralConnecting:
		return "connecting"
	case PeripheralConnected:
		return "connected"
	case PeripheralDisconnecting:
		return "disconnecting"
	default:
		return "disconnected"
	}
}
