package lua

import (
	"github.com/srg/blimp/internal/gatt"
)

// Constant is a named value published on the ble table.
type Constant struct {
	Name  string
	Value any // int64 or string
}

// L2CAPPSMCharacteristicUUID is the Apple-defined characteristic carrying an L2CAP PSM.
const L2CAPPSMCharacteristicUUID = "ABDD3056-28FA-441D-A470-55A75A52553A"

// Constants returns every ble.* constant in publication order.
func Constants() []Constant {
	return []Constant{
		{"CENTRAL_MANAGER_EVENT_STATE_UPDATED", string(gatt.EventStateChanged)},
		{"CENTRAL_MANAGER_EVENT_STATE_RESTORE", string(gatt.EventRestoreState)},
		{"CENTRAL_MANAGER_EVENT_PERIPHERAL_DISCOVERED", string(gatt.EventPeripheralDiscovered)},

		{"CENTRAL_MANAGER_STATE_UNKNOWN", int64(gatt.StateUnknown)},
		{"CENTRAL_MANAGER_STATE_RESETTING", int64(gatt.StateResetting)},
		{"CENTRAL_MANAGER_STATE_UNSUPPORTED", int64(gatt.StateUnsupported)},
		{"CENTRAL_MANAGER_STATE_UNAUTHORIZED", int64(gatt.StateUnauthorized)},
		{"CENTRAL_MANAGER_STATE_POWERED_OFF", int64(gatt.StatePoweredOff)},
		{"CENTRAL_MANAGER_STATE_POWERED_ON", int64(gatt.StatePoweredOn)},

		{"AUTHORISATION_STATUS_NOT_DETERMINED", int64(gatt.AuthorizationNotDetermined)},
		{"AUTHORISATION_STATUS_RESTRICTED", int64(gatt.AuthorizationRestricted)},
		{"AUTHORISATION_STATUS_DENIED", int64(gatt.AuthorizationDenied)},
		{"AUTHORISATION_STATUS_ALLOWED_ALWAYS", int64(gatt.AuthorizationAllowedAlways)},

		{"ATTRIBUTE_PERMISSION_READABLE", int64(gatt.PermReadable)},
		{"ATTRIBUTE_PERMISSION_WRITEABLE", int64(gatt.PermWriteable)},
		{"ATTRIBUTE_PERMISSION_READ_ENCRYPTION_REQUIRED", int64(gatt.PermReadEncryptionRequired)},
		{"ATTRIBUTE_PERMISSION_WRITE_ENCRYPTION_REQUIRED", int64(gatt.PermWriteEncryptionRequired)},

		{"CHARACTERISTIC_PROPERTIES_BROADCAST", int64(gatt.PropBroadcast)},
		{"CHARACTERISTIC_PROPERTIES_READ", int64(gatt.PropRead)},
		{"CHARACTERISTIC_PROPERTIES_WRITE_WITHOUT_RESPONSE", int64(gatt.PropWriteWithoutResponse)},
		{"CHARACTERISTIC_PROPERTIES_WRITE", int64(gatt.PropWrite)},
		{"CHARACTERISTIC_PROPERTIES_NOTIFY", int64(gatt.PropNotify)},
		{"CHARACTERISTIC_PROPERTIES_INDICATE", int64(gatt.PropIndicate)},
		{"CHARACTERISTIC_PROPERTIES_AUTHENTICATED_SIGNED_WRITES", int64(gatt.PropAuthenticatedSignedWrites)},
		{"CHARACTERISTIC_PROPERTIES_EXTENDED_PROPERTIES", int64(gatt.PropExtendedProperties)},
		{"CHARACTERISTIC_PROPERTIES_NOTIFY_ENCRYPTION_REQUIRED", int64(gatt.PropNotifyEncryptionRequired)},
		{"CHARACTERISTIC_PROPERTIES_INDICATE_ENCRYPTION_REQUIRED", int64(gatt.PropIndicateEncryptionRequired)},

		{"CBUUID_CHARACTERISTIC_EXTENDED_PROPERTIES_STRING", "2900"},
		{"CBUUID_CHARACTERISTIC_USER_DESCRIPTION_STRING", "2901"},
		{"CBUUID_CLIENT_CHARACTERISTIC_CONFIGURATION_STRING", "2902"},
		{"CBUUID_SERVER_CHARACTERISTIC_CONFIGURATION_STRING", "2903"},
		{"CBUUID_CHARACTERISTIC_FORMAT_STRING", "2904"},
		{"CBUUID_CHARACTERISTIC_AGGREGATE_FORMAT_STRING", "2905"},
		{"CBUUID_L2CAPPSM_CHARACTERISTIC_STRING", L2CAPPSMCharacteristicUUID},

		{"PERIPHERAL_STATE_DISCONNECTED", int64(gatt.PeripheralDisconnected)},
		{"PERIPHERAL_STATE_CONNECTING", int64(gatt.PeripheralConnecting)},
		{"PERIPHERAL_STATE_CONNECTED", int64(gatt.PeripheralConnected)},
		{"PERIPHERAL_STATE_DISCONNECTING", int64(gatt.PeripheralDisconnecting)},
	}
}
