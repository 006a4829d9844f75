package goble

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/gatt"
)

// propertyMap pairs each go-ble characteristic property with its gatt bit.
// The two encryption-required bits have no go-ble counterpart.
var propertyMap = []struct {
	prop ble.Property
	bit  gatt.PropertyMask
}{
	{ble.CharBroadcast, gatt.PropBroadcast},
	{ble.CharRead, gatt.PropRead},
	{ble.CharWriteNR, gatt.PropWriteWithoutResponse},
	{ble.CharWrite, gatt.PropWrite},
	{ble.CharNotify, gatt.PropNotify},
	{ble.CharIndicate, gatt.PropIndicate},
	{ble.CharSignedWrite, gatt.PropAuthenticatedSignedWrites},
	{ble.CharExtended, gatt.PropExtendedProperties},
}

const unmappedProperties = gatt.PropNotifyEncryptionRequired | gatt.PropIndicateEncryptionRequired

// ToBLEProperty converts a property mask to go-ble flags.
// Bits go-ble cannot express are returned separately.
func ToBLEProperty(m gatt.PropertyMask) (prop ble.Property, dropped gatt.PropertyMask) {
	for _, p := range propertyMap {
		if m&p.bit != 0 {
			prop |= p.prop
		}
	}
	return prop, m & unmappedProperties
}

func toBLEUUID(u gatt.UUID) (ble.UUID, error) {
	bu, err := ble.Parse(u.String())
	if err != nil {
		return nil, fmt.Errorf("convert UUID %s: %w", u, err)
	}
	return bu, nil
}

func fromBLEUUID(u ble.UUID) (gatt.UUID, error) {
	return gatt.ParseUUID(u.String())
}

// toBLEService builds the go-ble view of svc. Permissions are left to the stack:
// go-ble derives access from the property flags.
func toBLEService(svc *gatt.Service, logger *logrus.Logger) (*ble.Service, error) {
	su, err := toBLEUUID(svc.UUID())
	if err != nil {
		return nil, err
	}
	bs := &ble.Service{UUID: su}

	for _, c := range svc.Characteristics() {
		cu, err := toBLEUUID(c.UUID())
		if err != nil {
			return nil, err
		}
		prop, dropped := ToBLEProperty(c.Properties())
		if dropped != 0 {
			logger.WithFields(logrus.Fields{
				"service":        svc.UUID(),
				"characteristic": c.UUID(),
				"dropped":        dropped.String(),
			}).Debug("Property flags not supported by go-ble")
		}

		// Fields are set directly: Characteristic.SetValue would force CharRead.
		bc := &ble.Characteristic{UUID: cu, Property: prop}
		if !c.Value().IsEmpty() {
			bc.Value = c.Value().Bytes()
		}

		for _, d := range c.Descriptors() {
			du, err := toBLEUUID(d.UUID())
			if err != nil {
				return nil, err
			}
			bc.Descriptors = append(bc.Descriptors, &ble.Descriptor{UUID: du, Value: d.Value().Bytes()})
		}
		bs.Characteristics = append(bs.Characteristics, bc)
	}
	return bs, nil
}

// fromBLEAdvertisement converts a go-ble advertisement into PeripheralInfo.
func fromBLEAdvertisement(adv ble.Advertisement) gatt.PeripheralInfo {
	info := gatt.PeripheralInfo{
		Name:  adv.LocalName(),
		RSSI:  adv.RSSI(),
		State: gatt.PeripheralDisconnected,
		AdvertisementData: gatt.AdvertisementData{
			LocalName:        adv.LocalName(),
			ManufacturerData: adv.ManufacturerData(),
			TxPowerLevel:     adv.TxPowerLevel(),
			Connectable:      adv.Connectable(),
		},
	}
	if addr := adv.Addr(); addr != nil {
		info.Address = addr.String()
	}

	for _, u := range adv.Services() {
		if gu, err := fromBLEUUID(u); err == nil {
			info.AdvertisementData.ServiceUUIDs = append(info.AdvertisementData.ServiceUUIDs, gu)
		}
	}
	if sd := adv.ServiceData(); len(sd) > 0 {
		info.AdvertisementData.ServiceData = make(map[gatt.UUID][]byte, len(sd))
		for _, entry := range sd {
			if gu, err := fromBLEUUID(entry.UUID); err == nil {
				info.AdvertisementData.ServiceData[gu] = entry.Data
			}
		}
	}
	return info
}
