//go:build test

package testutils

import (
	"encoding/json"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/srg/blimp/internal/testutils/mocks"
)

// AdvertisementBuilder builds mocked ble.Advertisement values for scan tests.
// Only fields that were set get a mock expectation; Build fills the rest with
// neutral defaults marked Maybe() so unconfigured reads never fail a test.
type AdvertisementBuilder struct {
	name        *string
	address     *string
	rssi        *int
	services    []string
	manufData   []byte
	serviceData map[string][]byte
	txPower     *int
	connectable *bool
}

// NewAdvertisementBuilder creates an empty AdvertisementBuilder.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{}
}

func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.name = &name
	return b
}

func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.address = &addr
	return b
}

func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.rssi = &rssi
	return b
}

// WithServices adds advertised service UUIDs, short ("180D") or full form.
func (b *AdvertisementBuilder) WithServices(uuids ...string) *AdvertisementBuilder {
	b.services = append(b.services, uuids...)
	return b
}

func (b *AdvertisementBuilder) WithManufacturerData(data []byte) *AdvertisementBuilder {
	b.manufData = data
	return b
}

func (b *AdvertisementBuilder) WithServiceData(uuid string, data []byte) *AdvertisementBuilder {
	if b.serviceData == nil {
		b.serviceData = make(map[string][]byte)
	}
	b.serviceData[uuid] = data
	return b
}

func (b *AdvertisementBuilder) WithTxPower(power int) *AdvertisementBuilder {
	b.txPower = &power
	return b
}

func (b *AdvertisementBuilder) WithConnectable(c bool) *AdvertisementBuilder {
	b.connectable = &c
	return b
}

// FromJSON fills the builder from a JSON object; keys mirror the With* methods.
// Panics on invalid JSON as this is intended for test data setup.
func (b *AdvertisementBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *AdvertisementBuilder {
	var data struct {
		Name             *string           `json:"name"`
		Address          *string           `json:"address"`
		RSSI             *int              `json:"rssi"`
		Services         []string          `json:"services"`
		ManufacturerData []byte            `json:"manufacturerData"`
		ServiceData      map[string][]byte `json:"serviceData"`
		TxPower          *int              `json:"txPower"`
		Connectable      *bool             `json:"connectable"`
	}
	if err := json.Unmarshal([]byte(fmt.Sprintf(jsonStrFmt, args...)), &data); err != nil {
		panic(fmt.Sprintf("AdvertisementBuilder.FromJSON: %v", err))
	}

	b.name, b.address, b.rssi = data.Name, data.Address, data.RSSI
	b.txPower, b.connectable = data.TxPower, data.Connectable
	b.services = data.Services
	b.manufData = data.ManufacturerData
	b.serviceData = data.ServiceData
	return b
}

// Build creates the mock advertisement.
func (b *AdvertisementBuilder) Build() *mocks.MockAdvertisement {
	adv := &mocks.MockAdvertisement{}

	if b.address != nil {
		addr := &mocks.MockAddr{}
		addr.On("String").Return(*b.address)
		adv.On("Addr").Return(addr)
	} else {
		adv.On("Addr").Return(nil).Maybe()
	}

	adv.On("LocalName").Return(deref(b.name, "")).Maybe()
	adv.On("RSSI").Return(deref(b.rssi, -50)).Maybe()
	adv.On("TxPowerLevel").Return(deref(b.txPower, 127)).Maybe()
	adv.On("Connectable").Return(deref(b.connectable, true)).Maybe()
	adv.On("ManufacturerData").Return(b.manufData).Maybe()

	var services []ble.UUID
	for _, s := range b.services {
		services = append(services, ble.MustParse(s))
	}
	adv.On("Services").Return(services).Maybe()

	var serviceData []ble.ServiceData
	for u, data := range b.serviceData {
		serviceData = append(serviceData, ble.ServiceData{UUID: ble.MustParse(u), Data: data})
	}
	adv.On("ServiceData").Return(serviceData).Maybe()
	adv.On("OverflowService").Return([]ble.UUID(nil)).Maybe()
	adv.On("SolicitedService").Return([]ble.UUID(nil)).Maybe()

	return adv
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
