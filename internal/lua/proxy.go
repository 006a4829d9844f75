package lua

import (
	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/pkg/session"
)

func pushAny(L *lua.State, v any) {
	switch x := v.(type) {
	case nil:
		L.PushNil()
	case string:
		L.PushString(x)
	case []byte:
		L.PushString(string(x))
	case bool:
		L.PushBoolean(x)
	case int:
		L.PushInteger(int64(x))
	case int8:
		L.PushInteger(int64(x))
	case int16:
		L.PushInteger(int64(x))
	case int32:
		L.PushInteger(int64(x))
	case int64:
		L.PushInteger(x)
	case uint8:
		L.PushInteger(int64(x))
	case uint16:
		L.PushInteger(int64(x))
	case uint32:
		L.PushInteger(int64(x))
	case uint:
		L.PushNumber(float64(x))
	case uint64:
		L.PushNumber(float64(x))
	case float32:
		L.PushNumber(float64(x))
	case float64:
		L.PushNumber(x)
	default:
		L.PushNil()
	}
}

func setString(L *lua.State, key, value string) {
	L.PushString(value)
	L.SetField(-2, key)
}

func setInt(L *lua.State, key string, value int64) {
	L.PushInteger(value)
	L.SetField(-2, key)
}

func setBool(L *lua.State, key string, value bool) {
	L.PushBoolean(value)
	L.SetField(-2, key)
}

func (api *API) pushDescriptor(L *lua.State, d *gatt.Descriptor) {
	L.NewTable()
	setInt(L, "_ref", int64(api.track(d)))
	setString(L, "uuid", d.UUID().String())
	if name := d.KnownName(); name != "" {
		setString(L, "name", name)
	}
	pushAny(L, d.Value().Native())
	L.SetField(-2, "value")
}

func (api *API) pushCharacteristic(L *lua.State, c *gatt.Characteristic) {
	L.NewTable()
	setInt(L, "_ref", int64(api.track(c)))
	setString(L, "uuid", c.UUID().String())
	if name := c.KnownName(); name != "" {
		setString(L, "name", name)
	}
	setInt(L, "properties", int64(c.Properties()))
	setInt(L, "permissions", int64(c.Permissions()))
	pushAny(L, c.Value().Native())
	L.SetField(-2, "value")

	descriptors := c.Descriptors()
	L.CreateTable(len(descriptors), 0)
	for i, d := range descriptors {
		api.pushDescriptor(L, d)
		L.RawSeti(-2, i+1)
	}
	L.SetField(-2, "descriptors")
}

func (api *API) pushService(L *lua.State, svc *gatt.Service) {
	L.NewTable()
	setInt(L, "_ref", int64(api.track(svc)))
	setString(L, "uuid", svc.UUID().String())
	if name := svc.KnownName(); name != "" {
		setString(L, "name", name)
	}
	setBool(L, "primary", svc.IsPrimary())

	chars := svc.Characteristics()
	L.CreateTable(len(chars), 0)
	for i, c := range chars {
		api.pushCharacteristic(L, c)
		L.RawSeti(-2, i+1)
	}
	L.SetField(-2, "characteristics")
}

// methodBase returns the index of the first real argument of a manager method,
// skipping self when called with colon syntax.
func methodBase(L *lua.State, ref int) int {
	if L.GetTop() >= 1 && L.Type(1) == lua.LUA_TTABLE {
		L.GetField(1, "_ref")
		self := L.Type(-1) == lua.LUA_TNUMBER && L.ToInteger(-1) == ref
		L.Pop(1)
		if self {
			return 2
		}
	}
	return 1
}

func (api *API) pushCentralManager(L *lua.State, m *session.CentralManager) {
	ref := api.track(m)

	L.NewTable()
	setInt(L, "_ref", int64(ref))

	api.setFunction(L, "state", func(L *lua.State) int {
		L.PushInteger(int64(m.State()))
		return 1
	})

	api.setFunction(L, "startScan", func(L *lua.State) int {
		const fn = "startScan"
		base := methodBase(L, ref)
		present, err := optionTable(L, base, true, "services", "allowDuplicates", "duration")
		if err != nil {
			return api.raise(L, fn, err)
		}

		var opts gatt.ScanOptions
		if present {
			uuids, _, err := stringListField(L, base, "services")
			if err != nil {
				return api.raise(L, fn, err)
			}
			for _, s := range uuids {
				u, err := gatt.ParseUUID(s)
				if err != nil {
					return api.raise(L, fn, err)
				}
				opts.Services = append(opts.Services, u)
			}
			if opts.AllowDuplicates, _, err = boolField(L, base, "allowDuplicates"); err != nil {
				return api.raise(L, fn, err)
			}
			if opts.Duration, _, err = durationField(L, base, "duration"); err != nil {
				return api.raise(L, fn, err)
			}
		}

		if err := m.StartScan(api.ctx, opts); err != nil {
			return api.raise(L, fn, err)
		}
		return 0
	})

	api.setFunction(L, "stopScan", func(L *lua.State) int {
		m.StopScan()
		return 0
	})

	api.setFunction(L, "addEventListener", func(L *lua.State) int {
		const fn = "addEventListener"
		base := methodBase(L, ref)
		if L.Type(base) != lua.LUA_TSTRING {
			return api.raise(L, fn, gatt.NewFieldTypeError("event", "string"))
		}
		t, err := session.ParseEventType(L.ToString(base))
		if err != nil {
			return api.raise(L, fn, err)
		}
		if !L.IsFunction(base + 1) {
			return api.raise(L, fn, gatt.NewFieldTypeError("listener", "function"))
		}

		L.PushValue(base + 1)
		cb := L.Ref(lua.LUA_REGISTRYINDEX)
		api.callbacks[cb] = struct{}{}
		m.AddEventListener(t, func(ev gatt.Event) {
			api.callListener(cb, ev)
		})
		return 0
	})
}

// callListener runs a Lua event listener. Listener errors go to the script's
// stderr and do not stop event delivery.
func (api *API) callListener(ref int, ev gatt.Event) {
	api.Engine.DoWithState(func(L *lua.State) any {
		if _, ok := api.callbacks[ref]; !ok {
			return nil
		}

		L.RawGeti(lua.LUA_REGISTRYINDEX, ref)
		api.pushEvent(L, ev)
		if err := L.Call(1, 0); err != nil {
			api.logger.WithFields(logrus.Fields{
				"event": ev.Type,
				"error": err,
			}).Warn("Lua event listener failed")
			api.Engine.Stderr("%s listener error: %v", ev.Type, err)
			L.SetTop(0)
		}
		return nil
	})
}

func (api *API) pushEvent(L *lua.State, ev gatt.Event) {
	L.NewTable()
	setString(L, "type", string(ev.Type))

	switch ev.Type {
	case gatt.EventStateChanged:
		setInt(L, "state", int64(ev.State))
	case gatt.EventRestoreState:
		L.CreateTable(len(ev.Services), 0)
		for i, svc := range ev.Services {
			api.pushService(L, svc)
			L.RawSeti(-2, i+1)
		}
		L.SetField(-2, "services")
	case gatt.EventPeripheralDiscovered:
		if ev.Peripheral == nil {
			return
		}
		p := ev.Peripheral
		setInt(L, "rssi", int64(p.RSSI))

		L.NewTable()
		setString(L, "address", p.Address)
		setString(L, "name", p.Name)
		setInt(L, "state", int64(p.State))
		L.SetField(-2, "peripheral")

		ad := p.AdvertisementData
		L.NewTable()
		setString(L, "localName", ad.LocalName)
		setString(L, "manufacturerData", string(ad.ManufacturerData))
		setInt(L, "txPowerLevel", int64(ad.TxPowerLevel))
		setBool(L, "connectable", ad.Connectable)
		L.CreateTable(len(ad.ServiceUUIDs), 0)
		for i, u := range ad.ServiceUUIDs {
			L.PushString(u.String())
			L.RawSeti(-2, i+1)
		}
		L.SetField(-2, "serviceUUIDs")
		L.NewTable()
		for u, data := range ad.ServiceData {
			L.PushString(string(data))
			L.SetField(-2, u.String())
		}
		L.SetField(-2, "serviceData")
		L.SetField(-2, "advertisementData")
	}
}

