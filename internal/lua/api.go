package lua

import (
	"context"
	"fmt"

	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"
	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/pkg/session"
)

// API publishes the global "ble" table: the peripheral service builders, the
// registry operations and central managers, all backed by one session.
//
// Built entities are returned to Lua as proxy tables. The "_ref" field of a
// proxy identifies the Go entity so it can be passed back, e.g. descriptors
// into addCharacteristic.
type API struct {
	Engine  *Engine
	session *session.Session
	logger  *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// guarded by the Lua state
	objects   map[int]any
	refs      map[any]int
	nextRef   int
	managers  []*session.CentralManager
	callbacks map[int]struct{}

	centralDefaults session.CentralOptions
}

// NewAPI creates an engine with the ble table registered.
func NewAPI(ctx context.Context, s *session.Session, logger *logrus.Logger, outputCapacity int) *API {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(ctx)
	api := &API{
		Engine:  NewEngine(logger, outputCapacity),
		session: s,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	api.register()
	return api
}

// SetCentralDefaults sets the options initCentralManager starts from; fields a
// script passes override them.
func (api *API) SetCentralDefaults(opts session.CentralOptions) {
	api.Engine.DoWithState(func(*lua.State) any {
		api.centralDefaults = opts
		return nil
	})
}

func (api *API) LoadScript(script, name string) error {
	return api.Engine.LoadScript(script, name)
}

func (api *API) LoadScriptFile(filename string) error {
	return api.Engine.LoadScriptFile(filename)
}

// Execute runs the loaded script.
func (api *API) Execute() error {
	return api.Engine.Execute()
}

func (api *API) OutputChannel() <-chan OutputRecord {
	return api.Engine.OutputChannel()
}

// Reset drops every listener and proxy and starts over with a fresh Lua state.
func (api *API) Reset() {
	api.releaseManagers()
	api.Engine.Reset()
	api.register()
}

// Close stops scans, removes listeners and closes the engine. Registered
// services stay with the session.
func (api *API) Close() {
	api.cancel()
	api.releaseManagers()
	api.Engine.Close()
}

func (api *API) releaseManagers() {
	api.Engine.DoWithState(func(L *lua.State) any {
		for _, m := range api.managers {
			m.Close()
		}
		for ref := range api.callbacks {
			L.Unref(lua.LUA_REGISTRYINDEX, ref)
		}
		api.managers = nil
		clear(api.callbacks)
		return nil
	})
}

func (api *API) register() {
	api.Engine.DoWithState(func(L *lua.State) any {
		api.objects = make(map[int]any)
		api.refs = make(map[any]int)
		api.callbacks = make(map[int]struct{})
		api.nextRef = 0

		L.NewTable()
		for _, c := range Constants() {
			pushAny(L, c.Value)
			L.SetField(-2, c.Name)
		}

		api.setFunction(L, "addDescriptor", api.addDescriptor)
		api.setFunction(L, "addCharacteristic", api.addCharacteristic)
		api.setFunction(L, "addService", api.addService)
		api.setFunction(L, "removeServices", api.removeServices)
		api.setFunction(L, "removeAllServices", api.removeAllServices)
		api.setFunction(L, "authorizationState", api.authorizationState)
		api.setFunction(L, "initCentralManager", api.initCentralManager)

		L.SetGlobal("ble")
		return nil
	})
}

// setFunction sets t[name] on the table at the top of the stack.
func (api *API) setFunction(L *lua.State, name string, fn lua.LuaGoFunction) {
	L.PushGoFunction(api.Engine.SafeWrapGoFunction(name, fn))
	L.SetField(-2, name)
}

// raise turns err into a Lua error prefixed with the function name. It does not return.
func (api *API) raise(L *lua.State, fn string, err error) int {
	api.logger.WithFields(logrus.Fields{
		"function": fn,
		"error":    err,
	}).Debug("Lua API call failed")
	L.RaiseError(fmt.Sprintf("%s: %v", fn, err))
	return 0
}

// track returns the proxy ref of obj, allocating one the first time obj is seen.
func (api *API) track(obj any) int {
	if ref, ok := api.refs[obj]; ok {
		return ref
	}
	api.nextRef++
	api.objects[api.nextRef] = obj
	api.refs[obj] = api.nextRef
	return api.nextRef
}

// proxy returns the entity behind the proxy table at idx.
func (api *API) proxy(L *lua.State, idx int) (any, bool) {
	if L.Type(idx) != lua.LUA_TTABLE {
		return nil, false
	}
	L.GetField(idx, "_ref")
	defer L.Pop(1)
	if L.Type(-1) != lua.LUA_TNUMBER {
		return nil, false
	}
	obj, ok := api.objects[L.ToInteger(-1)]
	return obj, ok
}

// proxyList reads t[name] as an array of proxies of type T.
func proxyList[T any](api *API, L *lua.State, idx int, name, want string) (list []T, err error) {
	_, err = withField(L, idx, name, func(vi int) error {
		if L.Type(vi) != lua.LUA_TTABLE {
			return gatt.NewFieldTypeError(name, "array of "+want)
		}
		n := int(L.ObjLen(vi))
		for i := 1; i <= n; i++ {
			L.RawGeti(vi, i)
			obj, _ := api.proxy(L, L.GetTop())
			L.Pop(1)
			item, ok := obj.(T)
			if !ok {
				return gatt.NewFieldTypeError(fmt.Sprintf("%s[%d]", name, i), want)
			}
			list = append(list, item)
		}
		return nil
	})
	return list, err
}

// ble.addDescriptor{uuid=..., value=...}
func (api *API) addDescriptor(L *lua.State) int {
	const fn = "addDescriptor"
	if _, err := optionTable(L, 1, false, "uuid", "value"); err != nil {
		return api.raise(L, fn, err)
	}
	uuid, _, err := stringField(L, 1, "uuid")
	if err != nil {
		return api.raise(L, fn, err)
	}
	value, _, err := valueField(L, 1, "value")
	if err != nil {
		return api.raise(L, fn, err)
	}

	d, err := gatt.NewDescriptor(gatt.DescriptorOptions{UUID: uuid, Value: value})
	if err != nil {
		return api.raise(L, fn, err)
	}
	api.pushDescriptor(L, d)
	return 1
}

// ble.addCharacteristic{uuid=..., value=..., properties=..., permissions=..., descriptors={...}}
func (api *API) addCharacteristic(L *lua.State) int {
	const fn = "addCharacteristic"
	if _, err := optionTable(L, 1, false, "uuid", "value", "properties", "permissions", "descriptors"); err != nil {
		return api.raise(L, fn, err)
	}
	uuid, _, err := stringField(L, 1, "uuid")
	if err != nil {
		return api.raise(L, fn, err)
	}
	value, _, err := valueField(L, 1, "value")
	if err != nil {
		return api.raise(L, fn, err)
	}
	props, ok, err := propertyField(L, 1, "properties")
	if err == nil && !ok {
		err = gatt.NewMissingFieldError("properties")
	}
	if err != nil {
		return api.raise(L, fn, err)
	}
	perms, ok, err := permissionField(L, 1, "permissions")
	if err == nil && !ok {
		err = gatt.NewMissingFieldError("permissions")
	}
	if err != nil {
		return api.raise(L, fn, err)
	}
	descriptors, err := proxyList[*gatt.Descriptor](api, L, 1, "descriptors", "descriptor")
	if err != nil {
		return api.raise(L, fn, err)
	}

	c, err := gatt.NewCharacteristic(gatt.CharacteristicOptions{
		UUID:        uuid,
		Value:       value,
		Properties:  props,
		Permissions: perms,
		Descriptors: descriptors,
	})
	if err != nil {
		return api.raise(L, fn, err)
	}
	api.pushCharacteristic(L, c)
	return 1
}

// ble.addService{uuid=..., primary=..., data=..., properties=..., permissions=..., characteristics={...}}
// builds the service and registers it.
func (api *API) addService(L *lua.State) int {
	const fn = "addService"
	if _, err := optionTable(L, 1, false, "uuid", "primary", "data", "properties", "permissions", "characteristics"); err != nil {
		return api.raise(L, fn, err)
	}

	var opts gatt.ServiceOptions
	uuid, _, err := stringField(L, 1, "uuid")
	if err != nil {
		return api.raise(L, fn, err)
	}
	opts.UUID = uuid

	primary, ok, err := boolField(L, 1, "primary")
	if err != nil {
		return api.raise(L, fn, err)
	}
	if ok {
		opts.Primary = &primary
	}

	data, hasData, err := valueField(L, 1, "data")
	if err != nil {
		return api.raise(L, fn, err)
	}
	props, hasProps, err := propertyField(L, 1, "properties")
	if err != nil {
		return api.raise(L, fn, err)
	}
	perms, hasPerms, err := permissionField(L, 1, "permissions")
	if err != nil {
		return api.raise(L, fn, err)
	}
	if hasData || hasProps || hasPerms {
		opts.Inline = &gatt.InlineCharacteristic{Value: data}
		if hasProps {
			opts.Inline.Properties = &props
		}
		if hasPerms {
			opts.Inline.Permissions = &perms
		}
	}

	if opts.Characteristics, err = proxyList[*gatt.Characteristic](api, L, 1, "characteristics", "characteristic"); err != nil {
		return api.raise(L, fn, err)
	}

	svc, err := gatt.NewService(opts)
	if err != nil {
		return api.raise(L, fn, err)
	}
	if err := api.session.Register(svc); err != nil {
		svc.Detach()
		return api.raise(L, fn, err)
	}
	api.pushService(L, svc)
	return 1
}

// ble.removeServices{service=svc}
func (api *API) removeServices(L *lua.State) int {
	const fn = "removeServices"
	if _, err := optionTable(L, 1, false, "service"); err != nil {
		return api.raise(L, fn, err)
	}

	L.GetField(1, "service")
	obj, _ := api.proxy(L, L.GetTop())
	isNil := L.IsNil(-1)
	L.Pop(1)

	svc, ok := obj.(*gatt.Service)
	switch {
	case isNil:
		return api.raise(L, fn, gatt.NewMissingFieldError("service"))
	case !ok:
		return api.raise(L, fn, gatt.NewFieldTypeError("service", "service"))
	}

	if err := api.session.Registry().Remove(svc.UUID()); err != nil {
		return api.raise(L, fn, err)
	}
	return 0
}

// ble.removeAllServices()
func (api *API) removeAllServices(L *lua.State) int {
	if err := api.session.Registry().RemoveAll(); err != nil {
		return api.raise(L, "removeAllServices", err)
	}
	return 0
}

// ble.authorizationState()
func (api *API) authorizationState(L *lua.State) int {
	L.PushInteger(int64(api.session.AuthorizationState()))
	return 1
}

// ble.initCentralManager{showPowerAlert=..., restoreIdentifier=...}
func (api *API) initCentralManager(L *lua.State) int {
	const fn = "initCentralManager"
	present, err := optionTable(L, 1, true, "showPowerAlert", "restoreIdentifier")
	if err != nil {
		return api.raise(L, fn, err)
	}

	opts := api.centralDefaults
	if present {
		alert, set, err := boolField(L, 1, "showPowerAlert")
		if err != nil {
			return api.raise(L, fn, err)
		}
		if set {
			opts.ShowPowerAlert = alert
		}
		id, set, err := stringField(L, 1, "restoreIdentifier")
		if err != nil {
			return api.raise(L, fn, err)
		}
		if set {
			opts.RestoreIdentifier = id
		}
	}

	m := api.session.NewCentralManager(opts)
	api.managers = append(api.managers, m)
	api.pushCentralManager(L, m)
	return 1
}
