package lua

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/aarzilli/golua/lua"
	"github.com/srg/blimp/internal/gatt"
)

// Option tables are decoded strictly: every key must be a declared string key,
// and every value must have the declared shape.

func absIndex(L *lua.State, idx int) int {
	if idx < 0 && idx > lua.LUA_REGISTRYINDEX {
		return L.GetTop() + idx + 1
	}
	return idx
}

// optionTable checks that the value at idx is a table whose keys are all in allowed.
// A missing table is accepted when optional is set.
func optionTable(L *lua.State, idx int, optional bool, allowed ...string) (present bool, err error) {
	switch L.Type(idx) {
	case lua.LUA_TNONE, lua.LUA_TNIL:
		if optional {
			return false, nil
		}
		return false, gatt.NewMissingFieldError("options")
	case lua.LUA_TTABLE:
	default:
		return false, gatt.NewFieldTypeError("options", "table")
	}

	idx = absIndex(L, idx)
	L.PushNil()
	for L.Next(idx) != 0 {
		if L.Type(-2) != lua.LUA_TSTRING {
			key := fmt.Sprintf("[%s]", L.Typename(int(L.Type(-2))))
			if L.Type(-2) == lua.LUA_TNUMBER {
				key = fmt.Sprintf("[%g]", L.ToNumber(-2))
			}
			L.Pop(2)
			return true, gatt.NewUnknownFieldError(key)
		}
		key := L.ToString(-2)
		L.Pop(1)
		if !slices.Contains(allowed, key) {
			L.Pop(1)
			return true, gatt.NewUnknownFieldError(key)
		}
	}
	return true, nil
}

// withField pushes t[name], runs fn when the field is not nil and pops it.
func withField(L *lua.State, idx int, name string, fn func(vi int) error) (present bool, err error) {
	idx = absIndex(L, idx)
	L.GetField(idx, name)
	defer L.Pop(1)
	if L.IsNil(-1) {
		return false, nil
	}
	return true, fn(L.GetTop())
}

func stringField(L *lua.State, idx int, name string) (s string, present bool, err error) {
	present, err = withField(L, idx, name, func(vi int) error {
		if L.Type(vi) != lua.LUA_TSTRING {
			return gatt.NewFieldTypeError(name, "string")
		}
		s = L.ToString(vi)
		return nil
	})
	return s, present, err
}

func boolField(L *lua.State, idx int, name string) (b bool, present bool, err error) {
	present, err = withField(L, idx, name, func(vi int) error {
		if L.Type(vi) != lua.LUA_TBOOLEAN {
			return gatt.NewFieldTypeError(name, "boolean")
		}
		b = L.ToBoolean(vi)
		return nil
	})
	return b, present, err
}

// durationField reads a number of seconds.
func durationField(L *lua.State, idx int, name string) (d time.Duration, present bool, err error) {
	present, err = withField(L, idx, name, func(vi int) error {
		if L.Type(vi) != lua.LUA_TNUMBER {
			return gatt.NewFieldTypeError(name, "number of seconds")
		}
		secs := L.ToNumber(vi)
		if secs < 0 {
			return gatt.NewFieldTypeError(name, "non-negative number of seconds")
		}
		d = time.Duration(secs * float64(time.Second))
		return nil
	})
	return d, present, err
}

// maskField reads a mask given as a number (sum of ble constants) or a
// comma-separated list of names.
func maskField(L *lua.State, idx int, name string, parse func(string) (uint32, error)) (m uint32, present bool, err error) {
	present, err = withField(L, idx, name, func(vi int) error {
		switch L.Type(vi) {
		case lua.LUA_TNUMBER:
			n := L.ToNumber(vi)
			if n < 0 || n > math.MaxUint32 || n != math.Trunc(n) {
				return gatt.NewFieldTypeError(name, "non-negative integer mask")
			}
			m = uint32(n)
			return nil
		case lua.LUA_TSTRING:
			v, perr := parse(L.ToString(vi))
			if perr != nil {
				return &gatt.Error{Kind: gatt.InvalidValueKind, Field: name, Err: perr}
			}
			m = v
			return nil
		default:
			return gatt.NewFieldTypeError(name, "number or string")
		}
	})
	return m, present, err
}

func propertyField(L *lua.State, idx int, name string) (gatt.PropertyMask, bool, error) {
	m, present, err := maskField(L, idx, name, func(s string) (uint32, error) {
		p, err := gatt.ParsePropertyMask(s)
		return uint32(p), err
	})
	return gatt.PropertyMask(m), present, err
}

func permissionField(L *lua.State, idx int, name string) (gatt.PermissionMask, bool, error) {
	m, present, err := maskField(L, idx, name, func(s string) (uint32, error) {
		p, err := gatt.ParsePermissionMask(s)
		return uint32(p), err
	})
	return gatt.PermissionMask(m), present, err
}

func valueField(L *lua.State, idx int, name string) (v any, present bool, err error) {
	present, err = withField(L, idx, name, func(vi int) error {
		v, err = toValue(L, vi, name)
		return err
	})
	return v, present, err
}

// toValue converts a Lua attribute value: strings stay text, integral numbers
// become int64, other numbers float64, booleans bool, and arrays of numbers in
// 0..255 become raw bytes.
func toValue(L *lua.State, idx int, field string) (any, error) {
	switch L.Type(idx) {
	case lua.LUA_TSTRING:
		return L.ToString(idx), nil
	case lua.LUA_TBOOLEAN:
		return L.ToBoolean(idx), nil
	case lua.LUA_TNUMBER:
		n := L.ToNumber(idx)
		if n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 {
			return int64(n), nil
		}
		return n, nil
	case lua.LUA_TTABLE:
		return byteArray(L, idx, field)
	default:
		return nil, &gatt.Error{Kind: gatt.InvalidValueKind, Field: field,
			Msg: "unsupported value type " + L.Typename(int(L.Type(idx)))}
	}
}

func byteArray(L *lua.State, idx int, field string) ([]byte, error) {
	idx = absIndex(L, idx)
	n := int(L.ObjLen(idx))
	out := make([]byte, 0, n)

	count := 0
	L.PushNil()
	for L.Next(idx) != 0 {
		count++
		L.Pop(1)
	}
	if count != n {
		return nil, &gatt.Error{Kind: gatt.InvalidValueKind, Field: field, Msg: "expected an array of bytes"}
	}

	for i := 1; i <= n; i++ {
		L.RawGeti(idx, i)
		b := L.ToNumber(-1)
		ok := L.Type(-1) == lua.LUA_TNUMBER && b >= 0 && b <= 255 && b == math.Trunc(b)
		L.Pop(1)
		if !ok {
			return nil, &gatt.Error{Kind: gatt.InvalidValueKind, Field: fmt.Sprintf("%s[%d]", field, i), Msg: "expected a byte (0..255)"}
		}
		out = append(out, byte(b))
	}
	return out, nil
}

// stringListField reads an array of strings.
func stringListField(L *lua.State, idx int, name string) (list []string, present bool, err error) {
	present, err = withField(L, idx, name, func(vi int) error {
		if L.Type(vi) != lua.LUA_TTABLE {
			return gatt.NewFieldTypeError(name, "array of strings")
		}
		n := int(L.ObjLen(vi))
		for i := 1; i <= n; i++ {
			L.RawGeti(vi, i)
			isString := L.Type(-1) == lua.LUA_TSTRING
			s := L.ToString(-1)
			L.Pop(1)
			if !isString {
				return gatt.NewFieldTypeError(fmt.Sprintf("%s[%d]", name, i), "string")
			}
			list = append(list, s)
		}
		return nil
	})
	return list, present, err
}
