package gatt_test

import (
	"testing"

	"github.com/srg/blimp/internal/gatt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func mustDescriptor(t *testing.T, uuid string, value any) *gatt.Descriptor {
	t.Helper()
	d, err := gatt.NewDescriptor(gatt.DescriptorOptions{UUID: uuid, Value: value})
	require.NoError(t, err)
	return d
}

func mustCharacteristic(t *testing.T, opts gatt.CharacteristicOptions) *gatt.Characteristic {
	t.Helper()
	c, err := gatt.NewCharacteristic(opts)
	require.NoError(t, err)
	return c
}

func TestNewDescriptor(t *testing.T) {
	for _, u := range []string{"2901", "0x2902", "0000290A", "6e400001-b5a3-f393-e0a9-e50e24dcca9e"} {
		t.Run(u, func(t *testing.T) {
			d, err := gatt.NewDescriptor(gatt.DescriptorOptions{UUID: u, Value: "Heart Rate Measurement"})
			require.NoError(t, err)
			assert.Equal(t, gatt.KindText, d.Value().Kind())
			assert.Nil(t, d.Characteristic(), "a fresh descriptor is detached")
		})
	}

	d := mustDescriptor(t, "2901", []byte{0x01})
	assert.Equal(t, gatt.UUID("2901"), d.UUID())
	assert.Equal(t, "Characteristic User Description", d.KnownName())
}

func TestNewDescriptor_Errors(t *testing.T) {
	tests := []struct {
		name  string
		opts  gatt.DescriptorOptions
		want  error
		field string
	}{
		{"missing uuid", gatt.DescriptorOptions{Value: "x"}, gatt.ErrInvalidUUID, ""},
		{"malformed uuid", gatt.DescriptorOptions{UUID: "29G1", Value: "x"}, gatt.ErrInvalidUUID, ""},
		{"missing value", gatt.DescriptorOptions{UUID: "2901"}, gatt.ErrMissingRequiredField, "value"},
		{"aggregate value", gatt.DescriptorOptions{UUID: "2901", Value: []string{"a"}}, gatt.ErrInvalidValueKind, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := gatt.NewDescriptor(tt.opts)
			assert.Nil(t, d)
			require.ErrorIs(t, err, tt.want)
			if tt.field != "" {
				var gerr *gatt.Error
				require.ErrorAs(t, err, &gerr)
				assert.Equal(t, tt.field, gerr.Field)
			}
		})
	}
}

func TestNewCharacteristic_DescriptorOrder(t *testing.T) {
	d1 := mustDescriptor(t, "2901", "Rate")
	d2 := mustDescriptor(t, "2904", []byte{0x04, 0x00})

	c := mustCharacteristic(t, gatt.CharacteristicOptions{
		UUID:        "2A37",
		Value:       []byte{80},
		Properties:  gatt.PropRead | gatt.PropNotify,
		Permissions: gatt.PermReadable,
		Descriptors: []*gatt.Descriptor{d1, d2},
	})

	descs := c.Descriptors()
	require.Len(t, descs, 3)

	auto := descs[0]
	assert.Equal(t, c.UUID(), auto.UUID(), "auto-descriptor carries the characteristic UUID")
	assert.Equal(t, []byte{80}, auto.Value().Bytes(), "auto-descriptor carries the characteristic value")
	assert.Same(t, d1, descs[1])
	assert.Same(t, d2, descs[2])

	for _, d := range descs {
		assert.Same(t, c, d.Characteristic())
	}
}

func TestNewCharacteristic_PassesMasksThrough(t *testing.T) {
	// write-encryption-required without writeable is a platform concern
	c := mustCharacteristic(t, gatt.CharacteristicOptions{
		UUID:        "2A39",
		Properties:  gatt.PropWrite | gatt.PropIndicateEncryptionRequired,
		Permissions: gatt.PermWriteEncryptionRequired,
	})
	assert.Equal(t, gatt.PropWrite|gatt.PropIndicateEncryptionRequired, c.Properties())
	assert.Equal(t, gatt.PermWriteEncryptionRequired, c.Permissions())
	assert.True(t, c.Value().IsEmpty())

	descs := c.Descriptors()
	require.Len(t, descs, 1)
	assert.Equal(t, []byte{}, descs[0].Value().Bytes())
}

func TestNewCharacteristic_Errors(t *testing.T) {
	_, err := gatt.NewCharacteristic(gatt.CharacteristicOptions{UUID: "not-a-uuid"})
	assert.ErrorIs(t, err, gatt.ErrInvalidUUID)

	_, err = gatt.NewCharacteristic(gatt.CharacteristicOptions{})
	assert.ErrorIs(t, err, gatt.ErrInvalidUUID)

	_, err = gatt.NewCharacteristic(gatt.CharacteristicOptions{UUID: "2A37", Value: map[string]any{}})
	assert.ErrorIs(t, err, gatt.ErrInvalidValueKind)

	_, err = gatt.NewCharacteristic(gatt.CharacteristicOptions{UUID: "2A37", Descriptors: []*gatt.Descriptor{nil}})
	assert.ErrorIs(t, err, gatt.ErrMissingRequiredField)
}

func TestNewCharacteristic_DescriptorOwnedOnce(t *testing.T) {
	d := mustDescriptor(t, "2901", "shared")
	first := mustCharacteristic(t, gatt.CharacteristicOptions{UUID: "2A37", Descriptors: []*gatt.Descriptor{d}})

	second, err := gatt.NewCharacteristic(gatt.CharacteristicOptions{UUID: "2A38", Descriptors: []*gatt.Descriptor{d}})
	assert.Nil(t, second)
	require.ErrorIs(t, err, gatt.ErrAlreadyAttached)
	assert.Same(t, first, d.Characteristic(), "failed build must not steal the descriptor")
}

func TestNewCharacteristic_DuplicateDescriptor(t *testing.T) {
	d := mustDescriptor(t, "2901", "twice")

	c, err := gatt.NewCharacteristic(gatt.CharacteristicOptions{UUID: "2A37", Descriptors: []*gatt.Descriptor{d, d}})
	assert.Nil(t, c)
	require.ErrorIs(t, err, gatt.ErrAlreadyAttached)

	var gerr *gatt.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "descriptors[1]", gerr.Field)
	assert.Nil(t, d.Characteristic(), "a failed build leaves the descriptor detached")

	c = mustCharacteristic(t, gatt.CharacteristicOptions{UUID: "2A37", Descriptors: []*gatt.Descriptor{d}})
	assert.Len(t, c.Descriptors(), 2)
}

func TestNewService_InlineThenExplicit(t *testing.T) {
	explicit := []*gatt.Characteristic{
		mustCharacteristic(t, gatt.CharacteristicOptions{UUID: "2A37", Properties: gatt.PropNotify}),
		mustCharacteristic(t, gatt.CharacteristicOptions{UUID: "2A38", Value: uint8(1), Properties: gatt.PropRead}),
	}

	svc, err := gatt.NewService(gatt.ServiceOptions{
		UUID:    "180D",
		Primary: ptr(true),
		Inline: &gatt.InlineCharacteristic{
			Value:       "inline",
			Properties:  ptr(gatt.PropRead),
			Permissions: ptr(gatt.PermReadable),
		},
		Characteristics: explicit,
	})
	require.NoError(t, err)

	chars := svc.Characteristics()
	require.Len(t, chars, 1+len(explicit))
	assert.Equal(t, svc.UUID(), chars[0].UUID(), "inline characteristic takes the service UUID")
	assert.Equal(t, "inline", chars[0].Value().Native())
	assert.Same(t, explicit[0], chars[1])
	assert.Same(t, explicit[1], chars[2])
	for _, c := range chars {
		assert.Same(t, svc, c.Service())
	}
	assert.True(t, svc.IsPrimary())
	assert.Equal(t, "Heart Rate", svc.KnownName())
}

func TestNewService_Errors(t *testing.T) {
	tests := []struct {
		name  string
		opts  gatt.ServiceOptions
		want  error
		field string
	}{
		{"missing uuid", gatt.ServiceOptions{Primary: ptr(true)}, gatt.ErrMissingRequiredField, "uuid"},
		{"missing primary", gatt.ServiceOptions{UUID: "180D"}, gatt.ErrMissingRequiredField, "primary"},
		{"malformed uuid", gatt.ServiceOptions{UUID: "18-0D", Primary: ptr(true)}, gatt.ErrInvalidUUID, ""},
		{
			"inline without properties",
			gatt.ServiceOptions{UUID: "180D", Primary: ptr(true), Inline: &gatt.InlineCharacteristic{
				Value: "x", Permissions: ptr(gatt.PermReadable),
			}},
			gatt.ErrMissingRequiredField, "properties",
		},
		{
			"inline without data",
			gatt.ServiceOptions{UUID: "180D", Primary: ptr(true), Inline: &gatt.InlineCharacteristic{
				Properties: ptr(gatt.PropRead), Permissions: ptr(gatt.PermReadable),
			}},
			gatt.ErrMissingRequiredField, "data",
		},
		{
			"inline without permissions",
			gatt.ServiceOptions{UUID: "180D", Primary: ptr(false), Inline: &gatt.InlineCharacteristic{
				Value: []byte{1}, Properties: ptr(gatt.PropRead),
			}},
			gatt.ErrMissingRequiredField, "permissions",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := gatt.NewService(tt.opts)
			assert.Nil(t, svc)
			require.ErrorIs(t, err, tt.want)
			if tt.field != "" {
				var gerr *gatt.Error
				require.ErrorAs(t, err, &gerr)
				assert.Equal(t, tt.field, gerr.Field)
			}
		})
	}
}

func TestNewService_CharacteristicOwnedOnce(t *testing.T) {
	c := mustCharacteristic(t, gatt.CharacteristicOptions{UUID: "2A19", Value: uint8(50)})
	_, err := gatt.NewService(gatt.ServiceOptions{UUID: "180F", Primary: ptr(true), Characteristics: []*gatt.Characteristic{c}})
	require.NoError(t, err)

	_, err = gatt.NewService(gatt.ServiceOptions{UUID: "180F", Primary: ptr(true), Characteristics: []*gatt.Characteristic{c}})
	assert.ErrorIs(t, err, gatt.ErrAlreadyAttached)
}

func TestNewService_DuplicateCharacteristic(t *testing.T) {
	c := mustCharacteristic(t, gatt.CharacteristicOptions{UUID: "2A37", Properties: gatt.PropNotify})

	svc, err := gatt.NewService(gatt.ServiceOptions{UUID: "180D", Primary: ptr(true), Characteristics: []*gatt.Characteristic{c, c}})
	assert.Nil(t, svc)
	require.ErrorIs(t, err, gatt.ErrAlreadyAttached)

	var gerr *gatt.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "characteristics[1]", gerr.Field)
	assert.Nil(t, c.Service())
}

func TestService_Detach(t *testing.T) {
	c := mustCharacteristic(t, gatt.CharacteristicOptions{UUID: "2A19", Value: uint8(50)})
	first, err := gatt.NewService(gatt.ServiceOptions{UUID: "180F", Primary: ptr(true), Characteristics: []*gatt.Characteristic{c}})
	require.NoError(t, err)

	first.Detach()
	assert.Nil(t, c.Service())

	second, err := gatt.NewService(gatt.ServiceOptions{UUID: "180F", Primary: ptr(true), Characteristics: []*gatt.Characteristic{c}})
	require.NoError(t, err)
	assert.Same(t, second, c.Service())

	first.Detach()
	assert.Same(t, second, c.Service(), "detaching a stale service leaves the new owner alone")
}

func TestMalformedUUID_EveryBuilder(t *testing.T) {
	for _, bad := range []string{"xyz", "12345", "0x12G4", "6e400001-b5a3-f393-e0a9-e50e24dcca9"} {
		t.Run(bad, func(t *testing.T) {
			d, err := gatt.NewDescriptor(gatt.DescriptorOptions{UUID: bad, Value: "v"})
			assert.Nil(t, d)
			assert.ErrorIs(t, err, gatt.ErrInvalidUUID)

			c, err := gatt.NewCharacteristic(gatt.CharacteristicOptions{UUID: bad})
			assert.Nil(t, c)
			assert.ErrorIs(t, err, gatt.ErrInvalidUUID)

			s, err := gatt.NewService(gatt.ServiceOptions{UUID: bad, Primary: ptr(true)})
			assert.Nil(t, s)
			assert.ErrorIs(t, err, gatt.ErrInvalidUUID)
		})
	}
}

func TestEmptyUUID(t *testing.T) {
	_, err := gatt.NewDescriptor(gatt.DescriptorOptions{UUID: "  ", Value: "v"})
	assert.ErrorIs(t, err, gatt.ErrInvalidUUID)

	_, err = gatt.NewCharacteristic(gatt.CharacteristicOptions{})
	assert.ErrorIs(t, err, gatt.ErrInvalidUUID)

	// a service declaration without a type is incomplete rather than malformed
	_, err = gatt.NewService(gatt.ServiceOptions{Primary: ptr(true)})
	assert.ErrorIs(t, err, gatt.ErrMissingRequiredField)
}

func TestService_MarshalJSON(t *testing.T) {
	svc, err := gatt.NewService(gatt.ServiceOptions{
		UUID:    "180F",
		Primary: ptr(true),
		Characteristics: []*gatt.Characteristic{
			mustCharacteristic(t, gatt.CharacteristicOptions{
				UUID: "2A19", Value: []byte{50}, Properties: gatt.PropRead | gatt.PropNotify, Permissions: gatt.PermReadable,
			}),
		},
	})
	require.NoError(t, err)

	data, err := svc.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"uuid": "180F",
		"name": "Battery Service",
		"primary": true,
		"characteristics": [{
			"uuid": "2A19",
			"name": "Battery Level",
			"value": "32",
			"properties": ["read", "notify"],
			"permissions": ["readable"],
			"descriptors": [{"uuid": "2A19", "name": "Battery Level", "kind": "bytes", "value": "32"}]
		}]
	}`, string(data))
}
