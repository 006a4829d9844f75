package profile

import (
	"path/filepath"
	"testing"

	"github.com/srg/blimp/internal/gatt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndBuild(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "heart_rate.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "heart-rate-monitor", p.Name)

	services, err := p.Build()
	require.NoError(t, err)
	require.Len(t, services, 3)

	hr := services[0]
	assert.Equal(t, gatt.UUID("180D"), hr.UUID())
	assert.True(t, hr.IsPrimary())
	chars := hr.Characteristics()
	require.Len(t, chars, 2)
	assert.Equal(t, gatt.PropNotify, chars[0].Properties())
	assert.True(t, chars[0].Value().IsEmpty())
	descs := chars[0].Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "Heart Rate Measurement", descs[1].Value().Native())
	assert.Equal(t, []byte{0x01}, chars[1].Value().Bytes())

	battery := services[1]
	require.Len(t, battery.Characteristics(), 1)
	inline := battery.Characteristics()[0]
	assert.Equal(t, battery.UUID(), inline.UUID())
	assert.Equal(t, []byte{0x32}, inline.Value().Bytes())
	assert.Equal(t, gatt.PropRead|gatt.PropNotify, inline.Properties())
	assert.Equal(t, gatt.PermReadable, inline.Permissions())

	psm := services[2].Characteristics()[0]
	assert.Equal(t, "L2CAP PSM", psm.KnownName())
	assert.Equal(t, int64(192), psm.Value().Native())
}

func TestParse_Values(t *testing.T) {
	p, err := Parse([]byte(`
services:
  - uuid: 1800
    primary: true
    characteristics:
      - {uuid: 2A00, value: blimp}
      - {uuid: 2A01, value: !!binary AFA=}
      - {uuid: 2A02, value: false}
      - {uuid: 2A03, value: 1.5}
      - {uuid: 2A04, value: "42"}
      - {uuid: 2A05, value: {hex: "de ad"}}
`))
	require.NoError(t, err)

	chars := p.Services[0].Characteristics
	assert.Equal(t, "blimp", chars[0].Value.Native())
	assert.Equal(t, []byte{0x00, 0x50}, chars[1].Value.Native())
	assert.Equal(t, false, chars[2].Value.Native())
	assert.Equal(t, 1.5, chars[3].Value.Native())
	assert.Equal(t, "42", chars[4].Value.Native())
	assert.Equal(t, []byte{0xDE, 0xAD}, chars[5].Value.Native())
	assert.Equal(t, "1800", p.Services[0].UUID)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
services:
  - uuid: 180F
    primary: true
    secondary: false
`))
	assert.ErrorContains(t, err, "secondary")
}

func TestParse_BadValues(t *testing.T) {
	for name, doc := range map[string]string{
		"byte out of range": "services: [{uuid: 180F, primary: true, data: [256]}]",
		"bad hex":           "services: [{uuid: 180F, primary: true, data: {hex: zz}}]",
		"mapping no hex":    "services: [{uuid: 180F, primary: true, data: {text: x}}]",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
		path string
	}{
		{
			"missing primary",
			"services: [{uuid: 180F}]",
			gatt.ErrMissingRequiredField, "services[0]",
		},
		{
			"partial inline",
			"services: [{uuid: 180F, primary: true, data: [1], properties: read}]",
			gatt.ErrMissingRequiredField, "services[0]",
		},
		{
			"bad characteristic uuid",
			"services: [{uuid: 180F, primary: true}, {uuid: 180D, primary: true, characteristics: [{uuid: nope}]}]",
			gatt.ErrInvalidUUID, "services[1]: characteristics[0]",
		},
		{
			"descriptor without value",
			"services: [{uuid: 180F, primary: true, characteristics: [{uuid: 2A19, descriptors: [{uuid: 2901}]}]}]",
			gatt.ErrMissingRequiredField, "services[0]: characteristics[0]: descriptors[0]",
		},
		{
			"unknown property",
			"services: [{uuid: 180F, primary: true, characteristics: [{uuid: 2A19, properties: fly}]}]",
			gatt.ErrInvalidValueKind, "services[0]: characteristics[0]: properties",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.doc))
			require.NoError(t, err)

			_, err = p.Build()
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.path+": ")
		})
	}
}

func TestParse_Empty(t *testing.T) {
	p, err := Parse(nil)
	require.NoError(t, err)
	services, err := p.Build()
	require.NoError(t, err)
	assert.Empty(t, services)
}
