// Package profile decodes declarative GATT service profiles from YAML and
// builds them with the gatt builders.
//
//	services:
//	  - uuid: 180F
//	    primary: true
//	    characteristics:
//	      - uuid: 2A19
//	        value: [50]
//	        properties: read,notify
//	        permissions: readable
//	        descriptors:
//	          - uuid: 2901
//	            value: Battery Level
//
// Unknown keys are rejected.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/srg/blimp/internal/gatt"
	"gopkg.in/yaml.v3"
)

// Profile is a list of service declarations.
type Profile struct {
	Name     string        `yaml:"name"`
	Services []ServiceSpec `yaml:"services"`
}

// ServiceSpec declares a service. Data, Properties and Permissions together form
// the optional inline characteristic.
type ServiceSpec struct {
	UUID            string               `yaml:"uuid"`
	Primary         *bool                `yaml:"primary"`
	Data            *Value               `yaml:"data"`
	Properties      *string              `yaml:"properties"`
	Permissions     *string              `yaml:"permissions"`
	Characteristics []CharacteristicSpec `yaml:"characteristics"`
}

// CharacteristicSpec declares a characteristic.
type CharacteristicSpec struct {
	UUID        string           `yaml:"uuid"`
	Value       *Value           `yaml:"value"`
	Properties  string           `yaml:"properties"`
	Permissions string           `yaml:"permissions"`
	Descriptors []DescriptorSpec `yaml:"descriptors"`
}

// DescriptorSpec declares a descriptor.
type DescriptorSpec struct {
	UUID  string `yaml:"uuid"`
	Value *Value `yaml:"value"`
}

// Load reads and decodes a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a profile document.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return &p, nil
		}
		return nil, err
	}
	return &p, nil
}

// Build builds every service of the profile, in order.
// Errors name the offending entry, e.g. "services[1]: characteristics[0]: ...".
func (p *Profile) Build() ([]*gatt.Service, error) {
	services := make([]*gatt.Service, 0, len(p.Services))
	for i, spec := range p.Services {
		svc, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("services[%d]: %w", i, err)
		}
		services = append(services, svc)
	}
	return services, nil
}

// Build builds the service with its characteristics.
func (s ServiceSpec) Build() (*gatt.Service, error) {
	opts := gatt.ServiceOptions{UUID: s.UUID, Primary: s.Primary}

	if s.Data != nil || s.Properties != nil || s.Permissions != nil {
		inline := &gatt.InlineCharacteristic{}
		if s.Data != nil {
			inline.Value = s.Data.Native()
		}
		if s.Properties != nil {
			props, err := gatt.ParsePropertyMask(*s.Properties)
			if err != nil {
				return nil, fmt.Errorf("properties: %w", err)
			}
			inline.Properties = &props
		}
		if s.Permissions != nil {
			perms, err := gatt.ParsePermissionMask(*s.Permissions)
			if err != nil {
				return nil, fmt.Errorf("permissions: %w", err)
			}
			inline.Permissions = &perms
		}
		opts.Inline = inline
	}

	for i, cs := range s.Characteristics {
		c, err := cs.Build()
		if err != nil {
			return nil, fmt.Errorf("characteristics[%d]: %w", i, err)
		}
		opts.Characteristics = append(opts.Characteristics, c)
	}
	return gatt.NewService(opts)
}

// Build builds the characteristic with its descriptors.
func (c CharacteristicSpec) Build() (*gatt.Characteristic, error) {
	props, err := gatt.ParsePropertyMask(c.Properties)
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}
	perms, err := gatt.ParsePermissionMask(c.Permissions)
	if err != nil {
		return nil, fmt.Errorf("permissions: %w", err)
	}

	opts := gatt.CharacteristicOptions{UUID: c.UUID, Properties: props, Permissions: perms}
	if c.Value != nil {
		opts.Value = c.Value.Native()
	}
	for i, ds := range c.Descriptors {
		d, err := ds.Build()
		if err != nil {
			return nil, fmt.Errorf("descriptors[%d]: %w", i, err)
		}
		opts.Descriptors = append(opts.Descriptors, d)
	}
	return gatt.NewCharacteristic(opts)
}

// Build builds the descriptor.
func (d DescriptorSpec) Build() (*gatt.Descriptor, error) {
	opts := gatt.DescriptorOptions{UUID: d.UUID}
	if d.Value != nil {
		opts.Value = d.Value.Native()
	}
	return gatt.NewDescriptor(opts)
}
