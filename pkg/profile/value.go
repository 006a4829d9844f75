package profile

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Value is an attribute value as written in a profile:
//
//	value: hello           # text
//	value: 42              # integer scalar
//	value: true            # bool scalar
//	value: [0x00, 0x50]    # bytes
//	value: {hex: "0050"}   # bytes
//	value: !!binary AFA=   # bytes
type Value struct {
	native any
}

// Native returns the decoded value in a form accepted by gatt.EncodeValue.
func (v *Value) Native() any {
	if v == nil {
		return nil
	}
	return v.native
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return v.decodeScalar(node)
	case yaml.SequenceNode:
		data := make([]byte, 0, len(node.Content))
		for _, item := range node.Content {
			n, err := strconv.ParseUint(item.Value, 0, 8)
			if err != nil || item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: byte list entries must be integers 0-255, got %q", item.Line, item.Value)
			}
			data = append(data, byte(n))
		}
		v.native = data
		return nil
	case yaml.MappingNode:
		var m struct {
			Hex *string `yaml:"hex"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		if m.Hex == nil {
			return fmt.Errorf("line %d: value mapping must have a hex key", node.Line)
		}
		data, err := hex.DecodeString(strings.ReplaceAll(*m.Hex, " ", ""))
		if err != nil {
			return fmt.Errorf("line %d: invalid hex value: %w", node.Line, err)
		}
		v.native = data
		return nil
	default:
		return fmt.Errorf("line %d: unsupported value", node.Line)
	}
}

func (v *Value) decodeScalar(node *yaml.Node) error {
	switch node.ShortTag() {
	case "!!binary":
		data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(node.Value), ""))
		if err != nil {
			return fmt.Errorf("line %d: invalid binary value: %w", node.Line, err)
		}
		v.native = data
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return err
		}
		v.native = n
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		v.native = f
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		v.native = b
	case "!!null":
		v.native = nil
	default:
		v.native = node.Value
	}
	return nil
}
