package blimp

import _ "embed"

// DefaultPeripheralLuaScript is the script `blimp run` executes when no file is given.
//
//go:embed examples/peripheral.lua
var DefaultPeripheralLuaScript string

// ExampleProfile is a sample service profile for `blimp serve`.
//
//go:embed examples/heart_rate.yaml
var ExampleProfile string
