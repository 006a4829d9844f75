// Package gatt builds GATT server definitions and tracks the services registered
// with the platform BLE stack.
//
// Entities are assembled bottom-up: descriptors are attached to characteristics,
// characteristics to services, and a finished service is handed to a Platform
// through a Registry. Everything below the Platform boundary (radio, link layer,
// GATT transactions) belongs to the operating system.
//
// Builders are pure and synchronous. The Registry is safe for concurrent use.
package gatt
