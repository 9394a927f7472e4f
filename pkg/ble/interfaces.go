package ble

import (
	"context"

	"github.com/google/uuid"
)

// Advertisement describes a device seen during scanning.
type Advertisement struct {
	// Address is the Bluetooth address (AA:BB:CC:DD:EE:FF).
	Address string

	// Name is the advertised device name (may be empty).
	Name string
}

// Label returns the "address: name" form used for matching and display.
func (a Advertisement) Label() string {
	if a.Name == "" {
		return a.Address
	}
	return a.Address + ": " + a.Name
}

// Scanner discovers nearby devices.
// Implemented by BlueZ.
type Scanner interface {
	// StartScan begins discovery and invokes onFound for every device seen.
	// The callback runs on a single dispatch goroutine. The same address
	// may be reported more than once.
	StartScan(onFound func(Advertisement)) error

	// StopScan ends discovery. It blocks until the dispatch goroutine has
	// finished, so no onFound callback runs after it returns.
	StopScan() error
}

// Connector establishes connections to devices.
// Implemented by BlueZ.
type Connector interface {
	// Connect connects to the device with the given address and resolves
	// its GATT characteristics.
	Connect(ctx context.Context, address string) (Device, error)
}

// Device represents a connected peripheral.
type Device interface {
	// Address returns the Bluetooth address of the device.
	Address() string

	// Pair bonds with the device. Pairing with an already bonded device
	// succeeds without error.
	Pair(ctx context.Context) error

	// Unpair removes the bond. The device object is released by the
	// adapter as a side effect.
	Unpair() error

	// ReadCharacteristic reads the value of the characteristic with the
	// given UUID.
	ReadCharacteristic(ctx context.Context, id uuid.UUID) ([]byte, error)

	// WriteCharacteristic writes data to the characteristic with the
	// given UUID.
	WriteCharacteristic(ctx context.Context, id uuid.UUID, data []byte) error

	// Disconnect drops the connection. Disconnecting a device that is
	// already gone succeeds without error.
	Disconnect() error
}

// Transport combines scanning and connecting over one adapter handle.
// Implemented by BlueZ.
type Transport interface {
	Scanner
	Connector

	// Close releases the adapter handle. An active scan is stopped first.
	Close() error
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*BlueZ)(nil)
	_ Device    = (*blueZDevice)(nil)
)
