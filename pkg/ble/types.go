package ble

import (
	"errors"
	"time"
)

// Transport errors.
var (
	ErrAdapterNotFound        = errors.New("bluetooth adapter not found")
	ErrDeviceNotFound         = errors.New("device not found")
	ErrCharacteristicNotFound = errors.New("characteristic not found")
	ErrScanActive             = errors.New("scan already active")

	// ErrTransport classifies failures of the underlying Bluetooth stack
	// that have no more specific sentinel.
	ErrTransport = errors.New("bluetooth transport failure")
)

// Config configures the BlueZ transport.
type Config struct {
	// Adapter is the adapter name (default: "hci0").
	Adapter string

	// ConnectTimeout bounds Connect when the caller's context carries no
	// deadline. It covers both the link setup and GATT service resolution
	// (default: 30s).
	ConnectTimeout time.Duration
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() Config {
	return Config{
		Adapter:        "hci0",
		ConnectTimeout: 30 * time.Second,
	}
}
