package embertest

import "errors"

// Mock package errors.
var (
	// ErrTransportClosed is returned when operating on a closed transport.
	ErrTransportClosed = errors.New("transport closed")

	// ErrDeviceDisconnected is returned when operating on a device after
	// Disconnect.
	ErrDeviceDisconnected = errors.New("device disconnected")
)
