package log

import "time"

// Event represents a trace event captured during a mug session.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Device is the Bluetooth address of the mug (empty during scanning,
	// before a device has been selected).
	Device string `cbor:"2,keyasint,omitempty"`

	// Direction indicates data flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	Gatt        *GattEvent        `cbor:"5,keyasint,omitempty"` // Characteristic read/write
	Scan        *ScanEvent        `cbor:"6,keyasint,omitempty"` // Advertisement seen
	StateChange *StateChangeEvent `cbor:"7,keyasint,omitempty"` // Session state transition
	Error       *ErrorEventData   `cbor:"8,keyasint,omitempty"` // Errors at any stage
}

// Direction indicates the direction of data flow relative to the host.
type Direction uint8

const (
	// DirectionIn indicates data received from the mug (read results,
	// advertisements).
	DirectionIn Direction = 0
	// DirectionOut indicates data sent to the mug (write payloads).
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryGatt indicates a characteristic read or write.
	CategoryGatt Category = 0
	// CategoryScan indicates an advertisement seen during discovery.
	CategoryScan Category = 1
	// CategoryState indicates a session state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryGatt:
		return "GATT"
	case CategoryScan:
		return "SCAN"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// GattOp distinguishes characteristic reads from writes.
type GattOp uint8

const (
	// GattOpRead indicates a characteristic read.
	GattOpRead GattOp = 0
	// GattOpWrite indicates a characteristic write.
	GattOpWrite GattOp = 1
)

// String returns the operation name.
func (o GattOp) String() string {
	switch o {
	case GattOpRead:
		return "READ"
	case GattOpWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// GattEvent captures a characteristic read or write.
type GattEvent struct {
	// Op distinguishes reads from writes.
	Op GattOp `cbor:"1,keyasint"`

	// UUID is the characteristic identifier in canonical string form.
	UUID string `cbor:"2,keyasint"`

	// Size is the payload size in bytes.
	Size int `cbor:"3,keyasint"`

	// Data is the payload bytes. Ember payloads are at most 14 bytes,
	// so they are always recorded in full.
	Data []byte `cbor:"4,keyasint,omitempty"`
}

// ScanEvent captures an advertisement seen during discovery.
type ScanEvent struct {
	// Address is the Bluetooth address of the advertising device.
	Address string `cbor:"1,keyasint"`

	// Name is the advertised device name (may be empty).
	Name string `cbor:"2,keyasint,omitempty"`
}

// StateChangeEvent captures session lifecycle transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any stage of a session.
type ErrorEventData struct {
	// Context describes what operation was being performed.
	Context string `cbor:"1,keyasint,omitempty"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`
}
