package session

import (
	"errors"

	"github.com/embermug/embermug-go/pkg/protocol"
)

// Session errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotPaired        = errors.New("not paired")
	ErrClosed           = errors.New("session closed")
)

// State identifies where a session is in its lifecycle.
type State int

const (
	// StateDisconnected indicates no connection.
	StateDisconnected State = iota

	// StateConnected indicates an open connection without a bond.
	StateConnected

	// StatePaired indicates an open connection with a bond.
	StatePaired

	// StateUnpaired indicates the bond was removed during teardown.
	StateUnpaired
)

// String returns the session state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnected:
		return "CONNECTED"
	case StatePaired:
		return "PAIRED"
	case StateUnpaired:
		return "UNPAIRED"
	default:
		return "UNKNOWN"
	}
}

// Status is a composite snapshot of the mug. The underlying reads are
// not atomic; the mug may change between them.
type Status struct {
	// Name is the mug's name.
	Name string

	// LiquidState is the liquid status.
	LiquidState protocol.LiquidState

	// Battery is the charge level and charging state.
	Battery protocol.BatteryInfo

	// Unit is the display unit; both temperatures below use it.
	Unit protocol.TemperatureUnit

	// CurrentTemp is the drink temperature.
	CurrentTemp float64

	// TargetTemp is the hold target.
	TargetTemp float64
}
