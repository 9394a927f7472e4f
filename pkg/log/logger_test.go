package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	// Should not panic with any event type
	event := Event{
		Timestamp: time.Now(),
		Device:    "C9:75:11:22:33:44",
		Direction: DirectionIn,
		Category:  CategoryGatt,
	}

	// Test with nil payloads
	logger.Log(event)

	// Test with gatt payload
	event.Gatt = &GattEvent{Op: GattOpRead, UUID: "fc540002-236c-4c94-8fa9-944a3e5353fa", Size: 2, Data: []byte{0x88, 0x13}}
	logger.Log(event)

	// Test with scan payload
	event.Gatt = nil
	event.Scan = &ScanEvent{Address: "C9:75:11:22:33:44", Name: "Ember Ceramic Mug"}
	logger.Log(event)

	// Test with state change payload
	event.Scan = nil
	event.StateChange = &StateChangeEvent{OldState: "connected", NewState: "paired"}
	logger.Log(event)

	// Test with error payload
	event.StateChange = nil
	event.Error = &ErrorEventData{Message: "test error"}
	logger.Log(event)
}

func TestLoggerInterfaceSatisfaction(t *testing.T) {
	// Compile-time check that NoopLogger satisfies Logger interface
	var _ Logger = NoopLogger{}
	var _ Logger = &NoopLogger{}
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	// NoopLogger should be usable as zero value
	var logger NoopLogger
	logger.Log(Event{})
}
