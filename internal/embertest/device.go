// Package embertest provides mock transport and device implementations for testing.
package embertest

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/embermug/embermug-go/pkg/ble"
	"github.com/embermug/embermug-go/pkg/protocol"
)

// Device represents a mock Ember mug for testing.
type Device struct {
	// Addr is the Bluetooth address the device reports.
	Addr string

	// Values holds the current characteristic payloads by channel.
	Values map[protocol.Channel][]byte

	// Calls tracks operations performed on the device.
	Calls []Call

	// Handlers are callbacks overriding specific operations.
	Handlers DeviceHandlers

	// Paired tracks bond state.
	Paired bool

	// Disconnected is set once Disconnect has been called.
	Disconnected bool

	mu sync.RWMutex
}

// Call records one operation performed on a mock device.
type Call struct {
	// Op is the operation name (read, write, pair, unpair, disconnect).
	Op string

	// Channel is the target channel for read and write operations.
	Channel protocol.Channel

	// Data is the payload for write operations.
	Data []byte
}

// DeviceHandlers holds callbacks for device operations. A nil callback
// leaves the default behavior in place.
type DeviceHandlers struct {
	// OnRead is called for characteristic reads.
	OnRead func(ch protocol.Channel) ([]byte, error)

	// OnWrite is called for characteristic writes.
	OnWrite func(ch protocol.Channel, data []byte) error

	// OnPair is called when the device is asked to bond.
	OnPair func() error

	// OnUnpair is called when the bond is removed.
	OnUnpair func() error

	// OnDisconnect is called when the connection is dropped.
	OnDisconnect func() error
}

// NewDevice creates a new mock device with no seeded values.
func NewDevice(addr string) *Device {
	return &Device{
		Addr:   addr,
		Values: make(map[protocol.Channel][]byte),
		Calls:  make([]Call, 0),
	}
}

// NewMug creates a mock device seeded with a full set of plausible mug
// state so tests only override what they care about: Celsius display,
// 23.5 degrees in the cup, a 55 degree target and a partly charged
// battery.
func NewMug(addr string) *Device {
	d := NewDevice(addr)
	d.SetValue(protocol.ChannelName, []byte("EMBER"))
	d.SetValue(protocol.ChannelTempUnit, protocol.EncodeTempUnit(protocol.UnitCelsius))
	d.SetValue(protocol.ChannelCurrentTemp, TempBytes(23.5))
	d.SetValue(protocol.ChannelTargetTemp, TempBytes(55))
	d.SetValue(protocol.ChannelBattery, []byte{80, 0})
	d.SetValue(protocol.ChannelLiquidState, []byte{byte(protocol.LiquidStateEmpty)})
	d.SetValue(protocol.ChannelColor, []byte{0xFF, 0x60, 0x00, 0xFF})
	return d
}

// TempBytes packs a Celsius value into the wire form used by both
// temperature channels. Unlike the protocol encoder it applies no range
// check, so tests can seed ambient temperatures.
func TempBytes(celsius float64) []byte {
	p := make([]byte, 2)
	binary.LittleEndian.PutUint16(p, uint16(celsius*100))
	return p
}

// SetValue sets the raw payload for a channel.
func (d *Device) SetValue(ch protocol.Channel, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Values[ch] = append([]byte(nil), data...)
}

// Value returns the current payload for a channel.
func (d *Device) Value(ch protocol.Channel) ([]byte, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.Values[ch]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// CallLog returns a copy of all recorded calls.
func (d *Device) CallLog() []Call {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]Call, len(d.Calls))
	copy(result, d.Calls)
	return result
}

// ChannelCalls returns the recorded calls with the given op and channel.
func (d *Device) ChannelCalls(op string, ch protocol.Channel) []Call {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []Call
	for _, c := range d.Calls {
		if c.Op == op && c.Channel == ch {
			result = append(result, c)
		}
	}
	return result
}

// ClearCalls clears the recorded calls.
func (d *Device) ClearCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = d.Calls[:0]
}

func (d *Device) record(c Call) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, c)
}

// Address returns the Bluetooth address of the device.
func (d *Device) Address() string {
	return d.Addr
}

// Pair processes a bonding request.
func (d *Device) Pair(ctx context.Context) error {
	d.record(Call{Op: "pair"})

	if d.Handlers.OnPair != nil {
		return d.Handlers.OnPair()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.Paired = true
	return nil
}

// Unpair processes a bond removal request.
func (d *Device) Unpair() error {
	d.record(Call{Op: "unpair"})

	if d.Handlers.OnUnpair != nil {
		return d.Handlers.OnUnpair()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.Paired = false
	return nil
}

// ReadCharacteristic processes a characteristic read.
func (d *Device) ReadCharacteristic(ctx context.Context, id uuid.UUID) ([]byte, error) {
	ch, ok := protocol.ChannelByUUID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ble.ErrCharacteristicNotFound, id)
	}

	d.record(Call{Op: "read", Channel: ch})

	d.mu.RLock()
	disconnected := d.Disconnected
	d.mu.RUnlock()
	if disconnected {
		return nil, ErrDeviceDisconnected
	}

	if d.Handlers.OnRead != nil {
		return d.Handlers.OnRead(ch)
	}

	value, ok := d.Value(ch)
	if !ok {
		return nil, fmt.Errorf("no value seeded for channel %s", ch)
	}
	return value, nil
}

// WriteCharacteristic processes a characteristic write.
func (d *Device) WriteCharacteristic(ctx context.Context, id uuid.UUID, data []byte) error {
	ch, ok := protocol.ChannelByUUID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ble.ErrCharacteristicNotFound, id)
	}

	d.record(Call{Op: "write", Channel: ch, Data: append([]byte(nil), data...)})

	d.mu.RLock()
	disconnected := d.Disconnected
	d.mu.RUnlock()
	if disconnected {
		return ErrDeviceDisconnected
	}

	if d.Handlers.OnWrite != nil {
		return d.Handlers.OnWrite(ch, data)
	}

	d.SetValue(ch, data)
	return nil
}

// Disconnect processes a connection drop. The device counts as
// disconnected even when the handler reports an error.
func (d *Device) Disconnect() error {
	d.record(Call{Op: "disconnect"})

	d.mu.Lock()
	d.Disconnected = true
	d.mu.Unlock()

	if d.Handlers.OnDisconnect != nil {
		return d.Handlers.OnDisconnect()
	}
	return nil
}
