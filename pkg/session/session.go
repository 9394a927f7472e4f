package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/embermug/embermug-go/pkg/ble"
	"github.com/embermug/embermug-go/pkg/log"
	"github.com/embermug/embermug-go/pkg/protocol"
)

// Session manages one connection to an Ember mug. It owns the transport
// handle exclusively and sequences the connect, pair, operate, release
// workflow. Sessions are single-use: once closed they cannot be opened
// again.
type Session struct {
	mu sync.RWMutex

	address   string
	connector ble.Connector
	device    ble.Device
	state     State
	closed    bool
	logger    *slog.Logger

	// Trace logging (optional)
	trace log.Logger

	closeOnce sync.Once
}

// New creates a session for the device at the given address. The session
// starts disconnected; call Open before any operation.
func New(connector ble.Connector, address string) *Session {
	return &Session{
		connector: connector,
		address:   address,
		logger:    slog.Default(),
	}
}

// SetLogger sets the logger for this session.
func (s *Session) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger != nil {
		s.logger = logger
	}
}

// SetTrace sets the trace logger. State transitions and cleanup failures
// are recorded through it.
func (s *Session) SetTrace(trace log.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = trace
}

// Address returns the device address the session targets.
func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Open connects to the device. A ble.ErrDeviceNotFound from the
// transport passes through unwrapped so callers can match it.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	connector := s.connector
	address := s.address
	s.mu.Unlock()

	device, err := connector.Connect(ctx, address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		// Closed while connecting; release the handle we just got.
		_ = device.Disconnect()
		return ErrClosed
	}
	s.device = device
	s.address = device.Address()
	s.setStateLocked(StateConnected, "")
	s.mu.Unlock()
	return nil
}

// Pair bonds with the device. Pairing an already paired session is not
// an error. The mug only honors writes from a bonded central.
func (s *Session) Pair(ctx context.Context) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	if s.state == StatePaired {
		s.mu.RUnlock()
		return nil
	}
	if s.state != StateConnected {
		s.mu.RUnlock()
		return ErrNotConnected
	}
	device := s.device
	s.mu.RUnlock()

	if err := device.Pair(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.closed && s.state == StateConnected {
		s.setStateLocked(StatePaired, "")
	}
	s.mu.Unlock()
	return nil
}

// Close removes the bond when one was made and drops the connection.
// Teardown runs exactly once; failures during it are logged and traced,
// never returned, so they cannot mask the error of the operation that
// triggered the close. Further calls return nil immediately.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true
		device := s.device
		s.device = nil
		if device == nil {
			return
		}

		if s.state == StatePaired {
			if err := device.Unpair(); err != nil {
				s.logger.Warn("unpair failed during close",
					"address", s.address,
					"error", err)
				s.traceErrorLocked("unpair", err)
			}
			s.setStateLocked(StateUnpaired, "close")
		}

		if err := device.Disconnect(); err != nil {
			s.logger.Warn("disconnect failed during close",
				"address", s.address,
				"error", err)
			s.traceErrorLocked("disconnect", err)
		}
		s.setStateLocked(StateDisconnected, "close")
	})
	return nil
}

// Name reads the mug's name.
func (s *Session) Name(ctx context.Context) (string, error) {
	p, err := s.readChannel(ctx, protocol.ChannelName)
	if err != nil {
		return "", err
	}
	return protocol.DecodeName(p)
}

// LiquidState reads the liquid status.
func (s *Session) LiquidState(ctx context.Context) (protocol.LiquidState, error) {
	p, err := s.readChannel(ctx, protocol.ChannelLiquidState)
	if err != nil {
		return protocol.LiquidStateUnknown, err
	}
	return protocol.DecodeLiquidState(p)
}

// Battery reads the charge level and charging state.
func (s *Session) Battery(ctx context.Context) (protocol.BatteryInfo, error) {
	p, err := s.readChannel(ctx, protocol.ChannelBattery)
	if err != nil {
		return protocol.BatteryInfo{}, err
	}
	return protocol.DecodeBattery(p)
}

// Color reads the LED color.
func (s *Session) Color(ctx context.Context) (protocol.Color, error) {
	p, err := s.readChannel(ctx, protocol.ChannelColor)
	if err != nil {
		return protocol.Color{}, err
	}
	return protocol.DecodeColor(p)
}

// Unit reads the display unit stored on the device.
func (s *Session) Unit(ctx context.Context) (protocol.TemperatureUnit, error) {
	p, err := s.readChannel(ctx, protocol.ChannelTempUnit)
	if err != nil {
		return 0, err
	}
	return protocol.DecodeTempUnit(p)
}

// CurrentTemperature reads the drink temperature in the given unit.
func (s *Session) CurrentTemperature(ctx context.Context, unit protocol.TemperatureUnit) (float64, error) {
	p, err := s.readChannel(ctx, protocol.ChannelCurrentTemp)
	if err != nil {
		return 0, err
	}
	return protocol.DecodeTemperature(p, unit)
}

// TargetTemperature reads the hold target in the given unit.
func (s *Session) TargetTemperature(ctx context.Context, unit protocol.TemperatureUnit) (float64, error) {
	p, err := s.readChannel(ctx, protocol.ChannelTargetTemp)
	if err != nil {
		return 0, err
	}
	return protocol.DecodeTemperature(p, unit)
}

// SetName validates and writes a new mug name, returning the accepted
// form with surrounding whitespace trimmed. Validation happens before
// anything is sent.
func (s *Session) SetName(ctx context.Context, name string) (string, error) {
	p, err := protocol.EncodeName(name)
	if err != nil {
		return "", err
	}
	if err := s.writeChannel(ctx, protocol.ChannelName, p); err != nil {
		return "", err
	}
	return string(p), nil
}

// SetTargetTemperature reads the mug's active unit, validates the value
// in that unit, writes the target and returns the value the device will
// report back together with the unit. Flooring on encode means the
// accepted value can sit a hundredth below the requested one.
func (s *Session) SetTargetTemperature(ctx context.Context, value float64) (float64, protocol.TemperatureUnit, error) {
	unit, err := s.Unit(ctx)
	if err != nil {
		return 0, 0, err
	}

	p, err := protocol.EncodeTemperature(value, unit)
	if err != nil {
		return 0, unit, err
	}
	if err := s.writeChannel(ctx, protocol.ChannelTargetTemp, p); err != nil {
		return 0, unit, err
	}

	accepted, err := protocol.DecodeTemperature(p, unit)
	if err != nil {
		return 0, unit, err
	}
	return accepted, unit, nil
}

// SetTemperatureUnit writes the display unit and returns the accepted
// unit.
func (s *Session) SetTemperatureUnit(ctx context.Context, unit protocol.TemperatureUnit) (protocol.TemperatureUnit, error) {
	if err := s.writeChannel(ctx, protocol.ChannelTempUnit, protocol.EncodeTempUnit(unit)); err != nil {
		return 0, err
	}
	return unit, nil
}

// Status reads a composite snapshot: the unit first, then name, liquid
// state, battery and both temperatures in the unit just read.
func (s *Session) Status(ctx context.Context) (Status, error) {
	unit, err := s.Unit(ctx)
	if err != nil {
		return Status{}, err
	}
	name, err := s.Name(ctx)
	if err != nil {
		return Status{}, err
	}
	liquid, err := s.LiquidState(ctx)
	if err != nil {
		return Status{}, err
	}
	battery, err := s.Battery(ctx)
	if err != nil {
		return Status{}, err
	}
	current, err := s.CurrentTemperature(ctx, unit)
	if err != nil {
		return Status{}, err
	}
	target, err := s.TargetTemperature(ctx, unit)
	if err != nil {
		return Status{}, err
	}

	return Status{
		Name:        name,
		LiquidState: liquid,
		Battery:     battery,
		Unit:        unit,
		CurrentTemp: current,
		TargetTemp:  target,
	}, nil
}

// Run opens the session, pairs, executes fn and always closes the
// session afterwards, including when fn fails.
func (s *Session) Run(ctx context.Context, fn func(*Session) error) error {
	if err := s.Open(ctx); err != nil {
		return err
	}
	defer s.Close()

	if err := s.Pair(ctx); err != nil {
		return err
	}
	return fn(s)
}

// Run executes fn against a fresh session for the address: open, pair,
// fn, close. Build the session with New and use its Run method instead
// when logging or tracing needs to be configured first.
func Run(ctx context.Context, connector ble.Connector, address string, fn func(*Session) error) error {
	return New(connector, address).Run(ctx, fn)
}

// readChannel fetches the raw payload for a channel. Reads are valid
// once connected, before or after pairing.
func (s *Session) readChannel(ctx context.Context, ch protocol.Channel) ([]byte, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	if s.state == StateDisconnected || s.device == nil {
		s.mu.RUnlock()
		return nil, ErrNotConnected
	}
	device := s.device
	s.mu.RUnlock()

	return device.ReadCharacteristic(ctx, ch.UUID())
}

// writeChannel sends a payload to a channel. Writes require the paired
// state.
func (s *Session) writeChannel(ctx context.Context, ch protocol.Channel, data []byte) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	if s.state == StateDisconnected || s.device == nil {
		s.mu.RUnlock()
		return ErrNotConnected
	}
	if s.state != StatePaired {
		s.mu.RUnlock()
		return ErrNotPaired
	}
	device := s.device
	s.mu.RUnlock()

	return device.WriteCharacteristic(ctx, ch.UUID(), data)
}

// setStateLocked transitions the lifecycle state and records it. Callers
// hold mu.
func (s *Session) setStateLocked(next State, reason string) {
	prev := s.state
	s.state = next

	s.logger.Debug("session state changed",
		"address", s.address,
		"from", prev.String(),
		"to", next.String())

	if s.trace == nil {
		return
	}
	s.trace.Log(log.Event{
		Timestamp: time.Now(),
		Device:    s.address,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
}

// traceErrorLocked records a cleanup failure in the trace log. Callers
// hold mu.
func (s *Session) traceErrorLocked(op string, err error) {
	if s.trace == nil {
		return
	}
	s.trace.Log(log.Event{
		Timestamp: time.Now(),
		Device:    s.address,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Context: op,
			Message: err.Error(),
		},
	})
}
