package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/embermug/embermug-go/pkg/log"
)

// Names in the BlueZ object tree.
const (
	bluezBusName       = "org.bluez"
	adapterInterface   = "org.bluez.Adapter1"
	deviceInterface    = "org.bluez.Device1"
	charInterface      = "org.bluez.GattCharacteristic1"
	objectManagerIface = "org.freedesktop.DBus.ObjectManager"
	propertiesGet      = "org.freedesktop.DBus.Properties.Get"
	interfacesAdded    = objectManagerIface + ".InterfacesAdded"
)

// Error names BlueZ returns over the bus.
const (
	dbusErrUnknownObject     = "org.freedesktop.DBus.Error.UnknownObject"
	bluezErrDoesNotExist     = "org.bluez.Error.DoesNotExist"
	bluezErrAlreadyExists    = "org.bluez.Error.AlreadyExists"
	bluezErrAlreadyConnected = "org.bluez.Error.AlreadyConnected"
	bluezErrNotConnected     = "org.bluez.Error.NotConnected"
)

// servicesResolvedInterval is the polling interval while waiting for GATT
// service resolution after a connect.
const servicesResolvedInterval = 200 * time.Millisecond

// BlueZ drives the Linux Bluetooth stack over the system D-Bus.
// It implements Transport.
type BlueZ struct {
	config      Config
	conn        *dbus.Conn
	adapterPath dbus.ObjectPath

	logger *slog.Logger

	// Trace logging (optional)
	trace log.Logger

	mu       sync.Mutex
	scanning bool
	sigCh    chan *dbus.Signal
	scanDone chan struct{}
}

// NewBlueZ opens a private connection to the system bus and verifies the
// configured adapter exists.
func NewBlueZ(config Config) (*BlueZ, error) {
	if config.Adapter == "" {
		config.Adapter = "hci0"
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to system bus: %v", ErrTransport, err)
	}

	b := &BlueZ{
		config:      config,
		conn:        conn,
		adapterPath: dbus.ObjectPath("/org/bluez/" + config.Adapter),
		logger:      slog.Default(),
	}

	if err := b.checkAdapter(); err != nil {
		conn.Close()
		return nil, err
	}

	return b, nil
}

// SetLogger sets the operational logger for the transport.
func (b *BlueZ) SetLogger(logger *slog.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// SetTrace sets the trace logger. Must be called before StartScan or Connect.
func (b *BlueZ) SetTrace(trace log.Logger) {
	b.trace = trace
}

// checkAdapter verifies the configured adapter is present on the bus.
func (b *BlueZ) checkAdapter() error {
	objects, err := b.managedObjects()
	if err != nil {
		return err
	}
	if _, ok := objects[b.adapterPath][adapterInterface]; !ok {
		return fmt.Errorf("%w: %s", ErrAdapterNotFound, b.config.Adapter)
	}
	return nil
}

// StartScan begins LE discovery. Every device BlueZ announces, plus every
// device it already knew about, is reported through onFound on a single
// dispatch goroutine.
func (b *BlueZ) StartScan(onFound func(Advertisement)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.scanning {
		return ErrScanActive
	}

	// Subscribe before the initial sweep so devices appearing in between
	// are not missed. The overlap can produce duplicate reports.
	if err := b.conn.AddMatchSignal(
		dbus.WithMatchInterface(objectManagerIface),
		dbus.WithMatchMember("InterfacesAdded"),
	); err != nil {
		return fmt.Errorf("%w: subscribing to device announcements: %v", ErrTransport, err)
	}

	sigCh := make(chan *dbus.Signal, 64)
	b.conn.Signal(sigCh)

	adapter := b.conn.Object(bluezBusName, b.adapterPath)

	// LE-only filter. Some adapters reject filters; scanning still works.
	filter := map[string]interface{}{
		"Transport":     "le",
		"DuplicateData": false,
	}
	if err := adapter.Call(adapterInterface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		b.logger.Debug("discovery filter not applied", "error", err)
	}

	if err := adapter.Call(adapterInterface+".StartDiscovery", 0).Err; err != nil {
		b.conn.RemoveSignal(sigCh)
		_ = b.conn.RemoveMatchSignal(
			dbus.WithMatchInterface(objectManagerIface),
			dbus.WithMatchMember("InterfacesAdded"),
		)
		return fmt.Errorf("%w: starting discovery: %v", ErrTransport, err)
	}

	done := make(chan struct{})
	b.scanning = true
	b.sigCh = sigCh
	b.scanDone = done

	go b.dispatchScan(sigCh, done, onFound)

	return nil
}

// dispatchScan is the sole caller of onFound. It first sweeps devices the
// daemon already knows (they do not re-announce), then relays announcements
// until the signal channel is closed by StopScan.
func (b *BlueZ) dispatchScan(sigCh chan *dbus.Signal, done chan struct{}, onFound func(Advertisement)) {
	defer close(done)

	objects, err := b.managedObjects()
	if err != nil {
		b.logger.Debug("known device sweep failed", "error", err)
	}
	for path, ifaces := range objects {
		props, ok := ifaces[deviceInterface]
		if !ok || !isUnderAdapter(path, b.adapterPath) {
			continue
		}
		if adv, ok := advertisementFromProperties(props); ok {
			b.traceScan(adv)
			onFound(adv)
		}
	}

	for sig := range sigCh {
		adv, ok := advertisementFromSignal(sig, b.adapterPath)
		if !ok {
			continue
		}
		b.traceScan(adv)
		onFound(adv)
	}
}

// StopScan ends discovery and joins the dispatch goroutine. After it
// returns no further onFound callback runs.
func (b *BlueZ) StopScan() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.scanning {
		return nil
	}

	adapter := b.conn.Object(bluezBusName, b.adapterPath)
	stopErr := adapter.Call(adapterInterface+".StopDiscovery", 0).Err

	_ = b.conn.RemoveMatchSignal(
		dbus.WithMatchInterface(objectManagerIface),
		dbus.WithMatchMember("InterfacesAdded"),
	)

	// RemoveSignal guarantees no further sends to sigCh, so closing it is
	// safe and terminates the dispatch loop.
	b.conn.RemoveSignal(b.sigCh)
	close(b.sigCh)
	<-b.scanDone

	b.scanning = false
	b.sigCh = nil
	b.scanDone = nil

	if stopErr != nil {
		return fmt.Errorf("%w: stopping discovery: %v", ErrTransport, stopErr)
	}
	return nil
}

// Connect connects to the device with the given address and resolves its
// GATT characteristics. If ctx carries no deadline the configured
// ConnectTimeout applies to the whole operation.
func (b *BlueZ) Connect(ctx context.Context, address string) (Device, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.ConnectTimeout)
		defer cancel()
	}

	address = strings.ToUpper(address)
	path := devicePath(b.adapterPath, address)
	obj := b.conn.Object(bluezBusName, path)

	if err := obj.CallWithContext(ctx, deviceInterface+".Connect", 0).Err; err != nil {
		if !isDBusError(err, bluezErrAlreadyConnected) {
			return nil, connectError(address, err)
		}
	}

	if err := b.waitServicesResolved(ctx, obj); err != nil {
		_ = obj.Call(deviceInterface+".Disconnect", 0).Err
		return nil, err
	}

	chars, err := b.resolveCharacteristics(path)
	if err != nil {
		_ = obj.Call(deviceInterface+".Disconnect", 0).Err
		return nil, err
	}

	b.logger.Debug("device connected",
		"address", address,
		"characteristics", len(chars))

	return &blueZDevice{
		conn:        b.conn,
		path:        path,
		adapterPath: b.adapterPath,
		address:     address,
		chars:       chars,
		logger:      b.logger,
		trace:       b.trace,
	}, nil
}

// Close releases the adapter handle. An active scan is stopped first.
func (b *BlueZ) Close() error {
	b.mu.Lock()
	scanning := b.scanning
	b.mu.Unlock()

	if scanning {
		if err := b.StopScan(); err != nil {
			b.logger.Debug("stopping scan on close failed", "error", err)
		}
	}
	return b.conn.Close()
}

// waitServicesResolved polls the ServicesResolved device property until the
// GATT database is available or the context expires.
func (b *BlueZ) waitServicesResolved(ctx context.Context, obj dbus.BusObject) error {
	ticker := time.NewTicker(servicesResolvedInterval)
	defer ticker.Stop()

	for {
		var resolved bool
		err := obj.CallWithContext(ctx, propertiesGet, 0, deviceInterface, "ServicesResolved").Store(&resolved)
		if err == nil && resolved {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: gatt services not resolved: %v", ErrTransport, ctx.Err())
		case <-ticker.C:
		}
	}
}

// resolveCharacteristics walks the object tree below the device and maps
// characteristic UUIDs to their object paths.
func (b *BlueZ) resolveCharacteristics(device dbus.ObjectPath) (map[string]dbus.ObjectPath, error) {
	objects, err := b.managedObjects()
	if err != nil {
		return nil, err
	}

	chars := make(map[string]dbus.ObjectPath)
	for path, ifaces := range objects {
		props, ok := ifaces[charInterface]
		if !ok || !isUnderAdapter(path, device) {
			continue
		}
		if id, ok := props["UUID"].Value().(string); ok {
			chars[strings.ToLower(id)] = path
		}
	}
	return chars, nil
}

// managedObjects fetches the full BlueZ object tree.
func (b *BlueZ) managedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	obj := b.conn.Object(bluezBusName, "/")
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := obj.Call(objectManagerIface+".GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("%w: listing managed objects: %v", ErrTransport, err)
	}
	return objects, nil
}

// traceScan records an advertisement in the trace log.
func (b *BlueZ) traceScan(adv Advertisement) {
	if b.trace == nil {
		return
	}
	b.trace.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Category:  log.CategoryScan,
		Scan: &log.ScanEvent{
			Address: adv.Address,
			Name:    adv.Name,
		},
	})
}

// blueZDevice is a connected peripheral handle. It implements Device.
type blueZDevice struct {
	conn        *dbus.Conn
	path        dbus.ObjectPath
	adapterPath dbus.ObjectPath
	address     string

	// chars maps lowercase characteristic UUIDs to their object paths.
	chars map[string]dbus.ObjectPath

	logger *slog.Logger
	trace  log.Logger
}

// Address returns the Bluetooth address of the device.
func (d *blueZDevice) Address() string {
	return d.address
}

// Pair bonds with the device. An existing bond counts as success.
func (d *blueZDevice) Pair(ctx context.Context) error {
	obj := d.conn.Object(bluezBusName, d.path)
	if err := obj.CallWithContext(ctx, deviceInterface+".Pair", 0).Err; err != nil {
		if isDBusError(err, bluezErrAlreadyExists) {
			// Bonded in a previous session.
			return nil
		}
		d.traceError("pair", err)
		return fmt.Errorf("%w: pairing with %s: %v", ErrTransport, d.address, err)
	}
	return nil
}

// Unpair removes the bond by asking the adapter to forget the device.
// BlueZ drops the connection and releases the device object as part of this.
func (d *blueZDevice) Unpair() error {
	adapter := d.conn.Object(bluezBusName, d.adapterPath)
	if err := adapter.Call(adapterInterface+".RemoveDevice", 0, d.path).Err; err != nil {
		if isDBusError(err, bluezErrDoesNotExist) || isDBusError(err, dbusErrUnknownObject) {
			return nil
		}
		d.traceError("unpair", err)
		return fmt.Errorf("%w: unpairing %s: %v", ErrTransport, d.address, err)
	}
	return nil
}

// ReadCharacteristic reads the value of the characteristic with the given UUID.
func (d *blueZDevice) ReadCharacteristic(ctx context.Context, id uuid.UUID) ([]byte, error) {
	obj, err := d.characteristic(id)
	if err != nil {
		return nil, err
	}

	var value []byte
	options := map[string]interface{}{}
	if err := obj.CallWithContext(ctx, charInterface+".ReadValue", 0, options).Store(&value); err != nil {
		d.traceError("read "+id.String(), err)
		return nil, fmt.Errorf("%w: reading %s: %v", ErrTransport, id, err)
	}

	d.traceGatt(log.GattOpRead, log.DirectionIn, id, value)
	return value, nil
}

// WriteCharacteristic writes data to the characteristic with the given UUID.
func (d *blueZDevice) WriteCharacteristic(ctx context.Context, id uuid.UUID, data []byte) error {
	obj, err := d.characteristic(id)
	if err != nil {
		return err
	}

	options := map[string]interface{}{}
	if err := obj.CallWithContext(ctx, charInterface+".WriteValue", 0, data, options).Err; err != nil {
		d.traceError("write "+id.String(), err)
		return fmt.Errorf("%w: writing %s: %v", ErrTransport, id, err)
	}

	d.traceGatt(log.GattOpWrite, log.DirectionOut, id, data)
	return nil
}

// Disconnect drops the connection. A device that already vanished (for
// example after Unpair) counts as disconnected.
func (d *blueZDevice) Disconnect() error {
	obj := d.conn.Object(bluezBusName, d.path)
	if err := obj.Call(deviceInterface+".Disconnect", 0).Err; err != nil {
		if isDBusError(err, dbusErrUnknownObject) ||
			isDBusError(err, bluezErrDoesNotExist) ||
			isDBusError(err, bluezErrNotConnected) {
			return nil
		}
		d.traceError("disconnect", err)
		return fmt.Errorf("%w: disconnecting %s: %v", ErrTransport, d.address, err)
	}
	return nil
}

// characteristic resolves a UUID to its bus object.
func (d *blueZDevice) characteristic(id uuid.UUID) (dbus.BusObject, error) {
	path, ok := d.chars[strings.ToLower(id.String())]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrCharacteristicNotFound, id, d.address)
	}
	return d.conn.Object(bluezBusName, path), nil
}

// traceGatt records a characteristic read or write in the trace log.
func (d *blueZDevice) traceGatt(op log.GattOp, direction log.Direction, id uuid.UUID, data []byte) {
	if d.trace == nil {
		return
	}
	d.trace.Log(log.Event{
		Timestamp: time.Now(),
		Device:    d.address,
		Direction: direction,
		Category:  log.CategoryGatt,
		Gatt: &log.GattEvent{
			Op:   op,
			UUID: id.String(),
			Size: len(data),
			Data: data,
		},
	})
}

// traceError records a failed operation in the trace log.
func (d *blueZDevice) traceError(op string, err error) {
	if d.trace == nil {
		return
	}
	d.trace.Log(log.Event{
		Timestamp: time.Now(),
		Device:    d.address,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Context: op,
			Message: err.Error(),
		},
	})
}

// devicePath derives the BlueZ object path for a device address.
func devicePath(adapterPath dbus.ObjectPath, address string) dbus.ObjectPath {
	return dbus.ObjectPath(string(adapterPath) + "/dev_" + strings.ReplaceAll(strings.ToUpper(address), ":", "_"))
}

// isUnderAdapter reports whether path lies below root in the object tree.
func isUnderAdapter(path, root dbus.ObjectPath) bool {
	return strings.HasPrefix(string(path), string(root)+"/")
}

// isDBusError reports whether err is a D-Bus error with the given name.
func isDBusError(err error, name string) bool {
	var dbusErr dbus.Error
	return errors.As(err, &dbusErr) && dbusErr.Name == name
}

// connectError maps BlueZ connect failures onto transport errors. A device
// the daemon has never seen has no object path, which surfaces as an
// unknown object error.
func connectError(address string, err error) error {
	if isDBusError(err, dbusErrUnknownObject) || isDBusError(err, bluezErrDoesNotExist) {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, address)
	}
	return fmt.Errorf("%w: connecting to %s: %v", ErrTransport, address, err)
}

// advertisementFromProperties extracts a device announcement from Device1
// properties. Devices without an address are ignored.
func advertisementFromProperties(props map[string]dbus.Variant) (Advertisement, bool) {
	address, ok := props["Address"].Value().(string)
	if !ok || address == "" {
		return Advertisement{}, false
	}

	adv := Advertisement{Address: address}
	if name, ok := props["Name"].Value().(string); ok {
		adv.Name = name
	} else if alias, ok := props["Alias"].Value().(string); ok {
		adv.Name = alias
	}
	return adv, true
}

// advertisementFromSignal extracts a device announcement from an
// InterfacesAdded signal. Signals for other adapters, non-device objects
// or foreign signal types are ignored.
func advertisementFromSignal(sig *dbus.Signal, adapterPath dbus.ObjectPath) (Advertisement, bool) {
	if sig.Name != interfacesAdded || len(sig.Body) < 2 {
		return Advertisement{}, false
	}

	path, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok || !isUnderAdapter(path, adapterPath) {
		return Advertisement{}, false
	}

	ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return Advertisement{}, false
	}

	props, ok := ifaces[deviceInterface]
	if !ok {
		return Advertisement{}, false
	}

	return advertisementFromProperties(props)
}
