package embertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/embermug/embermug-go/pkg/ble"
)

// Transport represents a mock Bluetooth transport for testing. Seed it
// with advertisements to report during scans and devices to hand out on
// connect.
type Transport struct {
	// Advertisements are reported in order on every scan.
	Advertisements []ble.Advertisement

	// Devices holds connectable devices by uppercase address.
	Devices map[string]*Device

	// Connects tracks the addresses passed to Connect.
	Connects []string

	// Handlers are callbacks overriding specific operations.
	Handlers TransportHandlers

	mu       sync.Mutex
	closed   bool
	scanning bool
	scanDone chan struct{}
}

// TransportHandlers holds callbacks for transport operations. A nil
// callback leaves the default behavior in place.
type TransportHandlers struct {
	// OnConnect is called for every connect attempt.
	OnConnect func(ctx context.Context, address string) (ble.Device, error)

	// OnStartScan is called when a scan begins, before any advertisement
	// is delivered.
	OnStartScan func() error
}

// NewTransport creates a new mock transport with no devices.
func NewTransport() *Transport {
	return &Transport{
		Devices: make(map[string]*Device),
	}
}

// AddDevice registers a device as connectable and announces it in scans.
func (t *Transport) AddDevice(d *Device, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Devices[strings.ToUpper(d.Addr)] = d
	t.Advertisements = append(t.Advertisements, ble.Advertisement{
		Address: d.Addr,
		Name:    name,
	})
}

// StartScan delivers the seeded advertisements on a dispatch goroutine.
func (t *Transport) StartScan(onFound func(ble.Advertisement)) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	if t.scanning {
		t.mu.Unlock()
		return ble.ErrScanActive
	}

	if t.Handlers.OnStartScan != nil {
		if err := t.Handlers.OnStartScan(); err != nil {
			t.mu.Unlock()
			return err
		}
	}

	done := make(chan struct{})
	t.scanning = true
	t.scanDone = done
	advs := make([]ble.Advertisement, len(t.Advertisements))
	copy(advs, t.Advertisements)
	t.mu.Unlock()

	go func() {
		defer close(done)
		for _, adv := range advs {
			onFound(adv)
		}
	}()

	return nil
}

// StopScan joins the dispatch goroutine. When it returns every seeded
// advertisement has been delivered.
func (t *Transport) StopScan() error {
	t.mu.Lock()
	if !t.scanning {
		t.mu.Unlock()
		return nil
	}
	done := t.scanDone
	t.scanning = false
	t.scanDone = nil
	t.mu.Unlock()

	<-done
	return nil
}

// Connect hands out the registered device for the address. Connecting
// again after a disconnect revives the device; its seeded state persists
// across connections, like a real mug's does.
func (t *Transport) Connect(ctx context.Context, address string) (ble.Device, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTransportClosed
	}
	t.Connects = append(t.Connects, address)
	handler := t.Handlers.OnConnect
	device := t.Devices[strings.ToUpper(address)]
	t.mu.Unlock()

	if handler != nil {
		return handler(ctx, address)
	}

	if device == nil {
		return nil, fmt.Errorf("%w: %s", ble.ErrDeviceNotFound, address)
	}

	device.mu.Lock()
	device.Disconnected = false
	device.mu.Unlock()
	return device, nil
}

// Close marks the transport closed. Later connects and scans fail.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// ConnectLog returns a copy of the addresses passed to Connect.
func (t *Transport) ConnectLog() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]string, len(t.Connects))
	copy(result, t.Connects)
	return result
}

// Compile-time interface satisfaction checks.
var (
	_ ble.Transport = (*Transport)(nil)
	_ ble.Device    = (*Device)(nil)
)
