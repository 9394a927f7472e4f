package discovery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/embermug/embermug-go/internal/embertest"
	"github.com/embermug/embermug-go/pkg/ble"
	"github.com/embermug/embermug-go/pkg/discovery"
)

// shortScan keeps the suite fast; the mock delivers all advertisements
// immediately, so the listen window only needs to exist.
func shortScan() discovery.ScanConfig {
	config := discovery.DefaultScanConfig()
	config.Duration = 10 * time.Millisecond
	return config
}

func TestScanMatchesCaseInsensitive(t *testing.T) {
	transport := embertest.NewTransport()
	transport.Advertisements = []ble.Advertisement{
		{Address: "C9:75:11:22:33:44", Name: "EMBER CM19"},
		{Address: "EB:01:55:66:77:88", Name: "Ember Travel Mug"},
		{Address: "AA:BB:CC:DD:EE:FF", Name: "JBL Speaker"},
		{Address: "11:22:33:44:55:66"},
	}

	devices, err := discovery.Scan(context.Background(), transport, shortScan())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices, got %d: %v", len(devices), devices)
	}
	if devices[0].Address != "C9:75:11:22:33:44" || devices[0].Label != "EMBER CM19" {
		t.Errorf("Unexpected first device: %+v", devices[0])
	}
	if devices[1].Address != "EB:01:55:66:77:88" || devices[1].Label != "Ember Travel Mug" {
		t.Errorf("Unexpected second device: %+v", devices[1])
	}
}

func TestScanMatchesAddressFragment(t *testing.T) {
	transport := embertest.NewTransport()
	transport.Advertisements = []ble.Advertisement{
		{Address: "C9:75:11:22:33:44", Name: "CM19"},
	}

	config := shortScan()
	config.Match = "c9:75"

	devices, err := discovery.Scan(context.Background(), transport, config)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("Expected 1 device, got %d", len(devices))
	}
}

func TestScanDeduplicatesByAddress(t *testing.T) {
	transport := embertest.NewTransport()
	transport.Advertisements = []ble.Advertisement{
		{Address: "C9:75:11:22:33:44", Name: "EMBER CM19"},
		{Address: "C9:75:11:22:33:44", Name: "EMBER CM19 again"},
		{Address: "EB:01:55:66:77:88", Name: "Ember Travel Mug"},
	}

	devices, err := discovery.Scan(context.Background(), transport, shortScan())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices, got %d: %v", len(devices), devices)
	}
	// First-seen entry wins
	if devices[0].Label != "EMBER CM19" {
		t.Errorf("Expected first-seen label to survive, got %q", devices[0].Label)
	}
}

func TestScanReportsFoundDevices(t *testing.T) {
	transport := embertest.NewTransport()
	transport.Advertisements = []ble.Advertisement{
		{Address: "C9:75:11:22:33:44", Name: "EMBER CM19"},
		{Address: "EB:01:55:66:77:88", Name: "Ember Travel Mug"},
	}

	type report struct {
		index  int
		device discovery.DiscoveredDevice
	}
	var reports []report

	config := shortScan()
	config.OnFound = func(index int, device discovery.DiscoveredDevice) {
		reports = append(reports, report{index, device})
	}

	if _, err := discovery.Scan(context.Background(), transport, config); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(reports) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(reports))
	}
	if reports[0].index != 1 || reports[1].index != 2 {
		t.Errorf("Expected 1-based indexes 1 and 2, got %d and %d", reports[0].index, reports[1].index)
	}
	if reports[0].device.Address != "C9:75:11:22:33:44" {
		t.Errorf("Unexpected first report: %+v", reports[0].device)
	}
}

func TestScanEmptyMatchAcceptsAll(t *testing.T) {
	transport := embertest.NewTransport()
	transport.Advertisements = []ble.Advertisement{
		{Address: "C9:75:11:22:33:44", Name: "EMBER CM19"},
		{Address: "AA:BB:CC:DD:EE:FF", Name: "JBL Speaker"},
	}

	config := shortScan()
	config.Match = ""

	devices, err := discovery.Scan(context.Background(), transport, config)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(devices) != 2 {
		t.Errorf("Expected 2 devices, got %d", len(devices))
	}
}

func TestScanNothingFound(t *testing.T) {
	transport := embertest.NewTransport()

	devices, err := discovery.Scan(context.Background(), transport, shortScan())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("Expected no devices, got %v", devices)
	}
}

func TestScanStartFailure(t *testing.T) {
	transport := embertest.NewTransport()
	startErr := errors.New("adapter powered off")
	transport.Handlers.OnStartScan = func() error { return startErr }

	_, err := discovery.Scan(context.Background(), transport, shortScan())
	if !errors.Is(err, startErr) {
		t.Errorf("Expected start error, got %v", err)
	}
}

func TestScanCancelledContext(t *testing.T) {
	transport := embertest.NewTransport()
	transport.Advertisements = []ble.Advertisement{
		{Address: "C9:75:11:22:33:44", Name: "EMBER CM19"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := shortScan()
	config.Duration = time.Hour

	start := time.Now()
	devices, err := discovery.Scan(ctx, transport, config)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Scan did not stop early: took %v", elapsed)
	}
	// The mock delivers before the wait begins, so the device is present
	if len(devices) != 1 {
		t.Errorf("Expected 1 device, got %d", len(devices))
	}
}

func TestSelect(t *testing.T) {
	devices := []discovery.DiscoveredDevice{
		{Address: "C9:75:11:22:33:44", Label: "EMBER CM19"},
		{Address: "EB:01:55:66:77:88", Label: "Ember Travel Mug"},
	}

	tests := []struct {
		name   string
		choice int
		want   string
		wantOK bool
	}{
		{name: "first", choice: 1, want: "C9:75:11:22:33:44", wantOK: true},
		{name: "last", choice: 2, want: "EB:01:55:66:77:88", wantOK: true},
		{name: "zero", choice: 0, wantOK: false},
		{name: "past end", choice: 3, wantOK: false},
		{name: "negative", choice: -1, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, ok := discovery.Select(devices, tt.choice)
			if ok != tt.wantOK {
				t.Fatalf("Select(%d) ok = %v, want %v", tt.choice, ok, tt.wantOK)
			}
			if ok && device.Address != tt.want {
				t.Errorf("Select(%d) = %+v, want address %s", tt.choice, device, tt.want)
			}
		})
	}
}

func TestSelectEmptyList(t *testing.T) {
	if _, ok := discovery.Select(nil, 1); ok {
		t.Error("Expected no selection from an empty list")
	}
}

func TestDiscoveredDeviceString(t *testing.T) {
	tests := []struct {
		name   string
		device discovery.DiscoveredDevice
		want   string
	}{
		{
			name:   "with label",
			device: discovery.DiscoveredDevice{Address: "C9:75:11:22:33:44", Label: "EMBER CM19"},
			want:   "C9:75:11:22:33:44: EMBER CM19",
		},
		{
			name:   "address only",
			device: discovery.DiscoveredDevice{Address: "C9:75:11:22:33:44"},
			want:   "C9:75:11:22:33:44",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
