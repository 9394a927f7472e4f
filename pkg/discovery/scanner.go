package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/embermug/embermug-go/pkg/ble"
)

// Default scan parameters.
const (
	// DefaultScanDuration is how long a scan listens for advertisements.
	DefaultScanDuration = 5 * time.Second

	// DefaultMatch is the substring a device's label must contain to
	// count as an Ember mug.
	DefaultMatch = "ember"
)

// ScanConfig configures scan behavior.
type ScanConfig struct {
	// Duration is how long the scan listens. Default: 5 seconds.
	Duration time.Duration

	// Match is the case-insensitive substring a device's label must
	// contain. The label combines address and advertised name, so an
	// address fragment matches too. Empty accepts every device.
	Match string

	// OnFound is called once per accepted device with its 1-based
	// index, from the scan's dispatch goroutine. Optional.
	OnFound func(index int, device DiscoveredDevice)
}

// DefaultScanConfig returns the default scan configuration.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Duration: DefaultScanDuration,
		Match:    DefaultMatch,
	}
}

// Scan listens for advertisements and collects matching devices,
// de-duplicated by address in first-seen order. It blocks for the
// configured duration; cancelling ctx ends the scan early and returns
// the devices found so far. An empty result is not an error.
func Scan(ctx context.Context, scanner ble.Scanner, config ScanConfig) ([]DiscoveredDevice, error) {
	if config.Duration == 0 {
		config.Duration = DefaultScanDuration
	}

	// The accumulator is written only from the scanner's dispatch
	// goroutine. StopScan joins that goroutine, so reading it after
	// the stop needs no lock.
	var devices []DiscoveredDevice
	seen := make(map[string]struct{})

	err := scanner.StartScan(func(adv ble.Advertisement) {
		if !matches(adv, config.Match) {
			return
		}
		if _, dup := seen[adv.Address]; dup {
			return
		}
		seen[adv.Address] = struct{}{}
		device := DiscoveredDevice{Address: adv.Address, Label: adv.Name}
		devices = append(devices, device)
		if config.OnFound != nil {
			config.OnFound(len(devices), device)
		}
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
	case <-time.After(config.Duration):
	}

	if err := scanner.StopScan(); err != nil {
		return devices, err
	}
	return devices, nil
}

// matches reports whether an advertisement's label contains the match
// string, ignoring case.
func matches(adv ble.Advertisement, match string) bool {
	if match == "" {
		return true
	}
	return strings.Contains(strings.ToLower(adv.Label()), strings.ToLower(match))
}
