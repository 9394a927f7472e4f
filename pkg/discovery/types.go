package discovery

// DiscoveredDevice is one device found during a scan.
type DiscoveredDevice struct {
	// Address is the Bluetooth address as reported by the adapter.
	Address string

	// Label is the advertised device name. May be empty.
	Label string
}

// String renders the device the way scan listings display it.
func (d DiscoveredDevice) String() string {
	if d.Label == "" {
		return d.Address
	}
	return d.Address + ": " + d.Label
}

// Select picks a device from a scan result by 1-based index. Zero or an
// out-of-range choice is not an error, just ok false.
func Select(devices []DiscoveredDevice, choice int) (DiscoveredDevice, bool) {
	if choice < 1 || choice > len(devices) {
		return DiscoveredDevice{}, false
	}
	return devices[choice-1], true
}
