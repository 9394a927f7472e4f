// Package discovery implements scanning for Ember mugs over a BLE
// transport.
//
// A scan listens for a fixed duration and collects every advertisement
// whose label contains a match string, "ember" by default. Results are
// de-duplicated by address in first-seen order and kept only for the
// duration of the call; nothing is persisted between scans.
//
// The typical flow pairs Scan with Select:
//
//	devices, err := discovery.Scan(ctx, transport, discovery.DefaultScanConfig())
//	if err != nil {
//		return err
//	}
//	device, ok := discovery.Select(devices, choice)
package discovery
