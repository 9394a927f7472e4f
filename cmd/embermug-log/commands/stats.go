package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/embermug/embermug-go/pkg/log"
	"github.com/embermug/embermug-go/pkg/protocol"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	EventsByChannel   map[string]int
	Devices           map[string]*DeviceStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// DeviceStats holds statistics for a single device.
type DeviceStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Reads     int
	Writes    int
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		EventsByChannel:   make(map[string]int),
		Devices:           make(map[string]*DeviceStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track per-device stats. Scan events carry no device address.
		if event.Device != "" {
			dev, ok := stats.Devices[event.Device]
			if !ok {
				dev = &DeviceStats{
					FirstSeen: event.Timestamp,
					LastSeen:  event.Timestamp,
				}
				stats.Devices[event.Device] = dev
			}
			dev.Events++
			if event.Timestamp.After(dev.LastSeen) {
				dev.LastSeen = event.Timestamp
			}
			if event.Gatt != nil {
				switch event.Gatt.Op {
				case log.GattOpRead:
					dev.Reads++
				case log.GattOpWrite:
					dev.Writes++
				}
			}
		}

		// Count per-channel traffic
		if event.Gatt != nil {
			stats.EventsByChannel[channelLabel(event.Gatt.UUID)]++
		}

		// Count errors
		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Ember Mug Trace Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by category
	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryGatt, log.CategoryScan, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by direction
	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by channel
	if len(stats.EventsByChannel) > 0 {
		fmt.Fprintln(w, "Events by Channel:")
		printed := make(map[string]bool)
		for _, channel := range protocol.Channels() {
			name := channel.String()
			if count := stats.EventsByChannel[name]; count > 0 {
				fmt.Fprintf(w, "  %-14s %d\n", name+":", count)
				printed[name] = true
			}
		}
		// Characteristics outside the known channel table
		var others []string
		for name := range stats.EventsByChannel {
			if !printed[name] {
				others = append(others, name)
			}
		}
		sort.Strings(others)
		for _, name := range others {
			fmt.Fprintf(w, "  %-14s %d\n", name+":", stats.EventsByChannel[name])
		}
		fmt.Fprintln(w)
	}

	// Devices
	fmt.Fprintf(w, "Devices: %d\n", len(stats.Devices))
	if len(stats.Devices) > 0 {
		// Sort by first seen time
		type deviceInfo struct {
			address string
			stats   *DeviceStats
		}
		devices := make([]deviceInfo, 0, len(stats.Devices))
		for address, ds := range stats.Devices {
			devices = append(devices, deviceInfo{address, ds})
		}
		sort.Slice(devices, func(i, j int) bool {
			return devices[i].stats.FirstSeen.Before(devices[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, d := range devices {
			duration := d.stats.LastSeen.Sub(d.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", d.address, d.stats.Events, duration)
			if d.stats.Reads > 0 || d.stats.Writes > 0 {
				fmt.Fprintf(w, "      Reads: %d, Writes: %d\n", d.stats.Reads, d.stats.Writes)
			}
		}
	}

	// Errors
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
