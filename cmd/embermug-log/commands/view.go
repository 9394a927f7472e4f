// Package commands implements the embermug-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/embermug/embermug-go/pkg/log"
	"github.com/embermug/embermug-go/pkg/protocol"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Device    string
	Direction *log.Direction
	Category  *log.Category
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [dev:address] DIRECTION CATEGORY Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	dev := deviceLabel(event.Device)
	dir := event.Direction.String()

	// Determine event type label
	var typeLabel string
	switch {
	case event.Gatt != nil:
		typeLabel = event.Gatt.Op.String()
	case event.Scan != nil:
		typeLabel = "Advertisement"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [dev:%s] %-3s %s %s\n", ts, dev, dir, event.Category.String(), typeLabel)

	// Type-specific details
	switch {
	case event.Gatt != nil:
		formatGattDetails(w, event.Gatt)
	case event.Scan != nil:
		formatScanDetails(w, event.Scan)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// deviceLabel returns the event's device address, or "-" for events recorded
// before a device was selected.
func deviceLabel(address string) string {
	if address == "" {
		return "-"
	}
	return address
}

// channelLabel resolves a characteristic identifier to its channel name.
// Identifiers outside the known channel table are shown verbatim.
func channelLabel(id string) string {
	u, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	channel, ok := protocol.ChannelByUUID(u)
	if !ok {
		return id
	}
	return channel.String()
}

// formatGattDetails writes characteristic read/write details.
func formatGattDetails(w io.Writer, g *log.GattEvent) {
	fmt.Fprintf(w, "  Channel: %s\n", channelLabel(g.UUID))
	fmt.Fprintf(w, "  Size: %d bytes\n", g.Size)
	if len(g.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s\n", hex.EncodeToString(g.Data))
	}
}

// formatScanDetails writes advertisement details.
func formatScanDetails(w io.Writer, s *log.ScanEvent) {
	fmt.Fprintf(w, "  Address: %s\n", s.Address)
	if s.Name != "" {
		fmt.Fprintf(w, "  Name: %s\n", s.Name)
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// filterEvents returns events matching the filter criteria.
func filterEvents(events []log.Event, filter ViewFilter) []log.Event {
	var result []log.Event
	for _, e := range events {
		if filter.Device != "" && e.Device != filter.Device {
			continue
		}
		if filter.Direction != nil && e.Direction != *filter.Direction {
			continue
		}
		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}
		result = append(result, e)
	}
	return result
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "gatt":
		return log.CategoryGatt, nil
	case "scan":
		return log.CategoryScan, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be gatt, scan, state, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		// Apply filter
		if filter.Device != "" && event.Device != filter.Device {
			continue
		}
		if filter.Direction != nil && event.Direction != *filter.Direction {
			continue
		}
		if filter.Category != nil && event.Category != *filter.Category {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}
