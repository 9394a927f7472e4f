package protocol

import (
	"errors"
	"fmt"
)

// Codec errors.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrNameNotASCII     = errors.New("mug name is not ASCII-safe")
	ErrNameHasSpaces    = errors.New("mug name contains spaces")
	ErrNameTooLong      = errors.New("mug name too long")
	ErrTargetOutOfRange = errors.New("target temperature out of range")
	ErrInvalidUnit      = errors.New("invalid temperature unit")
)

// MaxNameBytes is the longest mug name the firmware accepts, in encoded
// ASCII bytes.
const MaxNameBytes = 14

// Target temperature limits, inclusive. The device only holds temperatures
// in this band.
const (
	MinTargetCelsius    = 50.0
	MaxTargetCelsius    = 62.5
	MinTargetFahrenheit = 120.0
	MaxTargetFahrenheit = 145.0
)

// TemperatureUnit identifies the unit the mug displays and accepts
// temperatures in. The unit is stored on the device itself; it is read
// before any temperature conversion, never assumed.
type TemperatureUnit uint8

const (
	UnitCelsius    TemperatureUnit = 0
	UnitFahrenheit TemperatureUnit = 1
)

// String returns the single-letter unit name, "C" or "F".
func (u TemperatureUnit) String() string {
	if u == UnitCelsius {
		return "C"
	}
	return "F"
}

// ParseTemperatureUnit maps the spellings "C" and "F" onto the enum.
// Anything else fails with ErrInvalidUnit.
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch s {
	case "C":
		return UnitCelsius, nil
	case "F":
		return UnitFahrenheit, nil
	default:
		return 0, fmt.Errorf("%w: %q (must be C or F)", ErrInvalidUnit, s)
	}
}

// LiquidState is the mug's liquid status, decoded from the status byte.
// The byte values are the firmware's own codes; gaps in the numbering are
// the firmware's, not ours.
type LiquidState uint8

const (
	LiquidStateUnknown       LiquidState = 0
	LiquidStateEmpty         LiquidState = 1
	LiquidStateFilling       LiquidState = 2
	LiquidStateCooling       LiquidState = 4
	LiquidStateHeating       LiquidState = 5
	LiquidStateAtTemperature LiquidState = 6
)

// String returns the display name for the state.
func (s LiquidState) String() string {
	switch s {
	case LiquidStateEmpty:
		return "Empty"
	case LiquidStateFilling:
		return "Filling"
	case LiquidStateCooling:
		return "Cooling"
	case LiquidStateHeating:
		return "Heating"
	case LiquidStateAtTemperature:
		return "At Temperature"
	default:
		return "Unknown"
	}
}

// BatteryInfo is the decoded battery channel payload.
type BatteryInfo struct {
	// Percent is the charge level, 0-100, rendered with one decimal.
	Percent float64

	// Charging reports whether the mug is sitting on a powered coaster.
	Charging bool
}

// StateLabel returns the charging state display string.
func (b BatteryInfo) StateLabel() string {
	if b.Charging {
		return "Charging"
	}
	return "Not Charging"
}

// Color is the mug LED color as transmitted, one byte per component.
type Color struct {
	R, G, B, A uint8
}

// String renders the color as #RRGGBBAA.
func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
