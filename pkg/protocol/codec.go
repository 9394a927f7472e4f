package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// floorEpsilon absorbs float64 representation error before flooring so that
// re-encoding a decoded temperature yields the identical payload bytes. It
// is far below the device's centidegree resolution.
const floorEpsilon = 1e-9

// DecodeBattery interprets the battery channel payload: byte 0 is the
// charge percentage, byte 1 is 1 while the mug is charging.
func DecodeBattery(p []byte) (BatteryInfo, error) {
	if len(p) < 2 {
		return BatteryInfo{}, fmt.Errorf("%w: battery needs 2 bytes, got %d", ErrMalformedPayload, len(p))
	}
	return BatteryInfo{
		Percent:  float64(p[0]),
		Charging: p[1] == 1,
	}, nil
}

// DecodeColor interprets the color channel payload as one byte per RGBA
// component.
func DecodeColor(p []byte) (Color, error) {
	if len(p) < 4 {
		return Color{}, fmt.Errorf("%w: color needs 4 bytes, got %d", ErrMalformedPayload, len(p))
	}
	return Color{R: p[0], G: p[1], B: p[2], A: p[3]}, nil
}

// DecodeTemperature converts a temperature payload to a value in the given
// unit. The payload holds Celsius times 100 as an unsigned little-endian
// 16-bit integer; Fahrenheit conversion happens after unscaling. Render
// results with two decimals ("%.2f").
//
// Both the current-temp and target-temp channels use this layout.
func DecodeTemperature(p []byte, u TemperatureUnit) (float64, error) {
	if len(p) < 2 {
		return 0, fmt.Errorf("%w: temperature needs 2 bytes, got %d", ErrMalformedPayload, len(p))
	}
	celsius := float64(binary.LittleEndian.Uint16(p)) / 100
	if u == UnitFahrenheit {
		return toFahrenheit(celsius), nil
	}
	return celsius, nil
}

// EncodeTemperature validates a target temperature in the given unit and
// packs it into the wire format. The accepted band is inclusive:
// 120-145 for Fahrenheit, 50-62.5 for Celsius. The scaled Celsius value is
// floored, never rounded.
func EncodeTemperature(value float64, u TemperatureUnit) ([]byte, error) {
	celsius := value
	switch u {
	case UnitFahrenheit:
		if value < MinTargetFahrenheit || value > MaxTargetFahrenheit {
			return nil, fmt.Errorf("%w: %.2f deg F (allowed %.0f to %.0f)",
				ErrTargetOutOfRange, value, MinTargetFahrenheit, MaxTargetFahrenheit)
		}
		celsius = toCelsius(value)
	default:
		if value < MinTargetCelsius || value > MaxTargetCelsius {
			return nil, fmt.Errorf("%w: %.2f deg C (allowed %.0f to %.1f)",
				ErrTargetOutOfRange, value, MinTargetCelsius, MaxTargetCelsius)
		}
	}

	p := make([]byte, 2)
	binary.LittleEndian.PutUint16(p, uint16(math.Floor(celsius*100+floorEpsilon)))
	return p, nil
}

// DecodeLiquidState maps the status byte onto the LiquidState enum.
// Codes the firmware has not documented decode to LiquidStateUnknown
// rather than failing; the mug emits transient values between the known
// ones.
func DecodeLiquidState(p []byte) (LiquidState, error) {
	if len(p) < 1 {
		return LiquidStateUnknown, fmt.Errorf("%w: liquid state needs 1 byte", ErrMalformedPayload)
	}
	switch s := LiquidState(p[0]); s {
	case LiquidStateEmpty, LiquidStateFilling, LiquidStateCooling,
		LiquidStateHeating, LiquidStateAtTemperature:
		return s, nil
	default:
		return LiquidStateUnknown, nil
	}
}

// DecodeName decodes the name channel payload as ASCII text.
func DecodeName(p []byte) (string, error) {
	for i, b := range p {
		if b > unicode.MaxASCII {
			return "", fmt.Errorf("%w: byte 0x%02x at offset %d", ErrNameNotASCII, b, i)
		}
	}
	return string(p), nil
}

// EncodeName validates and encodes a mug name. The name is trimmed of
// surrounding whitespace first, then must be ASCII, contain no interior
// spaces, and fit MaxNameBytes. The wire form carries no padding or
// terminator.
func EncodeName(raw string) ([]byte, error) {
	name := strings.TrimSpace(raw)
	for _, r := range name {
		if r > unicode.MaxASCII {
			return nil, fmt.Errorf("%w: %q", ErrNameNotASCII, raw)
		}
	}
	if strings.ContainsRune(name, ' ') {
		return nil, fmt.Errorf("%w: %q", ErrNameHasSpaces, raw)
	}
	if len(name) > MaxNameBytes {
		return nil, fmt.Errorf("%w: %q is %d bytes (max %d)",
			ErrNameTooLong, raw, len(name), MaxNameBytes)
	}
	return []byte(name), nil
}

// DecodeTempUnit maps the unit byte onto the enum: 0 is Celsius, anything
// else Fahrenheit.
func DecodeTempUnit(p []byte) (TemperatureUnit, error) {
	if len(p) < 1 {
		return 0, fmt.Errorf("%w: temp unit needs 1 byte", ErrMalformedPayload)
	}
	if p[0] == 0 {
		return UnitCelsius, nil
	}
	return UnitFahrenheit, nil
}

// EncodeTempUnit packs the unit enum into its single-byte wire form.
func EncodeTempUnit(u TemperatureUnit) []byte {
	if u == UnitCelsius {
		return []byte{0x00}
	}
	return []byte{0x01}
}

func toFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

func toCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}
