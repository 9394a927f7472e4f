// Package protocol implements the Ember mug attribute codec.
//
// The mug exposes seven vendor-defined GATT characteristics ("channels"),
// each carrying a tiny fixed-layout payload. This package maps those
// payloads to typed values and back, and enforces the validation rules a
// value must pass before it may be written to the device.
//
// # Wire format
//
// Temperatures travel as unsigned little-endian 16-bit integers holding
// Celsius scaled by 100 (two implied decimal digits). Encoding floors the
// scaled value, it never rounds. The battery payload is two bytes (percent,
// charging flag), the liquid state and unit are single bytes, the color is
// four bytes (RGBA), and the name is bare ASCII with no terminator.
//
// All functions here are pure: no I/O, no state. Channel identifiers are a
// fixed table; see Channel.
package protocol
