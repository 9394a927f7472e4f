package protocol

import "github.com/google/uuid"

// Channel identifies one of the mug's GATT attribute channels.
type Channel uint8

const (
	ChannelName Channel = iota
	ChannelCurrentTemp
	ChannelTargetTemp
	ChannelTempUnit
	ChannelBattery
	ChannelLiquidState
	ChannelColor
)

// Vendor-assigned characteristic identifiers. All channels share the
// fc54xxxx-236c-4c94-8fa9-944a3e5353fa base; only the second half of the
// first group varies.
var (
	uuidName        = uuid.MustParse("fc540001-236c-4c94-8fa9-944a3e5353fa")
	uuidCurrentTemp = uuid.MustParse("fc540002-236c-4c94-8fa9-944a3e5353fa")
	uuidTargetTemp  = uuid.MustParse("fc540003-236c-4c94-8fa9-944a3e5353fa")
	uuidTempUnit    = uuid.MustParse("fc540004-236c-4c94-8fa9-944a3e5353fa")
	uuidBattery     = uuid.MustParse("fc540007-236c-4c94-8fa9-944a3e5353fa")
	uuidLiquidState = uuid.MustParse("fc540008-236c-4c94-8fa9-944a3e5353fa")
	uuidColor       = uuid.MustParse("fc540014-236c-4c94-8fa9-944a3e5353fa")
)

// UUID returns the characteristic identifier for the channel. The mapping
// is fixed for the lifetime of the process; unknown channel values map to
// uuid.Nil.
func (c Channel) UUID() uuid.UUID {
	switch c {
	case ChannelName:
		return uuidName
	case ChannelCurrentTemp:
		return uuidCurrentTemp
	case ChannelTargetTemp:
		return uuidTargetTemp
	case ChannelTempUnit:
		return uuidTempUnit
	case ChannelBattery:
		return uuidBattery
	case ChannelLiquidState:
		return uuidLiquidState
	case ChannelColor:
		return uuidColor
	default:
		return uuid.Nil
	}
}

// String returns the channel's short name.
func (c Channel) String() string {
	switch c {
	case ChannelName:
		return "mug_name"
	case ChannelCurrentTemp:
		return "current_temp"
	case ChannelTargetTemp:
		return "target_temp"
	case ChannelTempUnit:
		return "temp_unit"
	case ChannelBattery:
		return "battery"
	case ChannelLiquidState:
		return "liquid_state"
	case ChannelColor:
		return "mug_color"
	default:
		return "unknown"
	}
}

// Channels returns all channels in wire-identifier order.
func Channels() []Channel {
	return []Channel{
		ChannelName,
		ChannelCurrentTemp,
		ChannelTargetTemp,
		ChannelTempUnit,
		ChannelBattery,
		ChannelLiquidState,
		ChannelColor,
	}
}

// ChannelByUUID resolves a characteristic identifier back to its channel.
func ChannelByUUID(u uuid.UUID) (Channel, bool) {
	for _, c := range Channels() {
		if c.UUID() == u {
			return c, true
		}
	}
	return 0, false
}
