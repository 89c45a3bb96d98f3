package domain

import (
	"errors"
	"fmt"
)

// DeviceCommand is an abstract load-control command sent to a hardware
// driver. The values follow CTA-2045 basic DR message naming.
type DeviceCommand int

const (
	CommandStartConsumption DeviceCommand = iota + 1
	CommandSuppressConsumption
	CommandCriticalPeak
	CommandLoadUp
	CommandGridEmergency
)

func (c DeviceCommand) String() string {
	switch c {
	case CommandStartConsumption:
		return "start_consumption"
	case CommandSuppressConsumption:
		return "suppress_consumption"
	case CommandCriticalPeak:
		return "critical_peak"
	case CommandLoadUp:
		return "load_up"
	case CommandGridEmergency:
		return "grid_emergency"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// OperatingState is the water heater state last commanded through the UCM.
type OperatingState int

const (
	OpStateIdle OperatingState = iota
	OpStateNormal
	OpStateCurtailed
	OpStateHeightened
	OpStateGrid
	OpStateError
)

func (s OperatingState) String() string {
	switch s {
	case OpStateIdle:
		return "idle"
	case OpStateNormal:
		return "normal"
	case OpStateCurtailed:
		return "curtailed"
	case OpStateHeightened:
		return "heightened"
	case OpStateGrid:
		return "grid"
	default:
		return "error"
	}
}

// Commodity codes reported by a UCM.
const (
	CommodityElectricityConsumed  uint8 = 0
	CommodityTotalEnergyStorage   uint8 = 6
	CommodityPresentEnergyStorage uint8 = 7
)

// Commodity is one commodity reading: an instantaneous rate (W) and a
// cumulative amount (Wh).
type Commodity struct {
	Code       uint8
	Rate       float64
	Cumulative float64
}

var ErrUnknownCommand = errors.New("unknown device command")
