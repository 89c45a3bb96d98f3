package port

import "github.com/berfenger/der2mqtt/internal/core/domain"

// Driver talks to the load-control hardware behind a device. Every call is
// a single bounded exchange; callers decide about timeouts and never retry.
type Driver interface {
	Open() error
	Close() error

	// StartConsumption lifts any curtailment for an unbounded duration.
	StartConsumption() error
	// SuppressConsumption sheds the load for an unbounded duration.
	SuppressConsumption() error
	CriticalPeak() error
	LoadUp() error
	GridEmergency() error

	Commodities() ([]domain.Commodity, error)
	// MeasuredPower returns the real power draw in W from the current
	// transducer.
	MeasuredPower() (float64, error)
}

// Send dispatches cmd to the matching driver call.
func Send(d Driver, cmd domain.DeviceCommand) error {
	switch cmd {
	case domain.CommandStartConsumption:
		return d.StartConsumption()
	case domain.CommandSuppressConsumption:
		return d.SuppressConsumption()
	case domain.CommandCriticalPeak:
		return d.CriticalPeak()
	case domain.CommandLoadUp:
		return d.LoadUp()
	case domain.CommandGridEmergency:
		return d.GridEmergency()
	}
	return domain.ErrUnknownCommand
}
