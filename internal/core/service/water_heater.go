package service

import (
	"sync"
	"time"

	"github.com/berfenger/der2mqtt/internal/core/der"
	"github.com/berfenger/der2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

// WaterHeater is a hardware-backed device. Steps never touch the driver:
// they queue load-control commands which the owning actor drains and
// forwards, so a step cannot block on I/O.
//
// Import lifts curtailment, Idle sheds the load and Export does nothing
// since a water heater cannot feed the grid. A step command is queued only
// when the commanded mode changes or the UCM heartbeat has elapsed; grid
// events hold until one of those happens.
type WaterHeater struct {
	heartbeat time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	pending   []domain.DeviceCommand
	stepMode  domain.DeviceCommand
	sinceSent time.Duration
	opState   domain.OperatingState
}

func NewWaterHeater(heartbeat time.Duration, logger *zap.Logger) *WaterHeater {
	return &WaterHeater{
		heartbeat: heartbeat,
		logger:    logger,
		opState:   domain.OpStateIdle,
	}
}

func (w *WaterHeater) Import(_ *der.State, elapsed time.Duration) {
	w.stepRequest(domain.CommandStartConsumption, elapsed)
}

func (w *WaterHeater) Export(_ *der.State, _ time.Duration) {}

func (w *WaterHeater) Idle(_ *der.State, elapsed time.Duration) {
	w.stepRequest(domain.CommandSuppressConsumption, elapsed)
}

func (w *WaterHeater) stepRequest(cmd domain.DeviceCommand, elapsed time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.sinceSent += elapsed
	if cmd == w.stepMode && w.sinceSent < w.heartbeat {
		return
	}
	w.stepMode = cmd
	w.sinceSent = 0
	w.pending = append(w.pending, cmd)
}

// Event queues a grid event command. Commands that are not grid events are
// rejected.
func (w *WaterHeater) Event(cmd domain.DeviceCommand) error {
	switch cmd {
	case domain.CommandCriticalPeak, domain.CommandLoadUp, domain.CommandGridEmergency:
	default:
		return domain.ErrUnknownCommand
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, cmd)
	w.logger.Info("water heater event queued", zap.Stringer("command", cmd))
	return nil
}

func (w *WaterHeater) CriticalPeak() error  { return w.Event(domain.CommandCriticalPeak) }
func (w *WaterHeater) LoadUp() error        { return w.Event(domain.CommandLoadUp) }
func (w *WaterHeater) GridEmergency() error { return w.Event(domain.CommandGridEmergency) }

// DrainCommands returns and clears the queued commands, oldest first.
func (w *WaterHeater) DrainCommands() []domain.DeviceCommand {
	w.mu.Lock()
	defer w.mu.Unlock()
	cmds := w.pending
	w.pending = nil
	return cmds
}

// Acknowledge records the driver outcome of a command.
func (w *WaterHeater) Acknowledge(cmd domain.DeviceCommand, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.opState = domain.OpStateError
		// resend on the next step
		w.stepMode = 0
		return
	}
	switch cmd {
	case domain.CommandStartConsumption:
		w.opState = domain.OpStateNormal
	case domain.CommandSuppressConsumption, domain.CommandCriticalPeak:
		w.opState = domain.OpStateCurtailed
	case domain.CommandLoadUp:
		w.opState = domain.OpStateHeightened
	case domain.CommandGridEmergency:
		w.opState = domain.OpStateGrid
	}
}

func (w *WaterHeater) OperatingState() domain.OperatingState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.opState
}

// ApplyCommodities copies UCM commodity readings into the engine state:
// the consumption rate becomes live import power, total and present energy
// take capacity become rated and live import energy.
func ApplyCommodities(s *der.State, commodities []domain.Commodity) {
	// capacity first so the present value is not clamped against a stale one
	for _, c := range commodities {
		if c.Code == domain.CommodityTotalEnergyStorage {
			s.SetRatedImportEnergy(c.Cumulative)
		}
	}
	for _, c := range commodities {
		switch c.Code {
		case domain.CommodityElectricityConsumed:
			s.SetImportPower(c.Rate)
		case domain.CommodityPresentEnergyStorage:
			s.SetImportEnergy(c.Cumulative)
		}
	}
}

var _ der.Device = (*WaterHeater)(nil)
