package der

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Engine advances the physical state of one distributed energy resource and
// exposes its setpoints and telemetry. All methods are safe for concurrent
// use; each call is applied atomically with respect to Step.
type Engine struct {
	mu     sync.Mutex
	state  State
	device Device

	logInterval int64
	sink        TelemetrySink
}

// NewEngine returns a zero-initialised engine driven by device. Hardware
// backed devices start here and populate state from driver queries.
func NewEngine(limits RatedLimits, device Device) *Engine {
	if device == nil {
		device = Simulated{}
	}
	return &Engine{
		state:  State{limits: limits.Sanitized()},
		device: device,
	}
}

// NewSimulatedEngine returns a simulated engine whose charge state is drawn
// from seed using rng.
func NewSimulatedEngine(limits RatedLimits, seed Seed, rng Float64Source) (*Engine, error) {
	fraction, err := seed.Draw(rng)
	if err != nil {
		return nil, err
	}
	e := NewEngine(limits, Simulated{})
	e.state.SetImportEnergy(e.state.limits.RatedImportEnergy * fraction)
	e.state.SetExportEnergy(e.state.limits.RatedExportEnergy * (1 - fraction))
	return e, nil
}

// Step advances the state by elapsed wall-clock time. Non-positive values
// leave the state untouched.
func (e *Engine) Step(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.state.importSetpoint > 0:
		e.device.Import(&e.state, elapsed)
	case e.state.exportSetpoint > 0:
		e.device.Export(&e.state, elapsed)
	default:
		e.device.Idle(&e.state, elapsed)
	}
}

// Update runs fn with exclusive access to the state.
func (e *Engine) Update(fn func(s *State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
}

// Device returns the device driving this engine.
func (e *Engine) Device() Device {
	return e.device
}

func (e *Engine) SetImportSetpoint(watts float64) {
	e.Update(func(s *State) { s.SetImportSetpoint(watts) })
}

func (e *Engine) SetExportSetpoint(watts float64) {
	e.Update(func(s *State) { s.SetExportSetpoint(watts) })
}

func (e *Engine) SetImportPower(watts float64) {
	e.Update(func(s *State) { s.SetImportPower(watts) })
}

func (e *Engine) SetExportPower(watts float64) {
	e.Update(func(s *State) { s.SetExportPower(watts) })
}

func (e *Engine) SetImportEnergy(wattHours float64) {
	e.Update(func(s *State) { s.SetImportEnergy(wattHours) })
}

func (e *Engine) SetExportEnergy(wattHours float64) {
	e.Update(func(s *State) { s.SetExportEnergy(wattHours) })
}

func (e *Engine) SetRatedImportPower(watts float64) {
	e.Update(func(s *State) { s.SetRatedImportPower(watts) })
}

func (e *Engine) SetRatedImportEnergy(wattHours float64) {
	e.Update(func(s *State) { s.SetRatedImportEnergy(wattHours) })
}

func (e *Engine) SetImportRamp(wattsPerSecond float64) {
	e.Update(func(s *State) { s.SetImportRamp(wattsPerSecond) })
}

func (e *Engine) SetRatedExportPower(watts float64) {
	e.Update(func(s *State) { s.SetRatedExportPower(watts) })
}

func (e *Engine) SetRatedExportEnergy(wattHours float64) {
	e.Update(func(s *State) { s.SetRatedExportEnergy(wattHours) })
}

func (e *Engine) SetExportRamp(wattsPerSecond float64) {
	e.Update(func(s *State) { s.SetExportRamp(wattsPerSecond) })
}

func (e *Engine) SetIdleLosses(wattHoursPerHour float64) {
	e.Update(func(s *State) { s.SetIdleLosses(wattHoursPerHour) })
}

func (e *Engine) SetRemoteTime(utc uint32) {
	e.Update(func(s *State) { s.SetRemoteTime(utc) })
}

func (e *Engine) SetPrice(price float64) {
	e.Update(func(s *State) { s.SetPrice(price) })
}

// Snapshot returns a consistent copy of the rated limits and live state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Snapshot()
}

func (e *Engine) ImportSetpoint() float64 { return e.Snapshot().ImportSetpoint }
func (e *Engine) ExportSetpoint() float64 { return e.Snapshot().ExportSetpoint }
func (e *Engine) ImportPower() float64    { return e.Snapshot().ImportPower }
func (e *Engine) ExportPower() float64    { return e.Snapshot().ExportPower }
func (e *Engine) ImportEnergy() float64   { return e.Snapshot().ImportEnergy }
func (e *Engine) ExportEnergy() float64   { return e.Snapshot().ExportEnergy }
func (e *Engine) Limits() RatedLimits     { return e.Snapshot().Limits }

// Display prints the live control state.
func (e *Engine) Display(w io.Writer) {
	s := e.Snapshot()
	fmt.Fprintf(w, "Import Control:\t%g\twatts\n", s.ImportSetpoint)
	fmt.Fprintf(w, "Import Power:\t%g\twatts\n", s.ImportPower)
	fmt.Fprintf(w, "Import Energy:\t%g\twatt-hours\n", s.ImportEnergy)
	fmt.Fprintf(w, "Export Control:\t%g\twatts\n", s.ExportSetpoint)
	fmt.Fprintf(w, "Export Power:\t%g\twatts\n", s.ExportPower)
	fmt.Fprintf(w, "Export Energy:\t%g\twatt-hours\n", s.ExportEnergy)
}
