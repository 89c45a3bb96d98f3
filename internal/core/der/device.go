package der

import "time"

// Device applies one control step to a State. The engine picks exactly one
// operation per step: Import when an import setpoint is set, Export when an
// export setpoint is set, Idle otherwise.
//
// A device that cannot move power in a direction implements that operation
// as a no-op. Setpoint mutual exclusion is enforced by the State setters and
// must not be bypassed.
type Device interface {
	Import(s *State, elapsed time.Duration)
	Export(s *State, elapsed time.Duration)
	Idle(s *State, elapsed time.Duration)
}

// Simulated models a generic storage resource: live power ramps toward the
// setpoint and energy moves between the import and export reservoirs.
type Simulated struct{}

func (Simulated) Import(s *State, elapsed time.Duration) {
	seconds := elapsed.Seconds()
	ramp := s.limits.ImportRamp * seconds

	s.SetImportPower(approach(s.importPower, s.importSetpoint, ramp))

	// credit only what the saturating reservoir actually gave up
	before := s.importEnergy
	s.SetImportEnergy(before - trapezoid(s.importPower, s.limits.RatedImportPower, ramp, seconds))
	s.SetExportEnergy(s.exportEnergy + (before - s.importEnergy))
}

func (Simulated) Export(s *State, elapsed time.Duration) {
	seconds := elapsed.Seconds()
	ramp := s.limits.ExportRamp * seconds

	s.SetExportPower(approach(s.exportPower, s.exportSetpoint, ramp))

	before := s.exportEnergy
	s.SetExportEnergy(before - trapezoid(s.exportPower, s.limits.RatedExportPower, ramp, seconds))
	s.SetImportEnergy(s.importEnergy + (before - s.exportEnergy))
}

// Idle leaks export capacity back into import headroom.
func (Simulated) Idle(s *State, elapsed time.Duration) {
	hours := elapsed.Seconds() / 3600
	loss := s.limits.IdleLosses * hours

	s.SetImportEnergy(s.importEnergy + loss)
	s.SetExportEnergy(s.exportEnergy - loss)
}

// approach moves current toward target by at most step without overshooting.
func approach(current, target, step float64) float64 {
	switch {
	case current < target:
		if current+step < target {
			return current + step
		}
		return target
	case current > target:
		if current-step > target {
			return current - step
		}
		return target
	default:
		return current
	}
}

// trapezoid returns the energy in Wh moved during a step: the power held for
// the step plus the ramp triangle. The triangle is dropped once the power sits
// at its rated ceiling; a step that reaches the ceiling mid-way undercounts
// slightly.
func trapezoid(power, rated, ramp, seconds float64) float64 {
	hours := seconds / 3600
	energy := power * hours
	if power < rated {
		energy += ramp * hours / 2
	}
	return energy
}

var _ Device = Simulated{}
