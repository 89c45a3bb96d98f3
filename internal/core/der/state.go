package der

import "math"

// RatedLimits are the nameplate capabilities of a resource.
// Units:
// - power: W
// - energy: Wh
// - ramp: W s^-1
// - idle losses: Wh h^-1
type RatedLimits struct {
	RatedExportPower  float64
	RatedExportEnergy float64
	ExportRamp        float64

	RatedImportPower  float64
	RatedImportEnergy float64
	ImportRamp        float64

	IdleLosses float64
}

// Sanitized returns a copy with every negative value replaced by zero.
func (l RatedLimits) Sanitized() RatedLimits {
	return RatedLimits{
		RatedExportPower:  nonNegative(l.RatedExportPower),
		RatedExportEnergy: nonNegative(l.RatedExportEnergy),
		ExportRamp:        nonNegative(l.ExportRamp),
		RatedImportPower:  nonNegative(l.RatedImportPower),
		RatedImportEnergy: nonNegative(l.RatedImportEnergy),
		ImportRamp:        nonNegative(l.ImportRamp),
		IdleLosses:        nonNegative(l.IdleLosses),
	}
}

// State holds the rated limits and the dynamic state of one resource.
//
// State is not safe for concurrent use. It is handed to a Device while the
// owning Engine holds its lock; outside of a step use the Engine methods.
type State struct {
	limits RatedLimits

	importSetpoint float64
	exportSetpoint float64
	importPower    float64
	exportPower    float64
	importEnergy   float64
	exportEnergy   float64

	remoteUTC     uint32
	price         float64
	lastLoggedUTC int64
	logged        bool

	// energy values last handed to a remote reader
	readImportEnergy float64
	readExportEnergy float64
}

func (s *State) Limits() RatedLimits { return s.limits }

func (s *State) ImportSetpoint() float64 { return s.importSetpoint }
func (s *State) ExportSetpoint() float64 { return s.exportSetpoint }
func (s *State) ImportPower() float64    { return s.importPower }
func (s *State) ExportPower() float64    { return s.exportPower }
func (s *State) ImportEnergy() float64   { return s.importEnergy }
func (s *State) ExportEnergy() float64   { return s.exportEnergy }
func (s *State) RemoteUTC() uint32       { return s.remoteUTC }
func (s *State) Price() float64          { return s.price }

// SetImportSetpoint commands an import power. The export direction is
// cleared, including its live power. A zero setpoint idles the device, so the
// live import power drops to zero as well.
func (s *State) SetImportSetpoint(watts float64) {
	s.exportSetpoint = 0
	s.exportPower = 0
	s.importSetpoint = clamp(watts, s.limits.RatedImportPower)
	if s.importSetpoint == 0 {
		s.importPower = 0
	}
}

// SetExportSetpoint commands an export power. The import direction is
// cleared, including its live power. A zero setpoint also zeroes the live
// export power.
func (s *State) SetExportSetpoint(watts float64) {
	s.importSetpoint = 0
	s.importPower = 0
	s.exportSetpoint = clamp(watts, s.limits.RatedExportPower)
	if s.exportSetpoint == 0 {
		s.exportPower = 0
	}
}

func (s *State) SetImportPower(watts float64) {
	s.importPower = clamp(watts, s.limits.RatedImportPower)
}

func (s *State) SetExportPower(watts float64) {
	s.exportPower = clamp(watts, s.limits.RatedExportPower)
}

// SetImportEnergy saturates to [0, rated import energy]. An empty import
// buffer cannot keep importing, so reaching zero drops the import setpoint
// and live power.
func (s *State) SetImportEnergy(wattHours float64) {
	s.importEnergy = clamp(wattHours, s.limits.RatedImportEnergy)
	if s.importEnergy == 0 {
		s.importSetpoint = 0
		s.importPower = 0
	}
}

// SetExportEnergy saturates to [0, rated export energy]. Reaching zero
// drops the export setpoint and live power.
func (s *State) SetExportEnergy(wattHours float64) {
	s.exportEnergy = clamp(wattHours, s.limits.RatedExportEnergy)
	if s.exportEnergy == 0 {
		s.exportSetpoint = 0
		s.exportPower = 0
	}
}

func (s *State) SetRatedExportPower(watts float64) {
	s.limits.RatedExportPower = nonNegative(watts)
	s.exportSetpoint = clamp(s.exportSetpoint, s.limits.RatedExportPower)
	s.exportPower = clamp(s.exportPower, s.limits.RatedExportPower)
}

func (s *State) SetRatedExportEnergy(wattHours float64) {
	s.limits.RatedExportEnergy = nonNegative(wattHours)
	s.exportEnergy = clamp(s.exportEnergy, s.limits.RatedExportEnergy)
}

func (s *State) SetExportRamp(wattsPerSecond float64) {
	s.limits.ExportRamp = nonNegative(wattsPerSecond)
}

func (s *State) SetRatedImportPower(watts float64) {
	s.limits.RatedImportPower = nonNegative(watts)
	s.importSetpoint = clamp(s.importSetpoint, s.limits.RatedImportPower)
	s.importPower = clamp(s.importPower, s.limits.RatedImportPower)
}

func (s *State) SetRatedImportEnergy(wattHours float64) {
	s.limits.RatedImportEnergy = nonNegative(wattHours)
	s.importEnergy = clamp(s.importEnergy, s.limits.RatedImportEnergy)
}

func (s *State) SetImportRamp(wattsPerSecond float64) {
	s.limits.ImportRamp = nonNegative(wattsPerSecond)
}

func (s *State) SetIdleLosses(wattHoursPerHour float64) {
	s.limits.IdleLosses = nonNegative(wattHoursPerHour)
}

func (s *State) SetRemoteTime(utc uint32) {
	s.remoteUTC = utc
}

func (s *State) SetPrice(price float64) {
	s.price = price
}

// Snapshot is a consistent copy of a State.
type Snapshot struct {
	Limits RatedLimits

	ImportSetpoint float64
	ImportPower    float64
	ImportEnergy   float64
	ExportSetpoint float64
	ExportPower    float64
	ExportEnergy   float64

	RemoteUTC uint32
	Price     float64

	LastReadImportEnergy float64
	LastReadExportEnergy float64
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Limits:         s.limits,
		ImportSetpoint: s.importSetpoint,
		ImportPower:    s.importPower,
		ImportEnergy:   s.importEnergy,
		ExportSetpoint: s.exportSetpoint,
		ExportPower:    s.exportPower,
		ExportEnergy:   s.exportEnergy,
		RemoteUTC:      s.remoteUTC,
		Price:          s.price,

		LastReadImportEnergy: s.readImportEnergy,
		LastReadExportEnergy: s.readExportEnergy,
	}
}

func clamp(value, max float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	return math.Min(value, nonNegative(max))
}

func nonNegative(value float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	return value
}
