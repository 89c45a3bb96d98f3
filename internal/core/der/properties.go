package der

import (
	"errors"
	"fmt"
	"math"
)

const (
	PropRatedExportPower  = "rated_export_power"
	PropExportPower       = "export_power"
	PropRatedExportEnergy = "rated_export_energy"
	PropExportEnergy      = "export_energy"
	PropExportRamp        = "export_ramp"
	PropRatedImportPower  = "rated_import_power"
	PropImportPower       = "import_power"
	PropRatedImportEnergy = "rated_import_energy"
	PropImportEnergy      = "import_energy"
	PropImportRamp        = "import_ramp"
	PropIdleLosses        = "idle_losses"
)

// PropertyNames is the fixed property set exposed to remote consumers, in
// publication order.
var PropertyNames = []string{
	PropRatedExportPower,
	PropExportPower,
	PropRatedExportEnergy,
	PropExportEnergy,
	PropExportRamp,
	PropRatedImportPower,
	PropImportPower,
	PropRatedImportEnergy,
	PropImportEnergy,
	PropImportRamp,
	PropIdleLosses,
}

var ErrUnknownProperty = errors.New("der: unknown property")

// Property returns the named value rounded to an unsigned integer.
func (s Snapshot) Property(name string) (uint32, bool) {
	var v float64
	switch name {
	case PropRatedExportPower:
		v = s.Limits.RatedExportPower
	case PropExportPower:
		v = s.ExportPower
	case PropRatedExportEnergy:
		v = s.Limits.RatedExportEnergy
	case PropExportEnergy:
		v = s.ExportEnergy
	case PropExportRamp:
		v = s.Limits.ExportRamp
	case PropRatedImportPower:
		v = s.Limits.RatedImportPower
	case PropImportPower:
		v = s.ImportPower
	case PropRatedImportEnergy:
		v = s.Limits.RatedImportEnergy
	case PropImportEnergy:
		v = s.ImportEnergy
	case PropImportRamp:
		v = s.Limits.ImportRamp
	case PropIdleLosses:
		v = s.Limits.IdleLosses
	default:
		return 0, false
	}
	return toUint32(v), true
}

// Each calls fn for every property in publication order.
func (s Snapshot) Each(fn func(name string, value uint32)) {
	for _, name := range PropertyNames {
		v, _ := s.Property(name)
		fn(name, v)
	}
}

// Properties returns the full property set.
func (s Snapshot) Properties() map[string]uint32 {
	props := make(map[string]uint32, len(PropertyNames))
	s.Each(func(name string, value uint32) {
		props[name] = value
	})
	return props
}

// ReadProperty answers a synchronous remote get. Reading import or export
// energy refreshes the value the publish deviation check compares against.
func (e *Engine) ReadProperty(name string) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.state.Snapshot().Property(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	switch name {
	case PropImportEnergy:
		e.state.readImportEnergy = e.state.importEnergy
	case PropExportEnergy:
		e.state.readExportEnergy = e.state.exportEnergy
	}
	return v, nil
}

// PublishPolicy decides when the full property set is pushed to remote
// subscribers: once per FullInterval, and once per DeviationInterval when
// either energy value moved more than Deviation (a fraction) away from what
// a remote reader last saw.
type PublishPolicy struct {
	FullInterval      int64
	DeviationInterval int64
	Deviation         float64

	lastCheck int64
	started   bool
}

func DefaultPublishPolicy() *PublishPolicy {
	return &PublishPolicy{
		FullInterval:      3600,
		DeviationInterval: 300,
		Deviation:         0.1,
	}
}

// Due reports whether a publish is needed at nowUTC. The first call always
// publishes. Boundaries are detected by crossing, so a skipped second does
// not miss one.
func (p *PublishPolicy) Due(nowUTC int64, s Snapshot) bool {
	if !p.started {
		p.started = true
		p.lastCheck = nowUTC
		return true
	}
	prev := p.lastCheck
	if nowUTC <= prev {
		return false
	}
	p.lastCheck = nowUTC

	if crossed(prev, nowUTC, p.FullInterval) {
		return true
	}
	if crossed(prev, nowUTC, p.DeviationInterval) {
		return deviates(s.ImportEnergy, s.LastReadImportEnergy, p.Deviation) ||
			deviates(s.ExportEnergy, s.LastReadExportEnergy, p.Deviation)
	}
	return false
}

func crossed(prev, now, interval int64) bool {
	if interval <= 0 {
		return false
	}
	return now/interval != prev/interval
}

func deviates(current, last, fraction float64) bool {
	if last == 0 {
		return current != 0
	}
	return math.Abs(current-last)/last > fraction
}

func toUint32(v float64) uint32 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(math.Round(v))
}
