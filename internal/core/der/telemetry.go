package der

import "time"

// Record is one telemetry line: the six live control fields at a point in
// time.
type Record struct {
	Time time.Time

	ImportSetpoint float64
	ImportPower    float64
	ImportEnergy   float64
	ExportSetpoint float64
	ExportPower    float64
	ExportEnergy   float64
}

// TelemetrySink receives records emitted by MaybeLog. Errors are dropped.
type TelemetrySink interface {
	Write(r Record) error
}

// SetTelemetry attaches sink and emits a record every interval. An interval
// below one second or a nil sink disables logging.
func (e *Engine) SetTelemetry(sink TelemetrySink, interval time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
	e.logInterval = int64(interval / time.Second)
}

// MaybeLog writes a record when nowUTC falls on an interval boundary that
// has not been logged yet. It reports whether a record was emitted.
func (e *Engine) MaybeLog(nowUTC int64) bool {
	e.mu.Lock()
	if e.sink == nil || e.logInterval <= 0 || nowUTC%e.logInterval != 0 || (e.state.logged && nowUTC == e.state.lastLoggedUTC) {
		e.mu.Unlock()
		return false
	}
	e.state.lastLoggedUTC = nowUTC
	e.state.logged = true
	sink := e.sink
	s := e.state.Snapshot()
	e.mu.Unlock()

	_ = sink.Write(Record{
		Time:           time.Unix(nowUTC, 0).UTC(),
		ImportSetpoint: s.ImportSetpoint,
		ImportPower:    s.ImportPower,
		ImportEnergy:   s.ImportEnergy,
		ExportSetpoint: s.ExportSetpoint,
		ExportPower:    s.ExportPower,
		ExportEnergy:   s.ExportEnergy,
	})
	return true
}
