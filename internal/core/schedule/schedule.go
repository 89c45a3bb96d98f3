package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const (
	SecondsPerDay = 60 * 60 * 24

	CONTROL_IMPORT = "import"
	CONTROL_EXPORT = "export"
)

var ErrMalformedSchedule = errors.New("schedule: malformed row")

// Row is one scheduled setpoint change. Time is seconds since midnight UTC;
// larger values wrap around the day.
type Row struct {
	Time    int64
	Control string
	Watts   float64
}

// Target receives scheduled setpoints.
type Target interface {
	SetImportSetpoint(watts float64)
	SetExportSetpoint(watts float64)
}

func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads rows of time,control,watts.
func Parse(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedSchedule, err)
		}
		line, _ := reader.FieldPos(0)
		t, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		if err != nil || t < 0 {
			return nil, fmt.Errorf("%w %d: invalid time %q", ErrMalformedSchedule, line, record[0])
		}
		watts, err := strconv.ParseUint(strings.TrimSpace(record[2]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w %d: invalid setting %q", ErrMalformedSchedule, line, record[2])
		}
		rows = append(rows, Row{
			Time:    t,
			Control: strings.TrimSpace(record[1]),
			Watts:   float64(watts),
		})
	}
}

// Operator applies a daily schedule to a target. Each row fires at most once
// per day; seconds skipped between two ticks are caught up.
type Operator struct {
	rows    []Row
	target  Target
	enabled *atomic.Bool
	logger  *zap.Logger

	mu      sync.Mutex
	fired   []bool
	last    int64
	started bool
}

// NewOperator returns an operator that only acts while enabled holds true.
func NewOperator(rows []Row, target Target, enabled *atomic.Bool, logger *zap.Logger) *Operator {
	return &Operator{
		rows:    rows,
		target:  target,
		enabled: enabled,
		logger:  logger,
		fired:   make([]bool, len(rows)),
	}
}

// Tick fires every row due at nowUTC and returns how many fired.
func (o *Operator) Tick(nowUTC int64) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	sec := mod(nowUTC, SecondsPerDay)
	if !o.started {
		o.started = true
		o.last = sec - 1
	}
	from := o.last
	o.last = sec

	n := 0
	if sec < from {
		// past midnight: finish the previous day, then start a new pass
		n += o.fire(from, SecondsPerDay-1)
		for i := range o.fired {
			o.fired[i] = false
		}
		from = -1
	}
	return n + o.fire(from, sec)
}

// fire runs unfired rows in (from, to].
func (o *Operator) fire(from, to int64) int {
	if o.enabled != nil && !o.enabled.Load() {
		return 0
	}
	n := 0
	for i, row := range o.rows {
		t := mod(row.Time, SecondsPerDay)
		if o.fired[i] || t <= from || t > to {
			continue
		}
		o.fired[i] = true
		n++
		switch row.Control {
		case CONTROL_IMPORT:
			o.target.SetImportSetpoint(row.Watts)
		case CONTROL_EXPORT:
			o.target.SetExportSetpoint(row.Watts)
		default:
			o.target.SetImportSetpoint(0)
		}
		o.logger.Info("schedule fired", zap.Int64("time", row.Time), zap.String("control", row.Control), zap.Float64("watts", row.Watts))
	}
	return n
}

func (o *Operator) Len() int {
	return len(o.rows)
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
