package schedule

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reugn/go-quartz/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	control string
	watts   float64
}

type recorder struct {
	calls []call
}

func (r *recorder) SetImportSetpoint(watts float64) {
	r.calls = append(r.calls, call{CONTROL_IMPORT, watts})
}

func (r *recorder) SetExportSetpoint(watts float64) {
	r.calls = append(r.calls, call{CONTROL_EXPORT, watts})
}

const day = int64(SecondsPerDay)

func enabled() *atomic.Bool {
	b := &atomic.Bool{}
	b.Store(true)
	return b
}

func TestParse(t *testing.T) {

	require := require.New(t)

	rows, err := Parse(strings.NewReader("# time,control,watts\n0,import,500\n3600, export, 250\n7200,idle,0\n"))
	require.NoError(err)
	require.Equal([]Row{
		{Time: 0, Control: CONTROL_IMPORT, Watts: 500},
		{Time: 3600, Control: CONTROL_EXPORT, Watts: 250},
		{Time: 7200, Control: "idle", Watts: 0},
	}, rows)
}

func TestParseReportsRow(t *testing.T) {

	for _, input := range []string{
		"0,import,500\nabc,import,1\n",
		"0,import,500\n10,import,-1\n",
		"0,import,500\n10,import\n",
	} {
		_, err := Parse(strings.NewReader(input))
		require.ErrorIs(t, err, ErrMalformedSchedule, input)
		assert.Contains(t, err.Error(), " 2", input)
	}
}

func TestLoad(t *testing.T) {

	path := filepath.Join(t.TempDir(), "schedule.csv")
	require.NoError(t, os.WriteFile(path, []byte("60,export,100\n"), 0o600))

	rows, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestTickFiresOncePerDay(t *testing.T) {

	require := require.New(t)

	r := &recorder{}
	op := NewOperator([]Row{
		{Time: 0, Control: CONTROL_IMPORT, Watts: 500},
		{Time: 10, Control: CONTROL_EXPORT, Watts: 200},
		{Time: 20, Control: "off", Watts: 900},
	}, r, enabled(), zap.NewNop())

	base := 19000 * day
	require.Equal(1, op.Tick(base), "row 0 fires at midnight")
	require.Zero(op.Tick(base))
	require.Zero(op.Tick(base+5))
	require.Equal(1, op.Tick(base+10))
	require.Zero(op.Tick(base+10))
	require.Equal(1, op.Tick(base+25), "skipped seconds are caught up")

	require.Equal([]call{
		{CONTROL_IMPORT, 500},
		{CONTROL_EXPORT, 200},
		{CONTROL_IMPORT, 0},
	}, r.calls)

	// next day
	require.Equal(1, op.Tick(base+day))
	require.Equal(call{CONTROL_IMPORT, 500}, r.calls[3])
}

func TestTickCatchesUpAcrossMidnight(t *testing.T) {

	r := &recorder{}
	op := NewOperator([]Row{
		{Time: day - 1, Control: CONTROL_EXPORT, Watts: 50},
		{Time: 1, Control: CONTROL_IMPORT, Watts: 60},
	}, r, enabled(), zap.NewNop())

	base := 19000 * day
	assert.Zero(t, op.Tick(base+day-3))
	assert.Equal(t, 2, op.Tick(base+day+2))
	assert.Equal(t, []call{{CONTROL_EXPORT, 50}, {CONTROL_IMPORT, 60}}, r.calls)
}

func TestTickRespectsEnableFlag(t *testing.T) {

	r := &recorder{}
	flag := enabled()
	flag.Store(false)
	op := NewOperator([]Row{{Time: 5, Control: CONTROL_IMPORT, Watts: 1}}, r, flag, zap.NewNop())

	base := 19000 * day
	op.Tick(base)
	assert.Zero(t, op.Tick(base+5))

	flag.Store(true)
	assert.Zero(t, op.Tick(base+6), "missed while disabled")
	assert.Equal(t, 1, op.Tick(base+day+5))
}

func TestRowTimesWrap(t *testing.T) {

	r := &recorder{}
	op := NewOperator([]Row{{Time: day + 30, Control: CONTROL_IMPORT, Watts: 7}}, r, nil, zap.NewNop())

	assert.Equal(t, 1, op.Tick(30))
	assert.Equal(t, 1, op.Len())
}

func TestJobTicksOperator(t *testing.T) {

	r := &recorder{}
	op := NewOperator([]Row{{Time: 100, Control: CONTROL_EXPORT, Watts: 3}}, r, enabled(), zap.NewNop())

	job := NewJob(op)
	job.clock = func() time.Time { return time.Unix(19000*day+100, 0) }

	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, []call{{CONTROL_EXPORT, 3}}, r.calls)
	assert.NotEmpty(t, job.Description())
}

func TestStartSchedulesJob(t *testing.T) {

	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	op := NewOperator(nil, &recorder{}, &atomic.Bool{}, zap.NewNop())
	sched, err := Start(ctx, op)
	require.NoError(err)
	defer sched.Stop()

	require.True(sched.IsStarted())
	job, err := sched.GetScheduledJob(quartz.NewJobKey(JOB_KEY))
	require.NoError(err)
	require.Equal("daily setpoint schedule", job.JobDetail().Job().Description())
}
