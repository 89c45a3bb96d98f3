package console

import (
	"bytes"
	"sync/atomic"
	"testing"

	"github.com/berfenger/der2mqtt/internal/core/der"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEngine() *der.Engine {
	e := der.NewEngine(der.RatedLimits{
		RatedImportPower:  1000,
		RatedImportEnergy: 5000,
		RatedExportPower:  1000,
		RatedExportEnergy: 5000,
	}, der.Simulated{})
	e.SetImportEnergy(2500)
	e.SetExportEnergy(2500)
	return e
}

func TestSetpointCommands(t *testing.T) {

	require := require.New(t)

	e := newEngine()
	c := New(e, e, nil, zap.NewNop())
	var out bytes.Buffer

	require.False(c.Execute("i 300", &out))
	require.Equal(300.0, e.ImportSetpoint())

	require.False(c.Execute("e 200", &out))
	require.Equal(200.0, e.ExportSetpoint())
	require.Zero(e.ImportSetpoint())

	require.Empty(out.String())
}

func TestInvalidArgumentsChangeNothing(t *testing.T) {

	e := newEngine()
	e.SetImportSetpoint(100)
	c := New(e, e, nil, zap.NewNop())

	for _, line := range []string{"i", "i abc", "e -5", "i 1 2", "e 1.5"} {
		var out bytes.Buffer
		assert.False(t, c.Execute(line, &out))
		assert.Equal(t, invalidArgument+"\n", out.String(), line)
	}

	s := e.Snapshot()
	assert.Equal(t, 100.0, s.ImportSetpoint)
	assert.Zero(t, s.ExportSetpoint)
}

func TestQuitHelpDisplay(t *testing.T) {

	e := newEngine()
	c := New(e, e, nil, zap.NewNop())

	assert.True(t, c.Execute("q", &bytes.Buffer{}))
	assert.False(t, c.Execute("   ", &bytes.Buffer{}))

	var out bytes.Buffer
	c.Execute("x", &out)
	assert.Contains(t, out.String(), "Commands:")

	out.Reset()
	c.Execute("d", &out)
	assert.Contains(t, out.String(), "Import Energy:\t2500\twatt-hours")
}

func TestScheduleToggle(t *testing.T) {

	require := require.New(t)

	e := newEngine()
	var enabled atomic.Bool
	c := New(e, e, &enabled, zap.NewNop())
	var out bytes.Buffer

	c.Execute("s", &out)
	require.True(enabled.Load())
	require.Contains(out.String(), "schedule on")

	c.Execute("s", &out)
	require.False(enabled.Load())

	c.Execute("s on", &out)
	require.True(enabled.Load())
	c.Execute("s on", &out)
	require.True(enabled.Load())

	c.Execute("s off", &out)
	require.False(enabled.Load())

	out.Reset()
	c.Execute("s maybe", &out)
	require.False(enabled.Load())
	require.Equal(invalidArgument+"\n", out.String())
}

func TestScheduleWithoutOperator(t *testing.T) {

	e := newEngine()
	c := New(e, e, nil, zap.NewNop())

	var out bytes.Buffer
	c.Execute("s on", &out)
	assert.Contains(t, out.String(), "no schedule loaded")
}
