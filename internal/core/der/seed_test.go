package der

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedNorm struct {
	draws []float64
	calls int
}

func (f *fixedNorm) NormFloat64() float64 {
	v := f.draws[f.calls%len(f.draws)]
	f.calls++
	return v
}

func TestSeedValidate(t *testing.T) {

	assert.NoError(t, Seed{Mean: 0.5, StdDev: 0.2}.Validate())
	assert.NoError(t, Seed{Mean: 1, StdDev: 0}.Validate())
	assert.NoError(t, Seed{Mean: 3, StdDev: 1}.Validate())

	assert.ErrorIs(t, Seed{Mean: 0.5, StdDev: -1}.Validate(), ErrInvalidSeed)
	assert.ErrorIs(t, Seed{Mean: 1.5, StdDev: 0}.Validate(), ErrInvalidSeed)
	assert.ErrorIs(t, Seed{Mean: -0.1, StdDev: 0}.Validate(), ErrInvalidSeed)
	assert.ErrorIs(t, Seed{Mean: 10, StdDev: 0.1}.Validate(), ErrInvalidSeed, "unit interval is 90 std_dev away")
	assert.ErrorIs(t, Seed{Mean: -1, StdDev: 0.2}.Validate(), ErrInvalidSeed)
	assert.NoError(t, Seed{Mean: 1.5, StdDev: 0.2}.Validate())
}

func TestSeedDrawGivesUp(t *testing.T) {

	src := &fixedNorm{draws: []float64{5}}
	_, err := Seed{Mean: 0.5, StdDev: 0.25}.Draw(src)

	assert.ErrorIs(t, err, ErrInvalidSeed)
	assert.Equal(t, maxSeedDraws, src.calls)
}

func TestNewSimulatedEngineRejectsDistantMean(t *testing.T) {

	_, err := NewSimulatedEngine(batteryLimits(), Seed{Mean: 10, StdDev: 0.1}, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

func TestSeedDrawRejectsOutOfRange(t *testing.T) {

	require := require.New(t)

	src := &fixedNorm{draws: []float64{5, -5, 1}}
	p, err := Seed{Mean: 0.5, StdDev: 0.25}.Draw(src)

	require.NoError(err)
	require.Equal(0.75, p)
	require.Equal(3, src.calls, "two rejected samples before a valid one")
}

func TestNewSimulatedEngineSplitsCharge(t *testing.T) {

	require := require.New(t)

	src := &fixedNorm{draws: []float64{0}}
	e, err := NewSimulatedEngine(batteryLimits(), Seed{Mean: 0.2, StdDev: 0.1}, src)
	require.NoError(err)

	s := e.Snapshot()
	require.InDelta(1000, s.ImportEnergy, tolerance)
	require.InDelta(4000, s.ExportEnergy, tolerance)
	require.Zero(s.ImportSetpoint)
	require.Zero(s.ExportSetpoint)
}

func TestNewSimulatedEngineIsDeterministic(t *testing.T) {

	seed := Seed{Mean: 0.5, StdDev: 0.3}

	a, err := NewSimulatedEngine(batteryLimits(), seed, rand.New(rand.NewPCG(42, 42)))
	require.NoError(t, err)
	b, err := NewSimulatedEngine(batteryLimits(), seed, rand.New(rand.NewPCG(42, 42)))
	require.NoError(t, err)

	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.InDelta(t, 5000, a.ImportEnergy()+a.ExportEnergy(), 1e-6)
}

func TestNewSimulatedEngineRejectsBadSeed(t *testing.T) {

	_, err := NewSimulatedEngine(batteryLimits(), Seed{Mean: 2, StdDev: 0}, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, ErrInvalidSeed)

	_, err = NewSimulatedEngine(batteryLimits(), Seed{Mean: 0.5, StdDev: 0.1}, nil)
	assert.ErrorIs(t, err, ErrInvalidSeed)
}
