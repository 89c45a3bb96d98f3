package der

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertySet(t *testing.T) {

	require := require.New(t)

	e := halfCharged()
	e.SetImportSetpoint(500)
	e.Step(10 * time.Second)

	props := e.Snapshot().Properties()
	require.Len(props, 11)
	require.Equal(uint32(1000), props[PropRatedImportPower])
	require.Equal(uint32(500), props[PropImportPower])
	require.Equal(uint32(2497), props[PropImportEnergy])
	require.Equal(uint32(2503), props[PropExportEnergy])
	require.Equal(uint32(100), props[PropImportRamp])
	require.Equal(uint32(10), props[PropIdleLosses])

	var order []string
	e.Snapshot().Each(func(name string, _ uint32) { order = append(order, name) })
	require.Equal(PropertyNames, order)
}

func TestReadPropertyUnknown(t *testing.T) {

	_, err := halfCharged().ReadProperty("voltage")
	assert.ErrorIs(t, err, ErrUnknownProperty)
}

func TestReadPropertyRefreshesDeviationCache(t *testing.T) {

	e := halfCharged()

	v, err := e.ReadProperty(PropImportEnergy)
	require.NoError(t, err)
	assert.Equal(t, uint32(2500), v)

	s := e.Snapshot()
	assert.Equal(t, 2500.0, s.LastReadImportEnergy)
	assert.Zero(t, s.LastReadExportEnergy, "export energy not read yet")
}

func TestPublishPolicy(t *testing.T) {

	require := require.New(t)

	p := DefaultPublishPolicy()
	s := Snapshot{ImportEnergy: 100, ExportEnergy: 100, LastReadImportEnergy: 100, LastReadExportEnergy: 100}

	require.True(p.Due(3590, s), "first check publishes")
	require.False(p.Due(3595, s))
	require.True(p.Due(3601, s), "hour boundary crossed")
	require.False(p.Due(3901, s), "five minute boundary without deviation")

	s.ImportEnergy = 111
	require.True(p.Due(4201, s), "five minute boundary with deviation")
	require.False(p.Due(4202, s))
	require.False(p.Due(4100, s), "clock went backwards")

	s.ImportEnergy = 105
	require.False(p.Due(4500, s), "deviation below threshold")
}

func TestPublishPolicyZeroLastRead(t *testing.T) {

	p := DefaultPublishPolicy()
	p.Due(0, Snapshot{})

	assert.False(t, p.Due(300, Snapshot{}))
	assert.True(t, p.Due(600, Snapshot{ExportEnergy: 1}))
}
