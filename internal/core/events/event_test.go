package events

import (
	"testing"

	"github.com/berfenger/der2mqtt/internal/core/der"
	"github.com/berfenger/der2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotToUpdateEvents(t *testing.T) {

	require := require.New(t)

	e := der.NewEngine(der.RatedLimits{RatedImportPower: 1000, RatedImportEnergy: 5000, RatedExportEnergy: 5000}, der.Simulated{})
	e.SetImportEnergy(1234.4)
	e.SetImportSetpoint(300)
	e.SetPrice(12.5)

	evs := SnapshotToUpdateEvents(e.Snapshot())

	byId := map[string]domain.SensorUpdateEvent{}
	for _, ev := range evs {
		byId[ev.SensorId()] = ev
	}
	require.Len(evs, len(der.PropertyNames)+3, "no remote time announced yet")
	require.NotContains(byId, domain.SENSOR_ID_REMOTE_TIME)

	energy := byId[der.PropImportEnergy].(domain.FloatSensorUpdateEvent)
	require.Equal(1234.0, energy.Value)
	require.Zero(energy.Decimals)

	price := byId[domain.SENSOR_ID_PRICE].(domain.FloatSensorUpdateEvent)
	require.Equal(12.5, price.Value)

	sp := byId[domain.INPUT_NUMBER_ID_IMPORT_SETPOINT].(domain.InputNumberSensorUpdateEvent)
	require.Equal(300.0, sp.Value)
}

func TestRemoteTimeEvent(t *testing.T) {

	e := der.NewEngine(der.RatedLimits{}, nil)
	e.SetRemoteTime(86400)

	var found bool
	for _, ev := range SnapshotToUpdateEvents(e.Snapshot()) {
		if ev.SensorId() == domain.SENSOR_ID_REMOTE_TIME {
			found = true
			assert.Equal(t, "1970-01-02T00:00:00Z", ev.(domain.TextSensorUpdateEvent).Value)
		}
	}
	assert.True(t, found)
}

func TestOperatingStateUpdateEvent(t *testing.T) {

	ev := OperatingStateUpdateEvent(domain.OpStateHeightened)
	assert.Equal(t, domain.SENSOR_ID_OPERATING_STATE, ev.SensorId())
	assert.Equal(t, "heightened", ev.(domain.TextSensorUpdateEvent).Value)
}
