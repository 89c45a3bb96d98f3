package mqtt

import (
	"testing"

	"github.com/berfenger/der2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorMessage(t *testing.T) {

	c := testClient(t)

	m, ok := c.SensorMessage(domain.NewFloatSensorUpdate("import_power", 245.4, 0))
	require.True(t, ok)
	assert.Equal(t, Message{Topic: "der2mqtt/sensor/import_power/state", Payload: "245"}, m)

	m, ok = c.SensorMessage(domain.NewInputNumberUpdate(domain.INPUT_NUMBER_ID_IMPORT_SETPOINT, 500))
	require.True(t, ok)
	assert.True(t, m.Retain)
	assert.Equal(t, c.InputNumberStateTopic(domain.INPUT_NUMBER_ID_IMPORT_SETPOINT), m.Topic)

	m, ok = c.SensorMessage(domain.NewTextSensorUpdate("operating_state", "curtailed"))
	require.True(t, ok)
	assert.Equal(t, "curtailed", m.Payload)
}

func TestPayloadFormatting(t *testing.T) {

	assert.Equal(t, "245", FormatFloat(245.2, 0))
	assert.Equal(t, "12.5", FormatFloat(12.5, 1))
	assert.Equal(t, MQTT_PAYLOAD_ON, BoolPayload(true))
	assert.Equal(t, MQTT_PAYLOAD_OFF, BoolPayload(false))
}
