package mqtt

import (
	"testing"

	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload string
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m fakeMessage) Ack()              {}

func testClient(t *testing.T) *MQTTClient {
	cfg := util.LoadTestConfig()
	require.NoError(t, cfg.Validate())
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestButtonCommandParse(t *testing.T) {

	assert := assert.New(t)

	r := buttonCommandExtractor("loremTopic")
	matches := r.FindAllStringSubmatch("loremTopic/button/load_up/press", 1)

	assert.Equal("load_up", matches[0][1], "button extract")
}

func TestButtonCommandParseFail(t *testing.T) {

	r := buttonCommandExtractor("loremTopic")
	matches := r.FindAllStringSubmatch("loremTopic/button/load_up/state", 1)

	assert.Len(t, matches, 0, "no matches")
}

func TestInputNumberCommandParse(t *testing.T) {

	r := inputNumberCommandExtractor("loremTopic")
	matches := r.FindAllStringSubmatch("loremTopic/number/number_name/set", 1)

	assert.Equal(t, "number_name", matches[0][1], "number_id extract")
}

func TestInputNumberCommandParseFail(t *testing.T) {

	r := inputNumberCommandExtractor("loremTopic")
	matches := r.FindAllStringSubmatch("otherTopic/number/number_name/set", 1)

	assert.Len(t, matches, 0, "no matches")
}

func TestParseMQTTCommand(t *testing.T) {

	require := require.New(t)
	c := testClient(t)

	cmd, err := c.ParseMQTTCommand(fakeMessage{
		topic:   c.InputNumberCommandTopic(domain.INPUT_NUMBER_ID_IMPORT_SETPOINT),
		payload: "450.5",
	})
	require.NoError(err)
	require.Equal(COMMAND_NUMBER, cmd.Command)
	require.Equal(domain.INPUT_NUMBER_ID_IMPORT_SETPOINT, cmd.DeviceId)
	require.Equal("450.5", cmd.Payload)

	cmd, err = c.ParseMQTTCommand(fakeMessage{
		topic:   c.ButtonCommandTopic(domain.BUTTON_ID_GRID_EMERGENCY),
		payload: MQTT_PAYLOAD_PRESS,
	})
	require.NoError(err)
	require.Equal(COMMAND_BUTTON, cmd.Command)
	require.Equal(domain.BUTTON_ID_GRID_EMERGENCY, cmd.DeviceId)

	_, err = c.ParseMQTTCommand(fakeMessage{
		topic:   c.InputNumberCommandTopic(domain.INPUT_NUMBER_ID_IMPORT_SETPOINT),
		payload: "lots",
	})
	require.ErrorIs(err, ErrMalformedPayload)

	_, err = c.ParseMQTTCommand(fakeMessage{topic: c.SensorStateTopic("import_power"), payload: "1"})
	require.Error(err)
}

func TestParseServerMessage(t *testing.T) {

	require := require.New(t)
	c := testClient(t)

	require.True(c.HasServerTopic())
	require.Equal("grid_server/price", c.ServerPriceTopic())

	u, err := c.ParseServerMessage(c.ServerPriceTopic(), []byte("125"))
	require.NoError(err)
	require.NotNil(u.Price)
	require.Nil(u.Time)
	require.InDelta(12.5, *u.Price, 1e-9)

	u, err = c.ParseServerMessage(c.ServerTimeTopic(), []byte(" 1700000000\n"))
	require.NoError(err)
	require.NotNil(u.Time)
	require.Equal(uint32(1700000000), *u.Time)

	for _, bad := range []struct{ topic, payload string }{
		{c.ServerPriceTopic(), "12.5"},
		{c.ServerPriceTopic(), ""},
		{c.ServerTimeTopic(), "-1"},
		{c.ServerTimeTopic(), "99999999999"},
	} {
		_, err = c.ParseServerMessage(bad.topic, []byte(bad.payload))
		require.ErrorIs(err, ErrMalformedPayload, "%s %q", bad.topic, bad.payload)
	}

	_, err = c.ParseServerMessage("grid_server/other", []byte("1"))
	require.Error(err)
}

func TestInputNumberDiscoveryCarriesUnit(t *testing.T) {

	c := testClient(t)
	dev := domain.DERDevice("abc", "Battery", "simulated")
	numbers := domain.SetpointInputNumbers(dev, util.LoadTestConfig().DER.Limits())

	msg := GenericInputNumberToHADiscoveryMessage(c, numbers[0])

	assert.Equal(t, "W", msg.UnitOfMeasurement)
	assert.Equal(t, c.InputNumberCommandTopic(domain.INPUT_NUMBER_ID_IMPORT_SETPOINT), msg.CommandTopic)
	assert.Equal(t, 1000.0, msg.Max)
	assert.Equal(t, "homeassistant/number/der_abc/import_setpoint/config", HADiscoveryInputNumberTopic("homeassistant", numbers[0]))
}
