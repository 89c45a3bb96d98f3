package mqtt

import (
	"strconv"

	"github.com/berfenger/der2mqtt/internal/core/domain"
)

// Message is one outbound publish.
type Message struct {
	Topic   string
	Payload string
	Retain  bool
}

// SensorMessage maps a sensor update onto its state topic. Unknown event
// types report false.
func (c *MQTTClient) SensorMessage(event domain.SensorUpdateEvent) (Message, bool) {
	switch ev := event.(type) {
	case domain.FloatSensorUpdateEvent:
		return Message{Topic: c.SensorStateTopic(ev.Id), Payload: FormatFloat(ev.Value, ev.Decimals)}, true
	case domain.BinarySensorUpdateEvent:
		return Message{Topic: c.BinarySensorStateTopic(ev.Id), Payload: BoolPayload(ev.Value)}, true
	case domain.InputNumberSensorUpdateEvent:
		// retained so a restarted frontend shows the last setpoint
		return Message{Topic: c.InputNumberStateTopic(ev.Id), Payload: FormatFloat(ev.Value, ev.Decimals), Retain: true}, true
	case domain.TextSensorUpdateEvent:
		return Message{Topic: c.SensorStateTopic(ev.Id), Payload: ev.Value}, true
	case domain.BridgeStateUpdateEvent:
		payload := MQTT_PAYLOAD_OFFLINE
		if ev.Value {
			payload = MQTT_PAYLOAD_ONLINE
		}
		return Message{Topic: c.BridgeStateTopic(), Payload: payload}, true
	}
	return Message{}, false
}

func FormatFloat(value float64, decimals uint) string {
	return strconv.FormatFloat(value, 'f', int(decimals), 64)
}

func BoolPayload(value bool) string {
	if value {
		return MQTT_PAYLOAD_ON
	}
	return MQTT_PAYLOAD_OFF
}
