package events

import (
	"time"

	"github.com/berfenger/der2mqtt/internal/core/der"
	. "github.com/berfenger/der2mqtt/internal/core/domain"
)

// SnapshotToUpdateEvents converts the published property set, the remote
// telemetry and both setpoints into sensor updates.
func SnapshotToUpdateEvents(s der.Snapshot) []SensorUpdateEvent {
	var events []SensorUpdateEvent

	s.Each(func(name string, value uint32) {
		events = append(events, NewFloatSensorUpdate(name, float64(value), 0))
	})

	// Price
	events = append(events, NewFloatSensorUpdate(SENSOR_ID_PRICE, s.Price, 1))
	// Remote time, only once the server has announced one
	if s.RemoteUTC > 0 {
		events = append(events, NewTextSensorUpdate(SENSOR_ID_REMOTE_TIME,
			time.Unix(int64(s.RemoteUTC), 0).UTC().Format(time.RFC3339)))
	}

	events = append(events, SetpointUpdateEvents(s.ImportSetpoint, s.ExportSetpoint)...)
	return events
}

func SetpointUpdateEvents(importSetpoint, exportSetpoint float64) []SensorUpdateEvent {
	return []SensorUpdateEvent{
		NewInputNumberUpdate(INPUT_NUMBER_ID_IMPORT_SETPOINT, importSetpoint),
		NewInputNumberUpdate(INPUT_NUMBER_ID_EXPORT_SETPOINT, exportSetpoint),
	}
}

func OperatingStateUpdateEvent(state OperatingState) SensorUpdateEvent {
	return NewTextSensorUpdate(SENSOR_ID_OPERATING_STATE, state.String())
}
