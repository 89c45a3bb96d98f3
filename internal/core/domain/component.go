package domain

import (
	"fmt"

	"github.com/berfenger/der2mqtt/internal/core/der"
)

const (
	SENSOR_TYPE_SENSOR = "sensor"
	SENSOR_TYPE_BINARY = "binary_sensor"

	SENSOR_ID_BRIDGE_STATE    = "bridge_state"
	SENSOR_ID_PRICE           = "price"
	SENSOR_ID_REMOTE_TIME     = "remote_time"
	SENSOR_ID_OPERATING_STATE = "operating_state"

	INPUT_NUMBER_ID_IMPORT_SETPOINT = "import_setpoint"
	INPUT_NUMBER_ID_EXPORT_SETPOINT = "export_setpoint"

	BUTTON_ID_CRITICAL_PEAK  = "critical_peak"
	BUTTON_ID_LOAD_UP        = "load_up"
	BUTTON_ID_GRID_EMERGENCY = "grid_emergency"
)

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total
	DeviceClass       string // power, energy, timestamp, monetary
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
}

type GenericButton struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}

type GenericInputNumber struct {
	Device       Device
	Id           string
	Name         string
	UniqueId     string
	Icon         string
	Unit         string
	Max          float64
	Min          float64
	Step         float64
	Mode         string
	InitialValue float64
}

func BridgeDevice(baseTopic, version string) Device {
	return Device{
		Id:           fmt.Sprintf("%s_bridge", baseTopic),
		Name:         "der2mqtt bridge",
		Model:        "der2mqtt",
		Manufacturer: "der2mqtt",
		Version:      version,
	}
}

func BridgeSensors(dev Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         dev,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Connection state",
			UniqueId:       fmt.Sprintf("%s_%s", dev.Id, SENSOR_ID_BRIDGE_STATE),
			DeviceClass:    "connectivity",
			EntityCategory: "diagnostic",
		},
	}
}

// DERDevice describes one resource. instanceId keeps unique ids stable
// across restarts.
func DERDevice(instanceId, name, model string) Device {
	return Device{
		Id:           fmt.Sprintf("der_%s", instanceId),
		Name:         name,
		Model:        model,
		Manufacturer: "der2mqtt",
	}
}

// IdDevice strips a device down to its id. Only the first entity of a device
// needs to carry the full description.
func IdDevice(dev Device) Device {
	return Device{Id: dev.Id}
}

func DERSensors(dev Device, waterHeater bool) []GenericSensor {
	var sensors []GenericSensor
	for _, name := range der.PropertyNames {
		s := GenericSensor{
			Device:     IdDevice(dev),
			Id:         name,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       propertyTitle(name),
			UniqueId:   fmt.Sprintf("%s_%s", dev.Id, name),
			StateClass: "measurement",
		}
		switch name {
		case der.PropImportPower, der.PropExportPower:
			s.UnitOfMeasurement = "W"
			s.DeviceClass = "power"
		case der.PropRatedImportPower, der.PropRatedExportPower:
			s.UnitOfMeasurement = "W"
			s.DeviceClass = "power"
			s.EntityCategory = "diagnostic"
		case der.PropImportEnergy, der.PropExportEnergy:
			s.UnitOfMeasurement = "Wh"
			s.DeviceClass = "energy_storage"
		case der.PropRatedImportEnergy, der.PropRatedExportEnergy:
			s.UnitOfMeasurement = "Wh"
			s.DeviceClass = "energy_storage"
			s.EntityCategory = "diagnostic"
		case der.PropImportRamp, der.PropExportRamp:
			s.UnitOfMeasurement = "W/s"
			s.EntityCategory = "diagnostic"
			s.Icon = "mdi:chart-line-variant"
		case der.PropIdleLosses:
			s.UnitOfMeasurement = "Wh/h"
			s.EntityCategory = "diagnostic"
			s.Icon = "mdi:battery-minus-outline"
		}
		sensors = append(sensors, s)
	}
	sensors[0].Device = dev

	sensors = append(sensors, GenericSensor{
		Device:            IdDevice(dev),
		Id:                SENSOR_ID_PRICE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Price",
		UniqueId:          fmt.Sprintf("%s_%s", dev.Id, SENSOR_ID_PRICE),
		UnitOfMeasurement: "¢/Wh",
		StateClass:        "measurement",
		Icon:              "mdi:cash",
	}, GenericSensor{
		Device:         IdDevice(dev),
		Id:             SENSOR_ID_REMOTE_TIME,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Remote time",
		UniqueId:       fmt.Sprintf("%s_%s", dev.Id, SENSOR_ID_REMOTE_TIME),
		DeviceClass:    "timestamp",
		EntityCategory: "diagnostic",
	})

	if waterHeater {
		sensors = append(sensors, GenericSensor{
			Device:     IdDevice(dev),
			Id:         SENSOR_ID_OPERATING_STATE,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       "Operating state",
			UniqueId:   fmt.Sprintf("%s_%s", dev.Id, SENSOR_ID_OPERATING_STATE),
			Icon:       "mdi:water-boiler",
		})
	}
	return sensors
}

func SetpointInputNumbers(dev Device, limits der.RatedLimits) []GenericInputNumber {
	return []GenericInputNumber{
		{
			Device:   IdDevice(dev),
			Id:       INPUT_NUMBER_ID_IMPORT_SETPOINT,
			Name:     "Import setpoint",
			UniqueId: fmt.Sprintf("%s_%s", dev.Id, INPUT_NUMBER_ID_IMPORT_SETPOINT),
			Icon:     "mdi:transmission-tower-import",
			Unit:     "W",
			Min:      0,
			Max:      limits.RatedImportPower,
			Step:     1,
			Mode:     "box",
		},
		{
			Device:   IdDevice(dev),
			Id:       INPUT_NUMBER_ID_EXPORT_SETPOINT,
			Name:     "Export setpoint",
			UniqueId: fmt.Sprintf("%s_%s", dev.Id, INPUT_NUMBER_ID_EXPORT_SETPOINT),
			Icon:     "mdi:transmission-tower-export",
			Unit:     "W",
			Min:      0,
			Max:      limits.RatedExportPower,
			Step:     1,
			Mode:     "box",
		},
	}
}

func WaterHeaterButtons(dev Device) []GenericButton {
	buttons := []GenericButton{
		{Id: BUTTON_ID_CRITICAL_PEAK, Name: "Critical peak event", Icon: "mdi:flash-alert"},
		{Id: BUTTON_ID_LOAD_UP, Name: "Load up", Icon: "mdi:arrow-up-bold-circle"},
		{Id: BUTTON_ID_GRID_EMERGENCY, Name: "Grid emergency", Icon: "mdi:alert-octagon"},
	}
	for i := range buttons {
		buttons[i].Device = IdDevice(dev)
		buttons[i].UniqueId = fmt.Sprintf("%s_%s", dev.Id, buttons[i].Id)
	}
	return buttons
}

// ButtonCommand maps a button id to the device command it triggers.
func ButtonCommand(id string) (DeviceCommand, bool) {
	switch id {
	case BUTTON_ID_CRITICAL_PEAK:
		return CommandCriticalPeak, true
	case BUTTON_ID_LOAD_UP:
		return CommandLoadUp, true
	case BUTTON_ID_GRID_EMERGENCY:
		return CommandGridEmergency, true
	}
	return 0, false
}

func propertyTitle(name string) string {
	b := []byte(name)
	upper := true
	for i, c := range b {
		switch {
		case c == '_':
			b[i] = ' '
			upper = true
		case upper && c >= 'a' && c <= 'z':
			b[i] = c - 'a' + 'A'
			upper = false
		default:
			upper = false
		}
	}
	return string(b)
}
