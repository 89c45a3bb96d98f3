package domain

import (
	"github.com/asynkron/protoactor-go/actor"
	"github.com/berfenger/der2mqtt/internal/core/der"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_DER          = "der"
	ACTOR_ID_DRIVER       = "driver"
	ACTOR_ID_TELEMETRY    = "telemetry"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type ActorRef actor.PID

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

// DER engine

type GetSnapshotRequest struct {
	ActorRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot der.Snapshot
}

type GetPropertyRequest struct {
	ActorRequestMixIn
	Name string
}

type GetPropertyResponse struct {
	ActorResponseMixIn
	Name  string
	Value uint32
}

type GetPropertiesRequest struct {
	ActorRequestMixIn
}

type GetPropertiesResponse struct {
	ActorResponseMixIn
	Properties map[string]uint32
}

type SetImportSetpointRequest struct {
	ActorRequestMixIn
	Watts float64
}

type SetExportSetpointRequest struct {
	ActorRequestMixIn
	Watts float64
}

type SetSetpointResponse struct {
	ActorResponseMixIn
	ImportSetpoint float64
	ExportSetpoint float64
}

// SetPriceRequest carries a price already converted to cents per Wh.
type SetPriceRequest struct {
	Price float64
}

type SetRemoteTimeRequest struct {
	UTC uint32
}

// WaterHeaterEventRequest asks the engine's device for a grid event
// (critical peak, load up, grid emergency).
type WaterHeaterEventRequest struct {
	ActorRequestMixIn
	Command DeviceCommand
}

type WaterHeaterEventResponse struct {
	ActorResponseMixIn
}

// Driver

type DeviceCommandRequest struct {
	ActorRequestMixIn
	Command DeviceCommand
}

type DeviceCommandResponse struct {
	ActorResponseMixIn
	Command DeviceCommand
}

type QueryCommoditiesRequest struct {
	ActorRequestMixIn
}

type QueryCommoditiesResponse struct {
	ActorResponseMixIn
	Commodities   []Commodity
	MeasuredPower float64
}

// MQTT

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Buttons      []GenericButton
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// Health

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
