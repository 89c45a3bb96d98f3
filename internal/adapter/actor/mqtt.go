package actor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/der2mqtt/internal/config"
	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/mqtt"
	. "github.com/berfenger/der2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTActor is the bus facade. Inbound commands and server notifications go
// to the parent; outbound publishes are acked one at a time so they reach
// the broker in order.
type MQTTActor struct {
	ActorWithStates
	config *config.Config
	stash  *Stash
	client *mqtt.MQTTClient
	logger *zap.Logger

	pendingSubscriptions int
	published            uint
	failed               uint
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	replyTo  *actor.PID
	response func(error) domain.ActorResponse
	err      error
}

// ParsedCommand is forwarded to the parent for every valid command topic
// message.
type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

// ServerUpdate is forwarded to the parent for every valid price or time
// notification from the server topic.
type ServerUpdate struct {
	Update *mqtt.ServerUpdate
}

func NewMQTTActor(config *config.Config, logger *zap.Logger) *MQTTActor {
	act := newMQTTActor(config, logger)
	act.Become(MQTTConnectingState{actor: act})
	return act
}

func newMQTTActor(config *config.Config, logger *zap.Logger) *MQTTActor {
	return &MQTTActor{
		config: config,
		stash:  &Stash{},
		logger: ActorLogger(domain.ACTOR_ID_MQTT, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Connecting state

type MQTTConnectingState struct {
	ActorState
	actor *MQTTActor
}

func (state MQTTConnectingState) Name() string {
	return "connecting"
}

func (state MQTTConnectingState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.logger.Debug("mqtt@connecting started")
		a.client = mqtt.CreateMQTTClient(a.config, mqtt.OptsFromConfig(a.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		})
		a.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTConnected{})
			}
		}, 10*time.Second)
	case MQTTConnected:
		a.logger.Debug("mqtt@connecting connected")
		a.client.Publish(a.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)
		a.subscribe(ctx)
	case MQTTSubscribed:
		a.pendingSubscriptions--
		if a.pendingSubscriptions > 0 {
			return
		}
		a.logger.Info("mqtt@connecting online")
		a.Become(MQTTOnlineState{actor: a})
		a.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// let the supervisor decide
		a.logger.Error("mqtt@connecting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		a.disconnect()
	default:
		a.logger.Debug("mqtt@connecting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		a.stash.Stash(ctx, msg)
	}
}

// subscribe registers the command topics and, when configured, the server
// topics. Each acked subscription arrives as MQTTSubscribed.
func (state *MQTTActor) subscribe(ctx actor.Context) {
	done := func(err error) {
		if err != nil {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		} else {
			ctx.Send(ctx.Self(), MQTTSubscribed{})
		}
	}

	state.pendingSubscriptions = 1
	if state.client.HasServerTopic() {
		state.pendingSubscriptions++
		state.client.SubscribeToServerTopics(func(_ pahomqtt.Client, m pahomqtt.Message) {
			update, err := state.client.ParseServerMessage(m.Topic(), m.Payload())
			if err != nil {
				state.logger.Warn("mqtt: discarding server message", zap.String("topic", m.Topic()), zap.Error(err))
				return
			}
			ctx.Send(ctx.Self(), ServerUpdate{Update: update})
		}, done, time.Second)
	}

	state.client.SubscribeToCommandTopic(func(_ pahomqtt.Client, m pahomqtt.Message) {
		cmd, err := state.client.ParseMQTTCommand(m)
		if err != nil {
			state.logger.Warn("mqtt: discarding command", zap.String("topic", m.Topic()), zap.Error(err))
			return
		}
		ctx.Send(ctx.Self(), ParsedCommand{Command: cmd})
	}, done, time.Second)
}

// Online state

type MQTTOnlineState struct {
	ActorState
	actor *MQTTActor
}

func (state MQTTOnlineState) Name() string {
	return "online"
}

func (state MQTTOnlineState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		a.logger.Debug("mqtt@online ActorHealthRequest")
		ctx.Respond(a.health())
	case ParsedCommand:
		a.logger.Debug("mqtt@online command", zap.Any("command", msg.Command))
		ctx.Send(ctx.Parent(), msg)
	case ServerUpdate:
		a.logger.Debug("mqtt@online server update")
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishMessageRequest:
		a.publish(ctx, mqtt.Message{Topic: msg.Topic, Payload: msg.Payload, Retain: msg.Retain}, ForRequest(msg).ReplyTo(ctx),
			func(err error) domain.ActorResponse {
				return domain.PublishMessageResponse{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err}}
			})
	case domain.PublishSensorUpdateRequest:
		m, ok := a.client.SensorMessage(msg.Event)
		if !ok {
			a.logger.Debug("mqtt@online no topic for event", zap.String("type", fmt.Sprintf("%T", msg.Event)))
			return
		}
		m.Retain = m.Retain || msg.Retain
		a.publish(ctx, m, ForRequest(msg).ReplyTo(ctx),
			func(err error) domain.ActorResponse {
				return domain.PublishSensorUpdateResponse{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err}}
			})
	case domain.PublishDiscoveryRequest:
		err := a.publishDiscovery(msg.Sensors, msg.Buttons, msg.InputNumbers)
		if err != nil {
			a.logger.Error("mqtt@online discovery error", zap.Error(err))
		}
		ForRequest(msg).Respond(ctx, domain.PublishDiscoveryResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		})
	case MQTTConnectionLost:
		a.logger.Error("mqtt@online connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting, *actor.Stopping:
		a.disconnect()
	default:
		a.logger.Debug("mqtt@online unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MQTTActor) publish(ctx actor.Context, m mqtt.Message, replyTo *actor.PID, response func(error) domain.ActorResponse) {
	state.logger.Debug("mqtt: publish", zap.String("topic", m.Topic), zap.String("payload", m.Payload))
	state.client.Publish(m.Topic, m.Payload, 1, m.Retain, func(err error) {
		ctx.Send(ctx.Self(), publishResult{replyTo: replyTo, response: response, err: err})
	}, 5*time.Second)
	state.BecomeStacked(MQTTPublishingState{actor: state})
}

// Publishing state: waits for one broker ack. Everything else is stashed and
// replayed oldest first.

type MQTTPublishingState struct {
	ActorState
	actor *MQTTActor
}

func (state MQTTPublishingState) Name() string {
	return "publishing"
}

func (state MQTTPublishingState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case publishResult:
		if msg.err != nil {
			a.failed++
			a.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.err))
		} else {
			a.published++
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.response(msg.err))
		}
		a.UnbecomeStacked()
		a.stash.UnstashOldest(ctx)
	case MQTTConnectionLost:
		a.logger.Error("mqtt@publishing connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		a.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		a.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) publishDiscovery(sensors []domain.GenericSensor,
	buttons []domain.GenericButton, inputNumbers []domain.GenericInputNumber) error {
	prefix := state.client.HADiscoveryTopic()
	for _, s := range sensors {
		if err := state.publishJSON(mqtt.HADiscoverySensorTopic(prefix, s), mqtt.GenericSensorToHADiscoveryMessage(state.client, s)); err != nil {
			return err
		}
	}
	for _, b := range buttons {
		if err := state.publishJSON(mqtt.HADiscoveryButtonTopic(prefix, b), mqtt.GenericButtonToHADiscoveryMessage(state.client, b)); err != nil {
			return err
		}
	}
	for _, n := range inputNumbers {
		if err := state.publishJSON(mqtt.HADiscoveryInputNumberTopic(prefix, n), mqtt.GenericInputNumberToHADiscoveryMessage(state.client, n)); err != nil {
			return err
		}
	}
	return nil
}

// publishJSON sends a retained discovery document without waiting for the ack.
func (state *MQTTActor) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	state.client.Publish(topic, payload, 0, true, func(error) {}, time.Second)
	return nil
}

func (state *MQTTActor) health() domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MQTT,
		Healthy: true,
		State:   fmt.Sprintf("%s, published %d, failed %d", state.StateName(), state.published, state.failed),
	}
}

func (state *MQTTActor) disconnect() {
	if state.client == nil {
		return
	}
	state.logger.Debug("mqtt: disconnect")
	state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
	state.client.Disconnect(500 * time.Millisecond)
}

// NewTestMQTTActor returns an actor that never touches a broker. Sensor
// updates are sent to published when it is non nil.
func NewTestMQTTActor(config *config.Config, published chan<- domain.SensorUpdateEvent, logger *zap.Logger) *MQTTActor {
	act := newMQTTActor(config, logger)
	act.Become(MQTTDryState{actor: act, published: published})
	return act
}

type MQTTDryState struct {
	ActorState
	actor     *MQTTActor
	published chan<- domain.SensorUpdateEvent
}

func (state MQTTDryState) Name() string {
	return "dry"
}

func (state MQTTDryState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.client = mqtt.CreateMQTTClient(a.config, mqtt.OptsFromConfig(a.config), nil, nil)
	case domain.ActorHealthRequest:
		ctx.Respond(a.health())
	case ParsedCommand, ServerUpdate:
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishSensorUpdateRequest:
		if _, ok := a.client.SensorMessage(msg.Event); ok {
			a.published++
			if state.published != nil {
				state.published <- msg.Event
			}
		}
		ForRequest(msg).Respond(ctx, domain.PublishSensorUpdateResponse{})
	case domain.PublishMessageRequest:
		ForRequest(msg).Respond(ctx, domain.PublishMessageResponse{})
	case domain.PublishDiscoveryRequest:
		ForRequest(msg).Respond(ctx, domain.PublishDiscoveryResponse{})
	}
}
