package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/berfenger/der2mqtt/internal/adapter/actor"
	"github.com/berfenger/der2mqtt/internal/config"
	"github.com/berfenger/der2mqtt/internal/core/der"
	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/core/service"
	. "github.com/berfenger/der2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func() *adactor.MQTTActor

type DriverActorProvider func() *adactor.DriverActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	engine *der.Engine
	heater *service.WaterHeater

	currentHealthCheck  healthCheckResult
	eventStream         *eventstream.EventStream
	subscription        *eventstream.Subscription
	driverActor         *actor.PID
	derActor            *actor.PID
	mqttActor           *actor.PID
	telemetryActor      *actor.PID
	driverActorProvider DriverActorProvider
	mqttActorProvider   MQTTActorProvider
	logger              *zap.Logger
}

type healthCheckResult struct {
	expected       map[string]bool
	checksReceived int
	respondTo      *actor.PID
}

// NewMasterOfPuppetsActor supervises every actor of the bridge. heater and
// driverActorProvider are nil for a simulated resource.
func NewMasterOfPuppetsActor(config config.Config, engine *der.Engine, heater *service.WaterHeater,
	driverActorProvider DriverActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:              config,
		engine:              engine,
		heater:              heater,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		logger:              ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:         &eventstream.EventStream{},
		driverActorProvider: driverActorProvider,
		mqttActorProvider:   mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// start driver child
		if state.driverActorProvider != nil {
			driverActorPID, err := state.startDriverActor(ctx)
			if err != nil {
				panic(err)
			}
			state.driverActor = driverActorPID
		}

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// sensor updates from any child go out through MQTT
		system := ctx.ActorSystem()
		mqttPID := state.mqttActor
		state.subscription = state.eventStream.Subscribe(func(evt any) {
			if ev, ok := evt.(domain.SensorUpdateEvent); ok {
				system.Root.Send(mqttPID, domain.PublishSensorUpdateRequest{Event: ev})
			}
		})

		// start DER child
		derActorPID, err := state.startDERActor(ctx)
		if err != nil {
			panic(err)
		}
		state.derActor = derActorPID

		// start telemetry child
		telemetryActorPID, err := state.startTelemetryActor(ctx)
		if err != nil {
			panic(err)
		}
		state.telemetryActor = telemetryActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(state.children())
		state.currentHealthCheck.respondTo = ctx.Sender()
		for id, pid := range state.children() {
			childId := id
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      childId,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// redirect parsedCommand to the DER actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err != nil {
				state.logger.Warn("master@default discarding command", zap.Error(err))
			} else if cmd != nil {
				ctx.Send(state.derActor, cmd)
			}
		}
	case adactor.ServerUpdate:
		if msg.Update == nil {
			return
		}
		if msg.Update.Price != nil {
			ctx.Send(state.derActor, domain.SetPriceRequest{Price: *msg.Update.Price})
		}
		if msg.Update.Time != nil {
			ctx.Send(state.derActor, domain.SetRemoteTimeRequest{UTC: *msg.Update.Time})
		}
	case domain.GetPropertyRequest, domain.GetPropertiesRequest, domain.GetSnapshotRequest,
		domain.SetImportSetpointRequest, domain.SetExportSetpointRequest, domain.WaterHeaterEventRequest:
		ctx.Forward(state.derActor)
	case *actor.Stopping:
		if state.subscription != nil {
			state.eventStream.Unsubscribe(state.subscription)
		}
	case *actor.Terminated:
		// the driver gives up only when the hardware is unreachable
		if state.driverActor != nil && msg.Who.Id == state.driverActor.Id {
			state.logger.Error("master@default driver error")
			panic(errors.New("driver terminated"))
		}
	default:
		state.logger.Debug("master@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.SetReceiveTimeout(0)
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if _, ok := state.currentHealthCheck.expected[msg.Id]; ok && msg.Healthy {
			state.currentHealthCheck.expected[msg.Id] = true
		}
		if state.currentHealthCheck.allReceived() {
			ctx.SetReceiveTimeout(0)
			state.currentHealthCheck.respond(ctx)
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) children() map[string]*actor.PID {
	children := map[string]*actor.PID{
		domain.ACTOR_ID_MQTT:      state.mqttActor,
		domain.ACTOR_ID_DER:       state.derActor,
		domain.ACTOR_ID_TELEMETRY: state.telemetryActor,
	}
	if state.driverActor != nil {
		children[domain.ACTOR_ID_DRIVER] = state.driverActor
	}
	return children
}

func (state *MasterOfPuppetsActor) startDriverActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	driverProps := actor.PropsFromProducer(func() actor.Actor {
		return state.driverActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(driverProps, domain.ACTOR_ID_DRIVER)
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *MasterOfPuppetsActor) startDERActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(3, 10*time.Second, decider)

	derProps := actor.PropsFromProducer(func() actor.Actor {
		return NewDERActor(&state.config, state.engine, state.heater, state.driverActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(derProps, domain.ACTOR_ID_DER)
}

func (state *MasterOfPuppetsActor) startTelemetryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	telemetryProps := actor.PropsFromProducer(func() actor.Actor {
		return NewTelemetryActor(&state.config, state.derActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(telemetryProps, domain.ACTOR_ID_TELEMETRY)
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.derActor, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *healthCheckResult) reset(children map[string]*actor.PID) {
	state.expected = make(map[string]bool, len(children))
	for id := range children {
		state.expected[id] = false
	}
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= len(state.expected)
}

func (state *healthCheckResult) allHealthy() bool {
	for _, healthy := range state.expected {
		if !healthy {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
