package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/der2mqtt/internal/config"
	"github.com/berfenger/der2mqtt/internal/core/der"
	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/core/events"
	"github.com/berfenger/der2mqtt/internal/core/service"
	. "github.com/berfenger/der2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

var ErrNoWaterHeater = errors.New("der: device does not accept grid events")

// DERActor owns the control loop of one engine. Steps, setpoint changes and
// property reads are messages, so they never interleave.
type DERActor struct {
	ActorWithStates
	scheduler *scheduler.TimerScheduler
	stash     *Stash

	config      *config.Config
	engine      *der.Engine
	heater      *service.WaterHeater
	driverActor *actor.PID
	eventStream *eventstream.EventStream
	clock       func() time.Time

	lastTick        time.Time
	cancelTick      scheduler.CancelFunc
	cancelCommodity scheduler.CancelFunc
	lastOpState     domain.OperatingState

	logger *zap.Logger
}

type derTick struct {
}

type commodityTick struct {
}

// NewDERActor drives engine. heater and driverActor are nil for a simulated
// resource.
func NewDERActor(config *config.Config, engine *der.Engine, heater *service.WaterHeater, driverActor *actor.PID,
	eventStream *eventstream.EventStream, logger *zap.Logger) *DERActor {
	act := &DERActor{
		config:      config,
		engine:      engine,
		heater:      heater,
		driverActor: driverActor,
		eventStream: eventStream,
		clock:       time.Now,
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_DER, logger),
		lastOpState: domain.OpStateIdle,
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(DERStartingState{actor: act})
	return act
}

func (state *DERActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type DERStartingState struct {
	ActorState
	actor *DERActor
}

func (state DERStartingState) Name() string {
	return "starting"
}

func (state DERStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("der@starting started")
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
		state.actor.lastTick = state.actor.clock()
		state.actor.cancelTick = state.actor.scheduler.RequestOnce(state.actor.sleep(), ctx.Self(), derTick{})
		if state.actor.heater != nil {
			ctx.Send(ctx.Self(), commodityTick{})
		}
		state.actor.Become(DERRunningState{actor: state.actor})
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("der@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Running state

type DERRunningState struct {
	ActorState
	actor *DERActor
}

func (state DERRunningState) Name() string {
	return "running"
}

func (state DERRunningState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		a.logger.Debug("der@running: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DER,
			Healthy: true,
			State:   a.StateName(),
		})
	case derTick:
		a.tick(ctx)
	case commodityTick:
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(a.driverActor, domain.QueryCommoditiesRequest{}, a.driverTimeout()), func(err error) any {
			return domain.QueryCommoditiesResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	case domain.QueryCommoditiesResponse:
		if msg.HasResponseError() {
			a.logger.Warn("der@running: commodity query failed", zap.Error(msg.GetResponseError()))
		} else {
			a.engine.Update(func(s *der.State) {
				service.ApplyCommodities(s, msg.Commodities)
				if a.config.WaterHeater.UseCurrentTransducer {
					s.SetImportPower(msg.MeasuredPower)
				}
			})
		}
		a.cancelCommodity = a.scheduler.RequestOnce(
			time.Duration(a.config.WaterHeater.QueryIntervalMillis)*time.Millisecond, ctx.Self(), commodityTick{})
	case domain.DeviceCommandResponse:
		if msg.HasResponseError() {
			a.logger.Error("der@running: device command failed", zap.Stringer("command", msg.Command), zap.Error(msg.GetResponseError()))
		}
		a.heater.Acknowledge(msg.Command, msg.GetResponseError())
		a.publishOperatingState()
	case domain.GetSnapshotRequest:
		ForRequest(msg).Respond(ctx, domain.GetSnapshotResponse{Snapshot: a.engine.Snapshot()})
	case domain.GetPropertyRequest:
		value, err := a.engine.ReadProperty(msg.Name)
		ForRequest(msg).Respond(ctx, domain.GetPropertyResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			Name:  msg.Name,
			Value: value,
		})
	case domain.GetPropertiesRequest:
		ForRequest(msg).Respond(ctx, domain.GetPropertiesResponse{Properties: a.engine.Snapshot().Properties()})
	case domain.SetImportSetpointRequest:
		a.logger.Info("der@running: import setpoint", zap.Float64("watts", msg.Watts))
		a.engine.SetImportSetpoint(msg.Watts)
		a.respondSetpoints(ctx, msg)
	case domain.SetExportSetpointRequest:
		a.logger.Info("der@running: export setpoint", zap.Float64("watts", msg.Watts))
		a.engine.SetExportSetpoint(msg.Watts)
		a.respondSetpoints(ctx, msg)
	case domain.SetPriceRequest:
		a.logger.Debug("der@running: price", zap.Float64("price", msg.Price))
		a.engine.SetPrice(msg.Price)
	case domain.SetRemoteTimeRequest:
		a.logger.Debug("der@running: remote time", zap.Uint32("utc", msg.UTC))
		a.engine.SetRemoteTime(msg.UTC)
	case domain.WaterHeaterEventRequest:
		var err error
		if a.heater == nil {
			err = ErrNoWaterHeater
		} else {
			err = a.heater.Event(msg.Command)
		}
		if err != nil {
			a.logger.Warn("der@running: grid event rejected", zap.Stringer("command", msg.Command), zap.Error(err))
		}
		ForRequest(msg).Respond(ctx, domain.WaterHeaterEventResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		})
	case *actor.Stopping:
		a.logger.Debug("der@running: stopping")
		a.cancel()
	case *actor.Restarting:
		a.cancel()
	default:
		a.logger.Debug("der@running: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// tick advances the engine by the wall time since the previous tick start
// and schedules the next one so that ticks start a sleep interval apart.
func (state *DERActor) tick(ctx actor.Context) {
	start := state.clock()
	elapsed := start.Sub(state.lastTick)
	state.lastTick = start

	state.engine.Step(elapsed)
	state.engine.MaybeLog(start.Unix())

	if state.heater != nil {
		for _, cmd := range state.heater.DrainCommands() {
			command := cmd
			state.logger.Debug("der: forwarding device command", zap.Stringer("command", command))
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.driverActor, domain.DeviceCommandRequest{Command: command}, state.driverTimeout()), func(err error) any {
				return domain.DeviceCommandResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					Command: command,
				}
			})
		}
	}

	next := state.sleep() - state.clock().Sub(start)
	if next < 0 {
		next = 0
	}
	state.cancelTick = state.scheduler.RequestOnce(next, ctx.Self(), derTick{})
}

func (state *DERActor) respondSetpoints(ctx actor.Context, req domain.ActorRequest) {
	s := state.engine.Snapshot()
	for _, ev := range events.SetpointUpdateEvents(s.ImportSetpoint, s.ExportSetpoint) {
		state.eventStream.Publish(ev)
	}
	ForRequest(req).Respond(ctx, domain.SetSetpointResponse{
		ImportSetpoint: s.ImportSetpoint,
		ExportSetpoint: s.ExportSetpoint,
	})
}

func (state *DERActor) publishOperatingState() {
	current := state.heater.OperatingState()
	if current == state.lastOpState {
		return
	}
	state.lastOpState = current
	state.eventStream.Publish(events.OperatingStateUpdateEvent(current))
}

func (state *DERActor) sleep() time.Duration {
	return time.Duration(state.config.Control.SleepMillis) * time.Millisecond
}

func (state *DERActor) driverTimeout() time.Duration {
	// leave the driver actor room to answer with its own timeout error
	return 2 * time.Duration(state.config.WaterHeater.TimeoutMillis) * time.Millisecond
}

func (state *DERActor) cancel() {
	if state.cancelTick != nil {
		state.cancelTick()
	}
	if state.cancelCommodity != nil {
		state.cancelCommodity()
	}
}
