package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/core/port"
	"github.com/berfenger/der2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// DriverActor serialises every exchange with the load-control hardware. One
// call runs at a time; requests arriving meanwhile are stashed.
type DriverActor struct {
	behavior      actor.Behavior
	stash         *actorutil.Stash
	driver        port.Driver
	timeout       time.Duration
	useTransducer bool
	logger        *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewDriverActor(driver port.Driver, timeout time.Duration, useTransducer bool, logger *zap.Logger) *DriverActor {
	act := &DriverActor{
		driver:        driver,
		timeout:       timeout,
		useTransducer: useTransducer,
		behavior:      actor.NewBehavior(),
		stash:         &actorutil.Stash{},
		logger:        actorutil.ActorLogger(domain.ACTOR_ID_DRIVER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *DriverActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DriverActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("driver@starting started")
		if err := state.driver.Open(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.driver.Close()
	default:
		state.logger.Debug("driver@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DriverActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("driver@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DRIVER,
			Healthy: true,
			State:   "idle",
		})
	case domain.DeviceCommandRequest:
		state.logger.Debug("driver@default: DeviceCommandRequest", zap.Stringer("command", msg.Command))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		cmd := msg.Command
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.DeviceCommandResponse {
			r := state.sendCommand(cmd)
			return &r
		}), mapTaskResult[domain.DeviceCommandResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.DeviceCommandResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					Command: cmd,
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDriver)
	case domain.QueryCommoditiesRequest:
		state.logger.Debug("driver@default: QueryCommoditiesRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.queryCommodities),
			mapTaskResult[domain.QueryCommoditiesResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.QueryCommoditiesResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDriver)
	case *actor.Stopping:
		state.driver.Close()
	default:
		state.logger.Debug("driver@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DriverActor) WaitingDriver(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("driver@WaitingDriver backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.driver.Close()
	default:
		state.logger.Debug("driver@WaitingDriver stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DriverActor) sendCommand(cmd domain.DeviceCommand) domain.DeviceCommandResponse {
	err := port.Send(state.driver, cmd)
	if err != nil {
		state.logger.Error("driver: command failed", zap.Stringer("command", cmd), zap.Error(err))
	}
	return domain.DeviceCommandResponse{
		ActorResponseMixIn: domain.ActorResponseMixIn{
			ResponseError: err,
		},
		Command: cmd,
	}
}

func (state *DriverActor) queryCommodities() (*domain.QueryCommoditiesResponse, error) {
	commodities, err := state.driver.Commodities()
	if err != nil {
		state.logger.Error("driver: commodity read failed", zap.Error(err))
		return nil, err
	}
	resp := &domain.QueryCommoditiesResponse{Commodities: commodities}
	if state.useTransducer {
		watts, err := state.driver.MeasuredPower()
		if err != nil {
			state.logger.Error("driver: transducer read failed", zap.Error(err))
			return nil, err
		}
		resp.MeasuredPower = watts
	}
	return resp, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
