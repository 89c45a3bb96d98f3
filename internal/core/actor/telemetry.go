package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/der2mqtt/internal/config"
	"github.com/berfenger/der2mqtt/internal/core/der"
	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/core/events"
	. "github.com/berfenger/der2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// TelemetryActor polls the DER actor and pushes the property set to the
// event stream whenever the publish policy says so.
type TelemetryActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	derActor    *actor.PID
	config      *config.Config
	eventStream *eventstream.EventStream
	policy      *der.PublishPolicy
	clock       func() time.Time
	published   uint

	logger *zap.Logger
}

type telemetryTick struct {
}

func NewTelemetryActor(config *config.Config, derActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *TelemetryActor {
	act := &TelemetryActor{
		config:      config,
		derActor:    derActor,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_TELEMETRY, logger),
		eventStream: eventStream,
		policy:      PublishPolicyFromConfig(config.Telemetry),
		clock:       time.Now,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

// PublishPolicyFromConfig falls back to the defaults for unset intervals.
func PublishPolicyFromConfig(cfg config.TelemetryConfig) *der.PublishPolicy {
	policy := der.DefaultPublishPolicy()
	if cfg.FullPublishSeconds > 0 {
		policy.FullInterval = int64(cfg.FullPublishSeconds)
	}
	if cfg.DeviationSeconds > 0 {
		policy.DeviationInterval = int64(cfg.DeviationSeconds)
	}
	if cfg.DeviationPercent > 0 {
		policy.Deviation = float64(cfg.DeviationPercent) / 100
	}
	return policy
}

func (state *TelemetryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *TelemetryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("telemetry@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		ctx.Send(ctx.Self(), telemetryTick{})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("telemetry@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *TelemetryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("telemetry@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_TELEMETRY,
			Healthy: true,
			State:   fmt.Sprintf("published %d", state.published),
		})
	case telemetryTick:
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.derActor, domain.GetSnapshotRequest{}, time.Second), func(err error) any {
			return domain.GetSnapshotResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})

		// schedule next tick
		state.scheduler.RequestOnce(time.Duration(state.config.Telemetry.PublishPollMillis)*time.Millisecond, ctx.Self(), telemetryTick{})
		state.behavior.BecomeStacked(state.WaitingSnapshotReceive)
	default:
		state.logger.Debug("telemetry@default: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *TelemetryActor) WaitingSnapshotReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetSnapshotResponse:
		if msg.HasResponseError() {
			state.logger.Error("telemetry@waiting GetSnapshotResponse error", zap.Error(msg.GetResponseError()))
		} else if state.policy.Due(state.clock().Unix(), msg.Snapshot) {
			state.logger.Debug("telemetry@waiting publishing property set")
			for _, ev := range events.SnapshotToUpdateEvents(msg.Snapshot) {
				state.eventStream.Publish(ev)
			}
			state.published++
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("telemetry@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}
