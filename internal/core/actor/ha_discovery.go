package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/der2mqtt/internal/config"
	"github.com/berfenger/der2mqtt/internal/core/der"
	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/carlmjohnson/versioninfo"
	"go.uber.org/zap"
)

type HADiscoveryActor struct {
	config    *config.Config
	behavior  actor.Behavior
	stash     *actorutil.Stash
	derActor  *actor.PID
	mqttActor *actor.PID

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, derActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		derActor:  derActor,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// the MQTT actor answers health checks only once subscribed
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 15*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if !msg.Healthy {
			panic(errors.New("MQTT Actor is not healthy"))
		}
		// rated limits may have been refreshed from the hardware
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.derActor, domain.GetSnapshotRequest{}, 2*time.Second), func(err error) any {
			return domain.GetSnapshotResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingSnapshotReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingSnapshotReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetSnapshotResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@snapshot: GetSnapshotResponse")
		ctx.Send(state.mqttActor, DiscoveryRequest(state.config, msg.Snapshot.Limits))
		state.behavior.Become(state.Done)
	default:
		state.logger.Debug("hadiscovery@snapshot: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {
	switch ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HA_DISCOVERY,
			Healthy: true,
			State:   "done",
		})
	}
}

// DiscoveryRequest lists every entity of the bridge and the resource it
// drives.
func DiscoveryRequest(cfg *config.Config, limits der.RatedLimits) domain.PublishDiscoveryRequest {
	var sensors []domain.GenericSensor
	var buttons []domain.GenericButton

	bridgeDevice := domain.BridgeDevice(cfg.MQTT.BaseTopic, versioninfo.Short())
	sensors = append(sensors, domain.BridgeSensors(bridgeDevice)...)

	waterHeater := cfg.DER.Type == config.DEVICE_TYPE_WATER_HEATER
	derDevice := domain.DERDevice(cfg.DER.InstanceId, cfg.DER.Name, cfg.DER.Type)
	derDevice.ViaDevice = bridgeDevice.Id
	derDevice.Version = versioninfo.Short()
	sensors = append(sensors, domain.DERSensors(derDevice, waterHeater)...)

	if waterHeater {
		buttons = domain.WaterHeaterButtons(derDevice)
	}

	return domain.PublishDiscoveryRequest{
		Sensors:      sensors,
		Buttons:      buttons,
		InputNumbers: domain.SetpointInputNumbers(derDevice, limits),
	}
}
