package actor

import (
	"testing"
	"time"

	adactor "github.com/berfenger/der2mqtt/internal/adapter/actor"
	"github.com/berfenger/der2mqtt/internal/core/der"
	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/mqtt"
	"github.com/berfenger/der2mqtt/internal/util"
	"github.com/berfenger/der2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	require := require.New(t)

	cfg := util.LoadTestConfig()
	require.NoError(cfg.Validate())
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	engine := der.NewEngine(cfg.DER.Limits(), der.Simulated{})
	engine.SetImportEnergy(2500)
	engine.SetExportEnergy(2500)

	published := make(chan domain.SensorUpdateEvent, 256)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, engine, nil, nil, func() *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, published, logger)
		}, logger)
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(err)

	client := NewMasterClient(as.Root, pid, 2*time.Second)

	health, err := client.Health()
	require.NoError(err)
	assert.True(t, health.Healthy, "healthy is true")

	sp, err := client.SetExportSetpoint(250)
	require.NoError(err)
	assert.Equal(t, 250.0, sp.ExportSetpoint)

	value, err := client.Property(der.PropRatedExportEnergy)
	require.NoError(err)
	assert.Equal(t, uint32(5000), value)

	props2, err := client.Properties()
	require.NoError(err)
	assert.Len(t, props2, len(der.PropertyNames))

	// inbound MQTT command routed to the engine
	as.Root.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: domain.INPUT_NUMBER_ID_IMPORT_SETPOINT,
		Command:  mqtt.COMMAND_NUMBER,
		Payload:  "300",
	}})
	price := 4.2
	as.Root.Send(pid, adactor.ServerUpdate{Update: &mqtt.ServerUpdate{Price: &price}})

	require.Eventually(func() bool {
		s := engine.Snapshot()
		return s.ImportSetpoint == 300 && s.ExportSetpoint == 0 && s.Price == 4.2
	}, 2*time.Second, 50*time.Millisecond)

	// the telemetry actor publishes the property set on its first poll
	require.Eventually(func() bool {
		for {
			select {
			case ev := <-published:
				if ev.SensorId() == der.PropIdleLosses {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 50*time.Millisecond)

	err = client.WaterHeaterEvent(domain.CommandLoadUp)
	assert.ErrorIs(t, err, ErrNoWaterHeater)

	as.Root.Stop(pid)
}
