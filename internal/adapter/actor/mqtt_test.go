package actor

import (
	"testing"
	"time"

	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/util"
	"github.com/berfenger/der2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()
	require.NoError(t, cfg.Validate())

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	published := make(chan domain.SensorUpdateEvent, 4)

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, published, logger) })
	pid := as.Root.Spawn(props)

	result, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.Equal(t, domain.ACTOR_ID_MQTT, resp.Id)
	assert.Equal(t, "dry, published 0, failed 0", resp.State)

	_, err = as.Root.RequestFuture(pid, domain.PublishSensorUpdateRequest{
		Event: domain.NewFloatSensorUpdate("import_power", 245, 0),
	}, 2*time.Second).Result()
	require.NoError(t, err)

	select {
	case ev := <-published:
		assert.Equal(t, "import_power", ev.SensorId())
	case <-time.After(time.Second):
		t.Fatal("sensor update was not published")
	}

	result, err = as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, "dry, published 1, failed 0", result.(domain.ActorHealthResponse).State)
}
