package actorutil

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/der2mqtt/internal/core/domain"
	"github.com/berfenger/der2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel, zap.DPanicLevel, zap.PanicLevel, zap.FatalLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
			NoColor:    true,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand turns an inbound MQTT command into a request for
// the DER actor. Unknown ids yield nil; malformed payloads yield an error.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	switch cmd.Command {
	case mqtt.COMMAND_NUMBER:
		watts, err := strconv.ParseFloat(strings.TrimSpace(cmd.Payload), 64)
		if err != nil {
			return nil, err
		}
		if watts < 0 || math.IsNaN(watts) || math.IsInf(watts, 0) {
			return nil, fmt.Errorf("invalid watt value %q", cmd.Payload)
		}
		switch cmd.DeviceId {
		case domain.INPUT_NUMBER_ID_IMPORT_SETPOINT:
			return domain.SetImportSetpointRequest{Watts: watts}, nil
		case domain.INPUT_NUMBER_ID_EXPORT_SETPOINT:
			return domain.SetExportSetpointRequest{Watts: watts}, nil
		}
	case mqtt.COMMAND_BUTTON:
		if c, ok := domain.ButtonCommand(cmd.DeviceId); ok {
			return domain.WaterHeaterEventRequest{Command: c}, nil
		}
	}
	return nil, nil
}
