package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	adactor "github.com/berfenger/der2mqtt/internal/adapter/actor"
	"github.com/berfenger/der2mqtt/internal/adapter/console"
	"github.com/berfenger/der2mqtt/internal/adapter/telemetry"
	"github.com/berfenger/der2mqtt/internal/adapter/ucm"
	"github.com/berfenger/der2mqtt/internal/config"
	"github.com/berfenger/der2mqtt/internal/core/actor"
	"github.com/berfenger/der2mqtt/internal/core/der"
	"github.com/berfenger/der2mqtt/internal/core/schedule"
	"github.com/berfenger/der2mqtt/internal/core/service"
	"github.com/berfenger/der2mqtt/internal/server"
	"github.com/berfenger/der2mqtt/internal/util/actorutil"
	"github.com/berfenger/der2mqtt/pkg/ucm_modbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(ctx context.Context, apiServer *http.Server, logger *zap.Logger, done chan bool) {
	// Listen for the interrupt signal or a console quit.
	<-ctx.Done()

	logger.Info("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	engine, heater, driverProv, err := buildDevice(cfg, logger)
	if err != nil {
		logger.Fatal("device init failed", zap.Error(err))
	}

	if cfg.Telemetry.Path != "" {
		sink, err := telemetry.OpenFileSink(cfg.Telemetry.Path)
		if err != nil {
			logger.Fatal("telemetry sink init failed", zap.Error(err))
		}
		defer sink.Close()
		engine.SetTelemetry(sink, time.Duration(cfg.Telemetry.IntervalSeconds)*time.Second)
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, engine, heater, driverProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := root.SpawnNamed(props, "master")
	if err != nil {
		logger.Fatal("master actor spawn failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	commander := actor.NewCommander(root, pid)

	var scheduleEnabled *atomic.Bool
	if cfg.Schedule.Path != "" {
		rows, err := schedule.Load(cfg.Schedule.Path)
		if err != nil {
			logger.Fatal("schedule load failed", zap.Error(err))
		}
		scheduleEnabled = &atomic.Bool{}
		scheduleEnabled.Store(cfg.Schedule.Enable)
		operator := schedule.NewOperator(rows, commander, scheduleEnabled, logger)
		sched, err := schedule.Start(ctx, operator)
		if err != nil {
			logger.Fatal("schedule start failed", zap.Error(err))
		}
		defer sched.Stop()
		logger.Info("schedule loaded", zap.Int("rows", operator.Len()), zap.Bool("enabled", cfg.Schedule.Enable))
	}

	if cfg.Console.Enable {
		c := console.New(commander, engine, scheduleEnabled, logger)
		go func() {
			if err := c.Run(ctx, stop); err != nil {
				logger.Error("console failed", zap.Error(err))
			}
		}()
	}

	apiServer := server.NewServer(*cfg, actor.NewMasterClient(root, pid, 10*time.Second))
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(ctx, apiServer, logger, done)

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done

	// stopping the master stops the control loop after its current step
	if err := root.StopFuture(pid).Wait(); err != nil {
		logger.Warn("master actor stop", zap.Error(err))
	}
	as.Shutdown()
	logger.Info("graceful shutdown complete")
}

// buildDevice creates the engine for the configured device type.
func buildDevice(cfg *config.Config, logger *zap.Logger) (*der.Engine, *service.WaterHeater, actor.DriverActorProvider, error) {
	limits := cfg.DER.Limits()

	switch cfg.DER.Type {
	case config.DEVICE_TYPE_WATER_HEATER:
		wh := cfg.WaterHeater
		timeout := time.Duration(wh.TimeoutMillis) * time.Millisecond
		var client ucm_modbus.UCMModbusClient
		if wh.DryRun {
			logger.Warn("water heater dry run, no UCM is contacted")
			client = ucm_modbus.CreateTestUCMModbusClient()
		} else {
			var err error
			client, err = ucm_modbus.CreateUCMModbusClient(wh.Host, wh.Port, uint8(wh.UnitId), timeout, logger, nil)
			if err != nil {
				return nil, nil, nil, err
			}
		}
		driver := ucm.NewDriver(client)
		// an unreachable UCM aborts startup, later failures are retried by
		// the driver actor supervisor
		if err := driver.Open(); err != nil {
			return nil, nil, nil, fmt.Errorf("water heater: %w", err)
		}
		if err := driver.Close(); err != nil {
			return nil, nil, nil, fmt.Errorf("water heater: %w", err)
		}
		heater := service.NewWaterHeater(time.Duration(wh.HeartbeatMinutes)*time.Minute, logger)
		provider := func() *adactor.DriverActor {
			return adactor.NewDriverActor(driver, timeout, wh.UseCurrentTransducer, logger)
		}
		return der.NewEngine(limits, heater), heater, provider, nil
	case config.DEVICE_TYPE_SIMULATED:
		rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		engine, err := der.NewSimulatedEngine(limits, cfg.DER.Seed, rng)
		if err != nil {
			return nil, nil, nil, err
		}
		return engine, nil, nil, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown device type %q", cfg.DER.Type)
}

func initConfig() (*config.Config, error) {

	// alias PORT => DER2MQTT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("DER2MQTT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("der2mqtt")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(errors.New("invalid config"), err)
	}

	return &cfg, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("der.type", config.DEVICE_TYPE_SIMULATED)
	viper.SetDefault("der.name", "DER")
	viper.SetDefault("der.instance_id", "der")
	viper.SetDefault("der.rated_export_power", 1000)
	viper.SetDefault("der.rated_export_energy", 5000)
	viper.SetDefault("der.export_ramp", 100)
	viper.SetDefault("der.rated_import_power", 1000)
	viper.SetDefault("der.rated_import_energy", 5000)
	viper.SetDefault("der.import_ramp", 100)
	viper.SetDefault("der.idle_losses", 10)
	viper.SetDefault("der.seed.mean", 0.5)
	viper.SetDefault("der.seed.std_dev", 0.2)
	viper.SetDefault("control.sleep_millis", 1000)
	viper.SetDefault("telemetry.interval_seconds", 60)
	viper.SetDefault("telemetry.publish_poll_millis", 1000)
	viper.SetDefault("telemetry.full_publish_seconds", 3600)
	viper.SetDefault("telemetry.deviation_seconds", 300)
	viper.SetDefault("telemetry.deviation_percent", 10)
	viper.SetDefault("telemetry.path", "")
	viper.SetDefault("schedule.enable", false)
	viper.SetDefault("schedule.path", "")
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.server_topic", "")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "der2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("water_heater.host", "")
	viper.SetDefault("water_heater.port", 502)
	viper.SetDefault("water_heater.unit_id", 1)
	viper.SetDefault("water_heater.heartbeat_minutes", 5)
	viper.SetDefault("water_heater.query_interval_millis", 60000)
	viper.SetDefault("water_heater.timeout_millis", 1000)
	viper.SetDefault("water_heater.use_current_transducer", false)
	viper.SetDefault("water_heater.dry_run", false)
	viper.SetDefault("console.enable", false)
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
