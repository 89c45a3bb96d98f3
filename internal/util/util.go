package util

import (
	"github.com/berfenger/der2mqtt/internal/config"
	"github.com/berfenger/der2mqtt/internal/core/der"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		DER: config.DERConfig{
			Type:              config.DEVICE_TYPE_SIMULATED,
			Name:              "Test battery",
			InstanceId:        "test",
			RatedExportPower:  1000,
			RatedExportEnergy: 5000,
			ExportRamp:        100,
			RatedImportPower:  1000,
			RatedImportEnergy: 5000,
			ImportRamp:        100,
			IdleLosses:        10,
			Seed:              der.Seed{Mean: 0.5, StdDev: 0},
		},
		Control: config.ControlConfig{
			SleepMillis: 100,
		},
		Telemetry: config.TelemetryConfig{
			PublishPollMillis:  200,
			FullPublishSeconds: 3600,
			DeviationSeconds:   300,
			DeviationPercent:   10,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "der2mqtt",
			ServerTopic:      "grid_server",
			HADiscoveryTopic: "homeassistant",
		},
		WaterHeater: config.WaterHeaterConfig{
			HeartbeatMinutes:    1,
			QueryIntervalMillis: 200,
			TimeoutMillis:       500,
		},
		Port: 8080,
	}
}
