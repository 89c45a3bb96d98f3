package config

import (
	"testing"

	"github.com/berfenger/der2mqtt/internal/core/der"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DER: DERConfig{
			Type:              DEVICE_TYPE_SIMULATED,
			RatedImportPower:  1000,
			RatedImportEnergy: 5000,
			Seed:              der.Seed{Mean: 0.5, StdDev: 0.2},
		},
		Control:   ControlConfig{SleepMillis: 1000},
		Telemetry: TelemetryConfig{PublishPollMillis: 1000},
		MQTT: MQTTConfig{
			BaseTopic:        "DER2MQTT",
			HADiscoveryTopic: "homeassistant",
			ServerTopic:      "Grid_Server",
		},
	}
}

func TestValidateNormalisesTopics(t *testing.T) {

	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "der2mqtt", cfg.MQTT.BaseTopic)
	assert.Equal(t, "grid_server", cfg.MQTT.ServerTopic)
}

func TestValidateRejects(t *testing.T) {

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"negative rating", func(c *Config) { c.DER.RatedExportPower = -1 }, "der.rated_export_power"},
		{"short sleep", func(c *Config) { c.Control.SleepMillis = 5 }, "control.sleep_millis"},
		{"bad topic", func(c *Config) { c.MQTT.BaseTopic = "der/2" }, "invalid base topic"},
		{"unknown device", func(c *Config) { c.DER.Type = "battery" }, "der.type"},
		{"degenerate seed", func(c *Config) { c.DER.Seed = der.Seed{Mean: 2} }, "der.seed"},
		{"schedule without path", func(c *Config) { c.Schedule.Enable = true }, "schedule.path"},
		{"water heater without host", func(c *Config) { c.DER.Type = DEVICE_TYPE_WATER_HEATER }, "water_heater.host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLimits(t *testing.T) {

	cfg := validConfig()
	l := cfg.DER.Limits()

	assert.Equal(t, 1000.0, l.RatedImportPower)
	assert.Equal(t, 5000.0, l.RatedImportEnergy)
}

func TestWaterHeaterDryRunNeedsNoHost(t *testing.T) {

	cfg := validConfig()
	cfg.DER.Type = DEVICE_TYPE_WATER_HEATER
	cfg.WaterHeater.DryRun = true

	assert.NoError(t, cfg.Validate())
}
