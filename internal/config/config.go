package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/berfenger/der2mqtt/internal/core/der"

	"go.uber.org/zap/zapcore"
)

const (
	DEVICE_TYPE_SIMULATED    = "simulated"
	DEVICE_TYPE_WATER_HEATER = "water_heater"

	MIN_CONTROL_SLEEP_MILLIS = 10
)

type Config struct {
	LogLevel    zapcore.Level
	DER         DERConfig         `mapstructure:"der"`
	Control     ControlConfig     `mapstructure:"control"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	WaterHeater WaterHeaterConfig `mapstructure:"water_heater"`
	Console     ConsoleConfig     `mapstructure:"console"`
	Port        uint              `mapstructure:"port"`
	HttpLog     bool              `mapstructure:"http_log"`
}

type DERConfig struct {
	Type       string
	Name       string
	InstanceId string `mapstructure:"instance_id"`

	RatedExportPower  float64 `mapstructure:"rated_export_power"`
	RatedExportEnergy float64 `mapstructure:"rated_export_energy"`
	ExportRamp        float64 `mapstructure:"export_ramp"`
	RatedImportPower  float64 `mapstructure:"rated_import_power"`
	RatedImportEnergy float64 `mapstructure:"rated_import_energy"`
	ImportRamp        float64 `mapstructure:"import_ramp"`
	IdleLosses        float64 `mapstructure:"idle_losses"`

	Seed der.Seed `mapstructure:"seed"`
}

type ControlConfig struct {
	SleepMillis uint32 `mapstructure:"sleep_millis"`
}

type TelemetryConfig struct {
	Path               string
	IntervalSeconds    uint32 `mapstructure:"interval_seconds"`
	PublishPollMillis  uint32 `mapstructure:"publish_poll_millis"`
	FullPublishSeconds uint32 `mapstructure:"full_publish_seconds"`
	DeviationSeconds   uint32 `mapstructure:"deviation_seconds"`
	DeviationPercent   uint32 `mapstructure:"deviation_percent"`
}

type ScheduleConfig struct {
	Enable bool
	Path   string
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	ServerTopic       string `mapstructure:"server_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type WaterHeaterConfig struct {
	Host                 string
	Port                 uint
	UnitId               uint   `mapstructure:"unit_id"`
	HeartbeatMinutes     uint32 `mapstructure:"heartbeat_minutes"`
	QueryIntervalMillis  uint32 `mapstructure:"query_interval_millis"`
	TimeoutMillis        uint32 `mapstructure:"timeout_millis"`
	UseCurrentTransducer bool   `mapstructure:"use_current_transducer"`
	DryRun               bool   `mapstructure:"dry_run"`
}

type ConsoleConfig struct {
	Enable bool
}

func (c DERConfig) Limits() der.RatedLimits {
	return der.RatedLimits{
		RatedExportPower:  c.RatedExportPower,
		RatedExportEnergy: c.RatedExportEnergy,
		ExportRamp:        c.ExportRamp,
		RatedImportPower:  c.RatedImportPower,
		RatedImportEnergy: c.RatedImportEnergy,
		ImportRamp:        c.ImportRamp,
		IdleLosses:        c.IdleLosses,
	}
}

// Validate checks bounds and normalises topics in place.
func (c *Config) Validate() error {
	var errs []error

	switch c.DER.Type {
	case DEVICE_TYPE_SIMULATED:
		if err := c.DER.Seed.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("config param der.seed: %w", err))
		}
	case DEVICE_TYPE_WATER_HEATER:
		if c.WaterHeater.Host == "" && !c.WaterHeater.DryRun {
			errs = append(errs, errors.New("config param water_heater.host is required for a water_heater device"))
		}
	default:
		errs = append(errs, fmt.Errorf("config param der.type must be %q or %q, got %q",
			DEVICE_TYPE_SIMULATED, DEVICE_TYPE_WATER_HEATER, c.DER.Type))
	}

	limits := map[string]float64{
		"rated_export_power":  c.DER.RatedExportPower,
		"rated_export_energy": c.DER.RatedExportEnergy,
		"export_ramp":         c.DER.ExportRamp,
		"rated_import_power":  c.DER.RatedImportPower,
		"rated_import_energy": c.DER.RatedImportEnergy,
		"import_ramp":         c.DER.ImportRamp,
		"idle_losses":         c.DER.IdleLosses,
	}
	for name, v := range limits {
		if v < 0 {
			errs = append(errs, fmt.Errorf("config param der.%s should be >= 0", name))
		}
	}

	if c.Control.SleepMillis < MIN_CONTROL_SLEEP_MILLIS {
		errs = append(errs, fmt.Errorf("config param control.sleep_millis should be >= %dms", MIN_CONTROL_SLEEP_MILLIS))
	}
	if c.Telemetry.PublishPollMillis < 100 {
		errs = append(errs, errors.New("config param telemetry.publish_poll_millis should be >= 100"))
	}
	if c.Schedule.Enable && c.Schedule.Path == "" {
		errs = append(errs, errors.New("config param schedule.path is required when the schedule is enabled"))
	}

	baseTopic, err := CheckMQTTTopic(c.MQTT.BaseTopic)
	if err != nil {
		errs = append(errs, errors.New("invalid base topic. can only contain letters, numbers and underscores"))
	}
	c.MQTT.BaseTopic = baseTopic

	hadTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic)
	if err != nil {
		errs = append(errs, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores"))
	}
	c.MQTT.HADiscoveryTopic = hadTopic

	if c.MQTT.ServerTopic != "" {
		serverTopic, err := CheckMQTTTopic(c.MQTT.ServerTopic)
		if err != nil {
			errs = append(errs, errors.New("invalid server topic. can only contain letters, numbers and underscores"))
		}
		c.MQTT.ServerTopic = serverTopic
	}

	return errors.Join(errs...)
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
