package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"go.uber.org/zap/zapcore"
)

const (
	PROTOCOL_TCP    = "tcp"
	PROTOCOL_SERIAL = "serial"
	PROTOCOL_MODBUS = "modbus"
)

type Config struct {
	LogLevel      zapcore.Level
	Heater        HeaterConfig  `mapstructure:"heater"`
	MQTT          MQTTConfig    `mapstructure:"mqtt"`
	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	State         StateConfig   `mapstructure:"state"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

type HeaterConfig struct {
	UniqueId      string  `mapstructure:"unique_id"`
	Model         string  `mapstructure:"model"`
	Protocol      string  `mapstructure:"protocol"`
	Host          string  `mapstructure:"host"`
	Port          uint    `mapstructure:"port"`
	SerialDevice  string  `mapstructure:"serial_device"`
	BaudRate      int     `mapstructure:"baud_rate"`
	ModbusUnitId  uint8   `mapstructure:"modbus_unit_id"`
	TimeoutMillis uint32  `mapstructure:"timeout_millis"`
	SignalSource  int     `mapstructure:"signal_source"`
	MessageIds    []uint8 `mapstructure:"message_ids"`
	// boiler nominal power (kW)
	BoilerNominalPower float64 `mapstructure:"boiler_nominal_power_kw"`
	// boiler efficiency (%), informational
	BoilerEfficiency float64 `mapstructure:"boiler_efficiency"`
	// pellet nominal energy (kWh/kg)
	PelletNominalEnergy float64 `mapstructure:"pellet_nominal_energy_kwh_kg"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	FailureThreshold   uint   `mapstructure:"failure_threshold"`
}

type StateConfig struct {
	Database                  string `mapstructure:"database"`
	CheckpointIntervalSeconds uint32 `mapstructure:"checkpoint_interval_seconds"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c HeaterConfig) ReadTimeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

func (c HeaterConfig) Params() domain.HeaterParams {
	return domain.HeaterParams{
		NominalPowerKW:       c.BoilerNominalPower,
		EfficiencyPercent:    c.BoilerEfficiency,
		PelletEnergyKWhPerKg: c.PelletNominalEnergy,
	}
}

func (c MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

func (c StateConfig) CheckpointInterval() time.Duration {
	return time.Duration(c.CheckpointIntervalSeconds) * time.Second
}

// Validate checks bounds and normalizes topics in place.
func (cfg *Config) Validate() error {

	// check and fix base topic
	baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	if err := cfg.Heater.Validate(); err != nil {
		return err
	}

	if cfg.MonitorConfig.PollIntervalMillis < 1000 {
		return errors.New("config param monitor.poll_interval_millis should be >= 1000")
	}
	if cfg.MonitorConfig.FailureThreshold < 1 {
		return errors.New("config param monitor.failure_threshold should be >= 1")
	}
	// a scrape may spend the timeout dialing and again reading
	if 2*cfg.Heater.TimeoutMillis+2000 > cfg.MonitorConfig.PollIntervalMillis {
		return errors.New("config param 2 * heater.timeout_millis + 2000 must not exceed monitor.poll_interval_millis")
	}
	if cfg.State.Database != "" && cfg.State.CheckpointIntervalSeconds < 5 {
		return errors.New("config param state.checkpoint_interval_seconds should be >= 5")
	}
	return nil
}

func (c *HeaterConfig) Validate() error {
	uniqueId, err := CheckMQTTTopic(c.UniqueId)
	if err != nil {
		return errors.New("invalid heater.unique_id. can only contain letters, numbers and underscores")
	}
	c.UniqueId = uniqueId

	switch c.Protocol {
	case PROTOCOL_TCP, PROTOCOL_MODBUS:
		if c.Host == "" {
			return fmt.Errorf("config param heater.host is required for protocol %s", c.Protocol)
		}
		if c.Port == 0 || c.Port > 65535 {
			return errors.New("config param heater.port should be within 1..65535")
		}
	case PROTOCOL_SERIAL:
		if c.SerialDevice == "" {
			return errors.New("config param heater.serial_device is required for protocol serial")
		}
		if c.BaudRate <= 0 {
			return errors.New("config param heater.baud_rate should be > 0")
		}
	default:
		return fmt.Errorf("unsupported heater.protocol %q, expected one of tcp, serial, modbus", c.Protocol)
	}

	if c.TimeoutMillis < 100 || c.TimeoutMillis > 60000 {
		return errors.New("config param heater.timeout_millis should be within 100..60000")
	}
	if !slices.Contains(kwb.AvailableSources(), c.SignalSource) {
		return fmt.Errorf("%w: heater.signal_source %d", kwb.ErrUnknownSource, c.SignalSource)
	}
	if len(c.MessageIds) == 0 {
		return errors.New("config param heater.message_ids should not be empty")
	}
	if c.BoilerNominalPower <= 0 {
		return errors.New("config param heater.boiler_nominal_power_kw should be > 0")
	}
	if c.BoilerEfficiency < 0 || c.BoilerEfficiency > 100 {
		return errors.New("config param heater.boiler_efficiency should be within 0..100")
	}
	if c.PelletNominalEnergy <= 0 {
		return errors.New("config param heater.pellet_nominal_energy_kwh_kg should be > 0")
	}
	return nil
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
