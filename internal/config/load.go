package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ENV_PREFIX = "kwb"

// Load reads defaults, KWB_* environment variables and the optional yaml file
// named by CONFIG_FILE, then validates the result.
func Load() (*Config, error) {

	// alias PORT => KWB_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("KWB_PORT", port)
	}

	v, err := NewViper(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("Error reading config file", "error", err)
	}

	return FromViper(v)
}

// NewViper returns a viper instance with defaults, KWB_* environment lookup
// (heater.host => KWB_HEATER_HOST) and cfgFile, when it exists, loaded.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return v, nil
	}
	if _, err := os.Stat(cfgFile); err != nil {
		return v, nil
	}
	slog.Info("Using config", "file", cfgFile)
	v.SetConfigFile(cfgFile)
	return v, v.ReadInConfig()
}

func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = ParseLogLevel(v.GetString("log_level"))

	// the port default depends on the transport
	if cfg.Heater.Port == 0 && cfg.Heater.Protocol == PROTOCOL_MODBUS {
		cfg.Heater.Port = kwb.DefaultModbusPort
	} else if cfg.Heater.Port == 0 {
		cfg.Heater.Port = kwb.DefaultTCPPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ParseLogLevel(level string) zapcore.Level {
	switch level {
	case "trace", "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "error":
		return zap.ErrorLevel
	case "warn":
		return zap.WarnLevel
	case "fatal":
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.ha_discovery_enable", false)
	v.SetDefault("mqtt.base_topic", "kwb")
	v.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	v.SetDefault("heater.unique_id", "kwb")
	v.SetDefault("heater.model", "Easyfire")
	v.SetDefault("heater.protocol", PROTOCOL_TCP)
	v.SetDefault("heater.baud_rate", 19200)
	v.SetDefault("heater.modbus_unit_id", kwb.DefaultModbusUnitId)
	v.SetDefault("heater.timeout_millis", kwb.DefaultReadTimeout.Milliseconds())
	v.SetDefault("heater.signal_source", kwb.DefaultSignalSource)
	v.SetDefault("heater.message_ids", kwb.DefaultMessageIDs)
	v.SetDefault("heater.boiler_efficiency", 90)
	v.SetDefault("monitor.poll_interval_millis", 10000)
	v.SetDefault("monitor.failure_threshold", 3)
	v.SetDefault("state.database", "kwb2mqtt.db")
	v.SetDefault("state.checkpoint_interval_seconds", 60)
	v.SetDefault("port", 8080)
}
