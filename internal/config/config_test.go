package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.Set("heater.host", "192.168.1.50")
	v.Set("heater.boiler_nominal_power_kw", 20)
	v.Set("heater.pellet_nominal_energy_kwh_kg", 4.8)
	return v
}

func TestDefaults(t *testing.T) {

	require := require.New(t)
	assert := assert.New(t)

	cfg, err := FromViper(testViper())
	require.NoError(err)

	assert.Equal(PROTOCOL_TCP, cfg.Heater.Protocol)
	assert.Equal(uint(kwb.DefaultTCPPort), cfg.Heater.Port)
	assert.Equal(2*time.Second, cfg.Heater.ReadTimeout())
	assert.Equal(kwb.DefaultSignalSource, cfg.Heater.SignalSource)
	assert.Equal([]uint8{32, 33, 64, 65}, cfg.Heater.MessageIds)
	assert.Equal(90.0, cfg.Heater.BoilerEfficiency)
	assert.Equal(10*time.Second, cfg.MonitorConfig.PollInterval())
	assert.Equal(uint(3), cfg.MonitorConfig.FailureThreshold)
	assert.Equal(time.Minute, cfg.State.CheckpointInterval())
	assert.Equal("kwb", cfg.MQTT.BaseTopic)
	assert.Equal(zap.WarnLevel, cfg.LogLevel)

	params := cfg.Heater.Params()
	assert.Equal(20.0, params.NominalPowerKW)
	assert.Equal(4.8, params.PelletEnergyKWhPerKg)
}

func TestModbusDefaultPort(t *testing.T) {
	v := testViper()
	v.Set("heater.protocol", PROTOCOL_MODBUS)
	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, uint(kwb.DefaultModbusPort), cfg.Heater.Port)
}

func TestValidation(t *testing.T) {

	cases := map[string]func(v *viper.Viper){
		"unknown protocol":      func(v *viper.Viper) { v.Set("heater.protocol", "udp") },
		"missing host":          func(v *viper.Viper) { v.Set("heater.host", "") },
		"serial without device": func(v *viper.Viper) { v.Set("heater.protocol", PROTOCOL_SERIAL) },
		"unknown signal source": func(v *viper.Viper) { v.Set("heater.signal_source", 99) },
		"no nominal power":      func(v *viper.Viper) { v.Set("heater.boiler_nominal_power_kw", 0) },
		"bad efficiency":        func(v *viper.Viper) { v.Set("heater.boiler_efficiency", 120) },
		"short poll interval":   func(v *viper.Viper) { v.Set("monitor.poll_interval_millis", 500) },
		"timeout above poll":    func(v *viper.Viper) { v.Set("heater.timeout_millis", 4500) },
		"no pellet energy":      func(v *viper.Viper) { v.Set("heater.pellet_nominal_energy_kwh_kg", 0) },
		"zero threshold":        func(v *viper.Viper) { v.Set("monitor.failure_threshold", 0) },
		"invalid base topic":    func(v *viper.Viper) { v.Set("mqtt.base_topic", "kwb/boiler") },
		"invalid unique id":     func(v *viper.Viper) { v.Set("heater.unique_id", "my boiler") },
		"tiny checkpoint":       func(v *viper.Viper) { v.Set("state.checkpoint_interval_seconds", 1) },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			v := testViper()
			mutate(v)
			_, err := FromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestUnknownSignalSourceIsTyped(t *testing.T) {
	v := testViper()
	v.Set("heater.signal_source", 11)
	_, err := FromViper(v)
	assert.ErrorIs(t, err, kwb.ErrUnknownSource)
}

func TestTopicsAreLowerCased(t *testing.T) {
	v := testViper()
	v.Set("mqtt.base_topic", "KWB_Boiler")
	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "kwb_boiler", cfg.MQTT.BaseTopic)
}

func TestLoadFromFileAndEnv(t *testing.T) {

	require := require.New(t)

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(os.WriteFile(file, []byte(`
heater:
  host: 10.0.0.2
  boiler_nominal_power_kw: 15
  pellet_nominal_energy_kwh_kg: 4.5
  message_ids: [32, 33]
monitor:
  failure_threshold: 5
`), 0o600))

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("KWB_LOG_LEVEL", "debug")
	t.Setenv("PORT", "9090")
	t.Setenv("KWB_HEATER_MODEL", "Combifire")

	cfg, err := Load()
	require.NoError(err)
	require.Equal("10.0.0.2", cfg.Heater.Host)
	require.Equal(15.0, cfg.Heater.BoilerNominalPower)
	require.Equal(4.5, cfg.Heater.PelletNominalEnergy)
	require.Equal([]uint8{32, 33}, cfg.Heater.MessageIds)
	require.Equal(uint(5), cfg.MonitorConfig.FailureThreshold)
	require.Equal(zap.DebugLevel, cfg.LogLevel)
	require.Equal(uint(9090), cfg.Port)
	require.Equal("Combifire", cfg.Heater.Model)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, ParseLogLevel("trace"))
	assert.Equal(t, zap.ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, zap.InfoLevel, ParseLogLevel("bogus"))
}
