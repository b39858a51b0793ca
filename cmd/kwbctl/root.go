package main

import (
	"os"

	"github.com/berfenger/kwb2mqtt/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "kwbctl",
	Short: "KWB heater diagnostics",
	Long: `kwbctl talks to a KWB pellet heater with the same transports and signal maps
as the bridge, without MQTT.

Connection settings are read like the bridge does (KWB_* environment variables
and the yaml file named by --config or CONFIG_FILE). Flags override both.

  TCP:     --protocol tcp --host 192.168.1.20 [--port 8899]
  Serial:  --protocol serial --device /dev/ttyUSB0 [--baud 19200]
  Modbus:  --protocol modbus --host 192.168.1.20 [--port 502] [--unit-id 1]`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "yaml config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	flags.String("protocol", "", "transport: tcp, serial or modbus")
	flags.String("host", "", "heater host (tcp and modbus)")
	flags.Uint("port", 0, "heater port (tcp and modbus)")
	flags.StringP("device", "d", "", "serial device")
	flags.IntP("baud", "b", 0, "serial baud rate")
	flags.Uint8("unit-id", 0, "modbus unit id")
	flags.IntP("source", "s", 0, "signal map source")
	flags.Uint32("timeout", 0, "read timeout in milliseconds")
}

var flagKeys = map[string]string{
	"protocol": "heater.protocol",
	"host":     "heater.host",
	"port":     "heater.port",
	"device":   "heater.serial_device",
	"baud":     "heater.baud_rate",
	"unit-id":  "heater.modbus_unit_id",
	"source":   "heater.signal_source",
	"timeout":  "heater.timeout_millis",
}

// loadViper resolves the bridge settings with the command line flags on top.
func loadViper(cmd *cobra.Command) (*viper.Viper, error) {
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, err
	}

	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := loadViper(cmd)
	if err != nil {
		return nil, err
	}
	// no accumulators run here
	for _, key := range []string{"heater.boiler_nominal_power_kw", "heater.pellet_nominal_energy_kwh_kg"} {
		if !v.IsSet(key) {
			v.Set(key, 1)
		}
	}
	return config.FromViper(v)
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zap.Must(cfg.Build())
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
