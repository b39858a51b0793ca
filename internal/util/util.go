package util

import (
	"github.com/berfenger/kwb2mqtt/internal/config"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Heater: config.HeaterConfig{
			UniqueId:            "kwb_test",
			Model:               "Easyfire",
			Protocol:            config.PROTOCOL_TCP,
			Host:                "-.-.-.-",
			Port:                kwb.DefaultTCPPort,
			TimeoutMillis:       500,
			SignalSource:        kwb.DefaultSignalSource,
			MessageIds:          kwb.DefaultMessageIDs,
			BoilerNominalPower:  20,
			BoilerEfficiency:    90,
			PelletNominalEnergy: 4.8,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "kwb",
			HADiscoveryTopic: "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 1000,
			FailureThreshold:   3,
		},
		State: config.StateConfig{
			CheckpointIntervalSeconds: 60,
		},
		Port: 8080,
	}
}
