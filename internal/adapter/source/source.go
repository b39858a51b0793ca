package source

import (
	"fmt"

	"github.com/berfenger/kwb2mqtt/internal/config"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"go.uber.org/zap"
)

// NewMessageSource picks the transport named by heater.protocol.
func NewMessageSource(cfg config.HeaterConfig, groups []kwb.SignalGroup, logger *zap.Logger, instrument ...kwb.Instrument) (kwb.MessageSource, error) {
	switch cfg.Protocol {
	case config.PROTOCOL_TCP:
		reader := kwb.NewTCPByteReader(cfg.Host, cfg.Port, cfg.ReadTimeout())
		return kwb.NewStreamSource(reader, logger, instrument...), nil
	case config.PROTOCOL_SERIAL:
		reader := kwb.NewSerialByteReader(cfg.SerialDevice, cfg.BaudRate)
		return kwb.NewStreamSource(reader, logger, instrument...), nil
	case config.PROTOCOL_MODBUS:
		return kwb.NewModbusMessageSource(cfg.Host, cfg.Port, cfg.ModbusUnitId, cfg.ReadTimeout(), groups, logger, instrument...)
	}
	return nil, fmt.Errorf("unsupported protocol %q", cfg.Protocol)
}

// NewAppliance loads the signal map and builds an appliance for the configured heater.
func NewAppliance(cfg config.HeaterConfig, logger *zap.Logger, instrument ...kwb.Instrument) (*kwb.Appliance, error) {
	groups, err := kwb.LoadSignalMaps(cfg.SignalSource)
	if err != nil {
		return nil, err
	}
	src, err := NewMessageSource(cfg, groups, logger, instrument...)
	if err != nil {
		return nil, err
	}
	return kwb.NewAppliance(src, groups, kwb.ApplianceConfig{
		MessageIDs:  cfg.MessageIds,
		ReadTimeout: cfg.ReadTimeout(),
	}, logger.With(zap.String("heater", cfg.UniqueId)), instrument...), nil
}
