package actor

import (
	"github.com/berfenger/kwb2mqtt/internal/config"
	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/mqtt"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"
)

// Catalogue is the full set of entities exposed by one bridge.
type Catalogue struct {
	Bridge []domain.GenericSensor
	Heater []domain.GenericSensor
}

func NewCatalogue(cfg *config.Config, groups []kwb.SignalGroup) Catalogue {
	bridgeDevice := domain.BridgeDevice(cfg.MQTT.BaseTopic)
	heaterDevice := domain.HeaterDevice(cfg.Heater.UniqueId, cfg.Heater.Model, bridgeDevice)
	availability := mqtt.HeaterStateTopic(cfg.MQTT.BaseTopic)

	var heater []domain.GenericSensor
	heater = append(heater, domain.DerivedSensors(heaterDevice, cfg.Heater.Params(), cfg.Heater.SignalSource, availability)...)
	heater = append(heater, domain.SignalSensors(heaterDevice, groups, availability)...)
	// full device description only once
	for i := range heater {
		if i > 0 {
			heater[i].Device = domain.IdDevice(heaterDevice)
		}
	}

	return Catalogue{
		Bridge: domain.BridgeSensors(bridgeDevice),
		Heater: heater,
	}
}

func (c Catalogue) All() []domain.GenericSensor {
	all := make([]domain.GenericSensor, 0, len(c.Bridge)+len(c.Heater))
	all = append(all, c.Bridge...)
	return append(all, c.Heater...)
}
