package events

import (
	"testing"

	. "github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"github.com/stretchr/testify/assert"
)

func TestResolveValueStrategies(t *testing.T) {

	assert := assert.New(t)

	view := SnapshotView{
		Scrape:    kwb.Snapshot{"boiler_temperature": kwb.Number(70)},
		Totals:    kwb.Snapshot{SENSOR_ID_BOILER_ENERGY_OUTPUT: kwb.Number(12)},
		Available: true,
		Recovered: true,
	}

	v, ok := ResolveValue(ScrapeValue{Key: "boiler_temperature"}, view)
	assert.True(ok)
	assert.Equal(kwb.Number(70), v)

	_, ok = ResolveValue(ScrapeValue{Key: "missing"}, view)
	assert.False(ok)

	v, ok = ResolveValue(AccumulatedValue{Key: SENSOR_ID_BOILER_ENERGY_OUTPUT}, view)
	assert.True(ok)
	assert.Equal(kwb.Number(12), v)

	v, ok = ResolveValue(ConstantValue{Value: kwb.Bool(true)}, SnapshotView{})
	assert.True(ok)
	assert.Equal(kwb.Bool(true), v)

	// unavailable heater hides scraped values but not totals
	view.Available = false
	_, ok = ResolveValue(ScrapeValue{Key: "boiler_temperature"}, view)
	assert.False(ok)
	_, ok = ResolveValue(AccumulatedValue{Key: SENSOR_ID_BOILER_ENERGY_OUTPUT}, view)
	assert.True(ok)

	// unrecovered engine hides totals
	view.Recovered = false
	_, ok = ResolveValue(AccumulatedValue{Key: SENSOR_ID_BOILER_ENERGY_OUTPUT}, view)
	assert.False(ok)
}

func TestSensorUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	sensors := []GenericSensor{
		{Id: "boiler_temperature", SensorType: SENSOR_TYPE_SENSOR, Decimals: 1, Value: ScrapeValue{Key: "boiler_temperature"}},
		{Id: "pellet_auger", SensorType: SENSOR_TYPE_BINARY, Value: ScrapeValue{Key: "pellet_auger"}},
		{Id: SENSOR_ID_BOILER_ON, SensorType: SENSOR_TYPE_BINARY, Value: AccumulatedValue{Key: SENSOR_ID_BOILER_ON}},
		{Id: "flag_as_number", SensorType: SENSOR_TYPE_BINARY, Value: ConstantValue{Value: kwb.Number(1)}},
		{Id: "not_decoded", SensorType: SENSOR_TYPE_SENSOR, Value: ScrapeValue{Key: "not_decoded"}},
		{Id: SENSOR_ID_BRIDGE_STATE, SensorType: SENSOR_TYPE_BINARY},
	}
	view := SnapshotView{
		Scrape: kwb.Snapshot{
			"boiler_temperature": kwb.Number(72.5),
			"pellet_auger":       kwb.Bool(true),
		},
		Totals:    kwb.Snapshot{SENSOR_ID_BOILER_ON: kwb.Bool(false)},
		Available: true,
		Recovered: true,
	}

	events := SensorUpdateEvents(sensors, view)
	assert.Equal([]any{
		FloatSensorUpdateEvent{SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: "boiler_temperature"}, Value: 72.5, Decimals: 1},
		BinarySensorUpdateEvent{SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: "pellet_auger"}, Value: true},
		BinarySensorUpdateEvent{SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_BOILER_ON}, Value: false},
		BinarySensorUpdateEvent{SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: "flag_as_number"}, Value: true},
	}, events)
}

func TestStateEvents(t *testing.T) {
	assert.Equal(t, HeaterAvailabilityUpdateEvent{SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_HEATER_STATE}, Value: true},
		HeaterAvailabilityEvent(true))
	assert.Equal(t, BridgeStateUpdateEvent{SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_BRIDGE_STATE}, Value: false},
		BridgeStateEvent(false))
}
