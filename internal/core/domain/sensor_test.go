package domain

import (
	"testing"

	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalSensorsFollowSignalMap(t *testing.T) {

	require := require.New(t)
	assert := assert.New(t)

	groups, err := kwb.LoadSignalMaps(kwb.DefaultSignalSource)
	require.NoError(err)

	heater := HeaterDevice("kwb-1", "Easyfire", BridgeDevice("kwb"))
	sensors := SignalSensors(heater, groups, "kwb/heater/state")

	count := 0
	for _, g := range groups {
		count += len(g.Signals)
	}
	require.Len(sensors, count)

	byId := map[string]GenericSensor{}
	for _, s := range sensors {
		assert.NotContains(byId, s.Id, "duplicate sensor id")
		byId[s.Id] = s
		assert.Equal("kwb/heater/state", s.AvailabilityTopic)
		assert.Equal(ScrapeValue{Key: s.Id}, s.Value)
	}

	assert.Equal(SENSOR_TYPE_SENSOR, byId["boiler_temperature"].SensorType)
	assert.Equal("°C", byId["boiler_temperature"].UnitOfMeasurement)
	assert.Equal(SENSOR_TYPE_BINARY, byId["pellet_auger"].SensorType)
	assert.Empty(byId["pellet_auger"].UnitOfMeasurement)
}

func TestDerivedSensors(t *testing.T) {

	assert := assert.New(t)

	heater := HeaterDevice("kwb-1", "Easyfire", BridgeDevice("kwb"))
	sensors := DerivedSensors(heater, HeaterParams{NominalPowerKW: 20, PelletEnergyKWhPerKg: 4.8}, 10, "kwb/heater/state")

	ids := []string{}
	for _, s := range sensors {
		ids = append(ids, s.Id)
	}
	assert.Contains(ids, SENSOR_ID_PELLET_CONSUMPTION)
	assert.Contains(ids, SENSOR_ID_BOILER_ENERGY_OUTPUT)
	assert.Equal(ConstantValue{Value: kwb.Number(20)}, sensors[len(sensors)-3].Value)

	// no pellet sensor without a pellet energy density
	sensors = DerivedSensors(heater, HeaterParams{NominalPowerKW: 20}, 10, "")
	for _, s := range sensors {
		assert.NotEqual(SENSOR_ID_PELLET_CONSUMPTION, s.Id)
	}
}

func TestDevicesAreStable(t *testing.T) {
	bridge := BridgeDevice("kwb")
	a := HeaterDevice("kwb-1", "Easyfire", bridge)
	b := HeaterDevice("kwb-1", "Easyfire", bridge)
	c := HeaterDevice("kwb-2", "Easyfire", bridge)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Id, c.Id)
	assert.Equal(t, bridge.Id, a.ViaDevice)
}
