package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_HEATER_STATE         = "heater"
	SENSOR_ID_BOILER_OUTPUT        = "boiler_output"
	SENSOR_ID_BOILER_RUN_TIME      = "boiler_run_time"
	SENSOR_ID_BOILER_ENERGY_OUTPUT = "boiler_energy_output"
	SENSOR_ID_PELLET_CONSUMPTION   = "pellet_consumption"
	SENSOR_ID_BOILER_POWER         = "boiler_power"
	SENSOR_ID_BOILER_NOMINAL_POWER = "boiler_nominal_power"
	SENSOR_ID_LAST_TIMESTAMP       = "last_timestamp"
	SENSOR_ID_BOILER_ON            = "boiler_on"
	SENSOR_ID_SIGNAL_SOURCE        = "signal_source"
	STATE_CLASS_MEASUREMENT        = "measurement"
	STATE_CLASS_TOTAL_INCREASING   = "total_increasing"
	DEVICE_CLASS_DURATION          = "duration"
	DEVICE_CLASS_ENERGY            = "energy"
	DEVICE_CLASS_POWER             = "power"
	DEVICE_CLASS_RUNNING           = "running"
	DEVICE_CLASS_TIMESTAMP         = "timestamp"
	DEVICE_CLASS_WEIGHT            = "weight"
	DEVICE_CLASS_CONNECTIVITY      = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC        = "diagnostic"
	SENSOR_TYPE_SENSOR             = "sensor"
	SENSOR_TYPE_BINARY             = "binary_sensor"
)

// Snapshot exposes the derived totals under their sensor ids.
func (t HeaterTotals) Snapshot() kwb.Snapshot {
	return kwb.Snapshot{
		SENSOR_ID_BOILER_RUN_TIME:      kwb.Number(t.BoilerRunTime),
		SENSOR_ID_BOILER_ENERGY_OUTPUT: kwb.Number(t.BoilerEnergy),
		SENSOR_ID_PELLET_CONSUMPTION:   kwb.Number(t.PelletConsumption),
		SENSOR_ID_BOILER_POWER:         kwb.Number(t.BoilerPower),
		SENSOR_ID_BOILER_NOMINAL_POWER: kwb.Number(t.BoilerNominalPower),
		SENSOR_ID_LAST_TIMESTAMP:       kwb.Number(float64(t.LastUpdate.UnixMilli())),
		SENSOR_ID_BOILER_ON:            kwb.Bool(t.BoilerOn),
	}
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("kwb_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "kwb2mqtt",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("KWB bridge %s", md5HashShort(baseTopic)),
	}
}

func HeaterDevice(heaterId, model string, bridge Device) Device {
	return Device{
		Id:           fmt.Sprintf("kwb_heater_%s", md5HashShort(heaterId)),
		Manufacturer: "KWB",
		Model:        model,
		Name:         fmt.Sprintf("KWB %s", model),
		ViaDevice:    bridge.Id,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

// SignalSensors builds one sensor per decoded signal of the given map.
func SignalSensors(heaterDevice Device, groups []kwb.SignalGroup, availabilityTopic string) []GenericSensor {

	var sensors []GenericSensor

	for _, group := range groups {
		for _, def := range group.Signals {
			sensor := GenericSensor{
				Device:            heaterDevice,
				Id:                def.Key,
				SensorType:        SENSOR_TYPE_SENSOR,
				Name:              def.Name,
				UnitOfMeasurement: def.Unit,
				StateClass:        def.StateClass,
				DeviceClass:       def.DeviceClass,
				Icon:              def.Icon,
				Decimals:          def.Decimals,
				AvailabilityTopic: availabilityTopic,
				UniqueId:          uniqueId(heaterDevice.Id, def.Key),
				Value:             ScrapeValue{Key: def.Key},
			}
			if def.IsBool() {
				sensor.SensorType = SENSOR_TYPE_BINARY
				sensor.UnitOfMeasurement = ""
				sensor.StateClass = ""
			}
			sensors = append(sensors, sensor)
		}
	}

	return sensors
}

func DerivedSensors(heaterDevice Device, params HeaterParams, signalSource int, availabilityTopic string) []GenericSensor {

	var sensors []GenericSensor

	// Boiler run time
	sensors = append(sensors, GenericSensor{
		Device:            heaterDevice,
		Id:                SENSOR_ID_BOILER_RUN_TIME,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Boiler run time",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_DURATION,
		UnitOfMeasurement: "s",
		Icon:              "mdi:timer-outline",
		AvailabilityTopic: availabilityTopic,
		UniqueId:          uniqueId(heaterDevice.Id, SENSOR_ID_BOILER_RUN_TIME),
		Value:             AccumulatedValue{Key: SENSOR_ID_BOILER_RUN_TIME},
	})

	// Boiler energy output
	sensors = append(sensors, GenericSensor{
		Device:            heaterDevice,
		Id:                SENSOR_ID_BOILER_ENERGY_OUTPUT,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Boiler energy output",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		Decimals:          3,
		AvailabilityTopic: availabilityTopic,
		UniqueId:          uniqueId(heaterDevice.Id, SENSOR_ID_BOILER_ENERGY_OUTPUT),
		Value:             AccumulatedValue{Key: SENSOR_ID_BOILER_ENERGY_OUTPUT},
	})

	if params.PelletEnergyKWhPerKg > 0 {
		// Pellet consumption
		sensors = append(sensors, GenericSensor{
			Device:            heaterDevice,
			Id:                SENSOR_ID_PELLET_CONSUMPTION,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              "Pellet consumption",
			StateClass:        STATE_CLASS_TOTAL_INCREASING,
			DeviceClass:       DEVICE_CLASS_WEIGHT,
			UnitOfMeasurement: "kg",
			Icon:              "mdi:grain",
			Decimals:          3,
			AvailabilityTopic: availabilityTopic,
			UniqueId:          uniqueId(heaterDevice.Id, SENSOR_ID_PELLET_CONSUMPTION),
			Value:             AccumulatedValue{Key: SENSOR_ID_PELLET_CONSUMPTION},
		})
	}

	// Boiler power
	sensors = append(sensors, GenericSensor{
		Device:            heaterDevice,
		Id:                SENSOR_ID_BOILER_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Boiler power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "kW",
		Decimals:          2,
		AvailabilityTopic: availabilityTopic,
		UniqueId:          uniqueId(heaterDevice.Id, SENSOR_ID_BOILER_POWER),
		Value:             AccumulatedValue{Key: SENSOR_ID_BOILER_POWER},
	})

	// Boiler on
	sensors = append(sensors, GenericSensor{
		Device:            heaterDevice,
		Id:                SENSOR_ID_BOILER_ON,
		SensorType:        SENSOR_TYPE_BINARY,
		Name:              "Boiler on",
		DeviceClass:       DEVICE_CLASS_RUNNING,
		AvailabilityTopic: availabilityTopic,
		UniqueId:          uniqueId(heaterDevice.Id, SENSOR_ID_BOILER_ON),
		Value:             AccumulatedValue{Key: SENSOR_ID_BOILER_ON},
	})

	// Nominal power
	sensors = append(sensors, GenericSensor{
		Device:            heaterDevice,
		Id:                SENSOR_ID_BOILER_NOMINAL_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Boiler nominal power",
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "kW",
		EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:          uniqueId(heaterDevice.Id, SENSOR_ID_BOILER_NOMINAL_POWER),
		Value:             ConstantValue{Value: kwb.Number(params.NominalPowerKW)},
	})

	// Last update
	sensors = append(sensors, GenericSensor{
		Device:            heaterDevice,
		Id:                SENSOR_ID_LAST_TIMESTAMP,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Last update",
		UnitOfMeasurement: "ms",
		EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault:  optionalBool(false),
		AvailabilityTopic: availabilityTopic,
		UniqueId:          uniqueId(heaterDevice.Id, SENSOR_ID_LAST_TIMESTAMP),
		Value:             AccumulatedValue{Key: SENSOR_ID_LAST_TIMESTAMP},
	})

	// Signal source
	sensors = append(sensors, GenericSensor{
		Device:           heaterDevice,
		Id:               SENSOR_ID_SIGNAL_SOURCE,
		SensorType:       SENSOR_TYPE_SENSOR,
		Name:             "Signal source",
		EntityCategory:   ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault: optionalBool(false),
		UniqueId:         uniqueId(heaterDevice.Id, SENSOR_ID_SIGNAL_SOURCE),
		Value:            ConstantValue{Value: kwb.Number(float64(signalSource))},
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
