package events

import (
	. "github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"
)

// SnapshotView is what the value strategies resolve against.
type SnapshotView struct {
	Scrape    kwb.Snapshot
	Totals    kwb.Snapshot
	Available bool
	Recovered bool
}

// ResolveValue returns the current value of a sensor, or false when the
// sensor has nothing to report.
func ResolveValue(strategy ValueStrategy, view SnapshotView) (kwb.Value, bool) {
	switch s := strategy.(type) {
	case ScrapeValue:
		if !view.Available {
			return kwb.Value{}, false
		}
		v, ok := view.Scrape[s.Key]
		return v, ok
	case AccumulatedValue:
		if !view.Recovered {
			return kwb.Value{}, false
		}
		v, ok := view.Totals[s.Key]
		return v, ok
	case ConstantValue:
		return s.Value, true
	}
	return kwb.Value{}, false
}

// SensorUpdateEvents maps every sensor with a resolvable value to its update event.
func SensorUpdateEvents(sensors []GenericSensor, view SnapshotView) []any {
	var events []any
	for _, sensor := range sensors {
		if sensor.Value == nil {
			continue
		}
		v, ok := ResolveValue(sensor.Value, view)
		if !ok {
			continue
		}
		events = append(events, valueToUpdateEvent(sensor, v))
	}
	return events
}

func valueToUpdateEvent(sensor GenericSensor, v kwb.Value) any {
	if sensor.SensorType == SENSOR_TYPE_BINARY {
		value := v.Bool
		if !v.IsBool() {
			value = v.Number != 0
		}
		return BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: sensor.Id,
			},
			Value: value,
		}
	}
	return FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: sensor.Id,
		},
		Value:    v.Float(),
		Decimals: sensor.Decimals,
	}
}

func HeaterAvailabilityEvent(available bool) any {
	return HeaterAvailabilityUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_HEATER_STATE,
		},
		Value: available,
	}
}

func BridgeStateEvent(online bool) any {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
