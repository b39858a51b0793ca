package domain

import "github.com/berfenger/kwb2mqtt/pkg/kwb"

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing
	DeviceClass       string // temperature, power, energy, duration
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
	Decimals          uint
	// empty for the bridge sensors, which do not depend on heater availability
	AvailabilityTopic string
	Value             ValueStrategy
}

// ValueStrategy tells where a sensor takes its state from. The set is closed:
// ScrapeValue, AccumulatedValue and ConstantValue.
type ValueStrategy interface {
	valueStrategy()
}

// ScrapeValue reads a decoded signal from the latest scrape snapshot.
type ScrapeValue struct {
	Key string
}

// AccumulatedValue reads a derived value from the accumulator engine.
type AccumulatedValue struct {
	Key string
}

type ConstantValue struct {
	Value kwb.Value
}

func (ScrapeValue) valueStrategy()      {}
func (AccumulatedValue) valueStrategy() {}
func (ConstantValue) valueStrategy()    {}
