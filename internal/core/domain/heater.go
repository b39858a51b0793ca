package domain

import (
	"errors"
	"time"
)

var ErrUpdateFailed = errors.New("heater update failed")

// Seed is the persisted accumulator state used to resume after a restart.
type Seed struct {
	Timestamp         time.Time
	BoilerRunTime     float64 // seconds
	BoilerEnergy      float64 // kWh
	PelletConsumption float64 // kg
}

func FreshSeed(now time.Time) Seed {
	return Seed{Timestamp: now}
}

type HeaterParams struct {
	NominalPowerKW       float64
	EfficiencyPercent    float64 // stored, not applied to the energy formula
	PelletEnergyKWhPerKg float64
}

type HeaterTotals struct {
	BoilerRunTime      float64 // seconds
	BoilerEnergy       float64 // kWh
	PelletConsumption  float64 // kg
	BoilerPower        float64 // kW
	BoilerNominalPower float64 // kW
	BoilerOutput       float64 // %
	BoilerOn           bool
	LastUpdate         time.Time
}
