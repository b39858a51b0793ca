package service

import (
	"time"

	"github.com/berfenger/kwb2mqtt/internal/core/domain"
	"github.com/berfenger/kwb2mqtt/internal/core/port"
	"github.com/berfenger/kwb2mqtt/pkg/kwb"
	"go.uber.org/zap"
)

type accumulator struct {
	value      float64
	lastUpdate time.Time
}

// integrate adds rate over the time elapsed since the last update, expressed in unit.
// A clock going backwards adds nothing and keeps the timestamp.
func (a *accumulator) integrate(rate float64, now time.Time, unit time.Duration) {
	if !now.After(a.lastUpdate) {
		return
	}
	a.value += rate * float64(now.Sub(a.lastUpdate)) / float64(unit)
	a.lastUpdate = now
}

func (a *accumulator) set(value float64, now time.Time) {
	a.value = value
	if now.After(a.lastUpdate) {
		a.lastUpdate = now
	}
}

type DefaultAccumulatorEngine struct {
	Params domain.HeaterParams
	Clock  func() time.Time
	Logger *zap.Logger

	recovered bool
	runTime   accumulator // s
	energy    accumulator // kWh
	pellet    accumulator // kg
	power     float64
	output    float64
}

func NewAccumulatorEngine(params domain.HeaterParams, logger *zap.Logger) *DefaultAccumulatorEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultAccumulatorEngine{
		Params: params,
		Clock:  time.Now,
		Logger: logger,
	}
}

// Restore seeds every accumulator and completes recovery. A zero seed timestamp
// counts from now.
func (e *DefaultAccumulatorEngine) Restore(seed domain.Seed) {
	ts := seed.Timestamp
	if ts.IsZero() {
		ts = e.Clock()
	}
	e.runTime = accumulator{value: seed.BoilerRunTime, lastUpdate: ts}
	e.energy = accumulator{value: seed.BoilerEnergy, lastUpdate: ts}
	e.pellet = accumulator{value: seed.PelletConsumption, lastUpdate: ts}
	e.recovered = true
	e.Logger.Info("accumulators restored",
		zap.Time("timestamp", ts),
		zap.Float64("run_time_s", seed.BoilerRunTime),
		zap.Float64("energy_kwh", seed.BoilerEnergy),
		zap.Float64("pellet_kg", seed.PelletConsumption))
}

func (e *DefaultAccumulatorEngine) Recovered() bool {
	return e.recovered
}

// Update integrates the current boiler output since the last update. It returns
// false and changes nothing while unrecovered or when boiler_output is missing.
func (e *DefaultAccumulatorEngine) Update(snapshot kwb.Snapshot) bool {
	if !e.recovered {
		return false
	}
	output, ok := snapshot.Number(domain.SENSOR_ID_BOILER_OUTPUT)
	if !ok {
		e.Logger.Debug("boiler output missing, accumulators not updated")
		return false
	}
	if output < 0 {
		output = 0
	} else if output > 100 {
		output = 100
	}

	now := e.Clock()
	power := e.Params.NominalPowerKW * output / 100

	e.energy.integrate(power, now, time.Hour)
	if output > 0 {
		e.runTime.integrate(1, now, time.Second)
	} else {
		e.runTime.set(e.runTime.value, now)
	}
	if e.Params.PelletEnergyKWhPerKg > 0 {
		e.pellet.set(e.energy.value/e.Params.PelletEnergyKWhPerKg, now)
	}

	e.power = power
	e.output = output
	return true
}

func (e *DefaultAccumulatorEngine) Checkpoint() domain.Seed {
	return domain.Seed{
		Timestamp:         e.energy.lastUpdate,
		BoilerRunTime:     e.runTime.value,
		BoilerEnergy:      e.energy.value,
		PelletConsumption: e.pellet.value,
	}
}

func (e *DefaultAccumulatorEngine) Totals() domain.HeaterTotals {
	return domain.HeaterTotals{
		BoilerRunTime:      e.runTime.value,
		BoilerEnergy:       e.energy.value,
		PelletConsumption:  e.pellet.value,
		BoilerPower:        e.power,
		BoilerNominalPower: e.Params.NominalPowerKW,
		BoilerOutput:       e.output,
		BoilerOn:           e.output > 0,
		LastUpdate:         e.energy.lastUpdate,
	}
}

// ensure interface compliance
var _ port.AccumulatorEngine = (*DefaultAccumulatorEngine)(nil)
