// Package grid models Tegzit's electricity supply and demand.
// Cold weather raises demand; an unwinterized grid also loses capacity below
// freezing. Households left in the dark buy generators, burn emergency gazz,
// and eventually end up at risk.
package grid

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/goobernor/internal/weather"
)

// ErrGeneratorsDecrease is returned when a restore would lower the installed
// generator count.
var ErrGeneratorsDecrease = errors.New("generator count cannot decrease")

// Config holds the grid model's tunable coefficients.
type Config struct {
	Population        int `yaml:"population"`
	HouseholdSize     int `yaml:"household_size"` // People covered by one home generator
	InitialGenerators int `yaml:"initial_generators"`

	// Per-capita load is BaseLoadKW plus HeatingKWPerDegree for every degree
	// below ComfortF.
	BaseLoadKW         float64 `yaml:"base_load_kw"`
	HeatingKWPerDegree float64 `yaml:"heating_kw_per_degree"`
	ComfortF           float64 `yaml:"comfort_f"`

	// An unwinterized plant loses FailurePerDegree of CapacityMW for every
	// degree below freezing, down to MinDerate.
	CapacityMW       float64 `yaml:"capacity_mw"`
	FailurePerDegree float64 `yaml:"failure_per_degree"`
	MinDerate        float64 `yaml:"min_derate"`

	// Exposure rises linearly from zero at SafeF to one at LethalF.
	SafeF   float64 `yaml:"safe_f"`
	LethalF float64 `yaml:"lethal_f"`

	GazzPerMWh    float64 `yaml:"gazz_per_mwh"`
	EmergencyGazz float64 `yaml:"emergency_gazz"` // Per unserved person per hour at full exposure
	GeneratorGazz float64 `yaml:"generator_gazz"` // Per generator per hour
	PurchaseRate  float64 `yaml:"purchase_rate"`  // Share of the dark population that buys each day
}

// DefaultConfig returns coefficients for a state of 29 million people whose
// grid just barely covers a mild winter.
func DefaultConfig() Config {
	return Config{
		Population:         29_000_000,
		HouseholdSize:      3,
		BaseLoadKW:         1.0,
		HeatingKWPerDegree: 0.05,
		ComfortF:           65,
		CapacityMW:         80_000,
		FailurePerDegree:   0.03,
		MinDerate:          0.35,
		SafeF:              50,
		LethalF:            -10,
		GazzPerMWh:         7,
		EmergencyGazz:      0.002,
		GeneratorGazz:      0.1,
		PurchaseRate:       0.02,
	}
}

// Validate checks that the coefficients describe a usable grid.
func (c Config) Validate() error {
	switch {
	case c.Population < 0:
		return fmt.Errorf("grid: population must be non-negative, got %d", c.Population)
	case c.HouseholdSize <= 0:
		return fmt.Errorf("grid: household size must be positive, got %d", c.HouseholdSize)
	case c.InitialGenerators < 0:
		return fmt.Errorf("grid: initial generators must be non-negative, got %d", c.InitialGenerators)
	case c.CapacityMW < 0:
		return fmt.Errorf("grid: capacity must be non-negative, got %v", c.CapacityMW)
	case c.SafeF <= c.LethalF:
		return fmt.Errorf("grid: safe temperature %v must exceed lethal temperature %v", c.SafeF, c.LethalF)
	case c.MinDerate < 0 || c.MinDerate > 1:
		return fmt.Errorf("grid: min derate must be within [0,1], got %v", c.MinDerate)
	}
	return nil
}

// Metrics is the derived state of one simulated hour.
type Metrics struct {
	TemperatureF        float64 `json:"temperature_f"`
	Consumption         float64 `json:"consumption"`
	DemandMW            float64 `json:"demand_mw"`
	CapacityMW          float64 `json:"capacity_mw"`
	AvailablePowerRatio float64 `json:"available_power_ratio"`
	GeneratorCount      int     `json:"generator_count"`
	GeneratorDemand     int     `json:"generator_demand"` // People without grid power
	PopulationAtRisk    int     `json:"population_at_risk"`
}

// Economy is the supply/demand simulation.
type Economy struct {
	cfg        Config
	generators int
	winterized bool
	last       Metrics

	// Generator demand accumulated since the last purchase round.
	pressure      float64
	pressureHours int
}

// New creates an economy with the configured starting generators.
func New(cfg Config) *Economy {
	return &Economy{cfg: cfg, generators: cfg.InitialGenerators}
}

// SetWinterized records the grid's winterization policy for queries made
// before the first Tick.
func (e *Economy) SetWinterized(winterized bool) {
	e.winterized = winterized
}

// Tick consumes one hour of demand at tempF and returns the hour's gazz
// consumption. It panics on a non-finite temperature.
func (e *Economy) Tick(tempF float64, winterized bool) float64 {
	if math.IsNaN(tempF) || math.IsInf(tempF, 0) {
		panic(fmt.Sprintf("grid: tick with non-finite temperature %v", tempF))
	}

	e.winterized = winterized
	m := e.measure(tempF)
	e.pressure += float64(m.GeneratorDemand)
	e.pressureHours++
	e.last = m
	return m.Consumption
}

// AvailablePowerRatio returns the share of grid demand that can be served at
// tempF. It has no side effects.
func (e *Economy) AvailablePowerRatio(tempF float64) float64 {
	return e.measure(tempF).AvailablePowerRatio
}

// Measure returns the metrics the grid would report at tempF without
// consuming an hour.
func (e *Economy) Measure(tempF float64) Metrics {
	return e.measure(tempF)
}

// Last returns the metrics of the most recent Tick.
func (e *Economy) Last() Metrics { return e.last }

// Generators returns the installed home generator count.
func (e *Economy) Generators() int { return e.generators }

// Population returns the total population served.
func (e *Economy) Population() int { return e.cfg.Population }

// BuyGenerators runs the daily purchase round. Households that spent the day
// in the dark buy generators in proportion to how many there were. Returns
// the number bought, which may be zero.
func (e *Economy) BuyGenerators() int {
	if e.pressureHours == 0 {
		return 0
	}

	avgDark := e.pressure / float64(e.pressureHours)
	e.pressure = 0
	e.pressureHours = 0

	purchases := int(math.Floor(avgDark * e.cfg.PurchaseRate / float64(e.cfg.HouseholdSize)))

	// Never cover more households than exist.
	room := e.cfg.Population/e.cfg.HouseholdSize - e.generators
	if room < 0 {
		room = 0
	}
	if purchases > room {
		purchases = room
	}
	if purchases < 0 {
		purchases = 0
	}

	e.generators += purchases
	slog.Debug("generators purchased", "count", purchases, "installed", e.generators)
	return purchases
}

// RestoreGenerators re-seats the installed count from a save.
func (e *Economy) RestoreGenerators(n int) error {
	if n < e.generators {
		return fmt.Errorf("%w: have %d, restore %d", ErrGeneratorsDecrease, e.generators, n)
	}
	e.generators = n
	return nil
}

func (e *Economy) measure(tempF float64) Metrics {
	c := e.cfg

	perCapitaKW := c.BaseLoadKW + c.HeatingKWPerDegree*math.Max(0, c.ComfortF-tempF)

	covered := e.generators * c.HouseholdSize
	if covered > c.Population {
		covered = c.Population
	}
	gridPop := c.Population - covered

	demand := float64(gridPop) * perCapitaKW / 1000
	capacity := c.CapacityMW * e.derate(tempF)

	ratio := 1.0
	if demand > 0 {
		ratio = clamp(capacity/demand, 0, 1)
	}

	unserved := int(math.Round(float64(gridPop) * (1 - ratio)))
	exposure := clamp((c.SafeF-tempF)/(c.SafeF-c.LethalF), 0, 1)
	atRisk := int(math.Round(float64(unserved) * exposure))
	if atRisk > c.Population {
		atRisk = c.Population
	}

	consumption := demand*c.GazzPerMWh +
		float64(unserved)*c.EmergencyGazz*exposure +
		float64(e.generators)*c.GeneratorGazz

	return Metrics{
		TemperatureF:        tempF,
		Consumption:         consumption,
		DemandMW:            demand,
		CapacityMW:          capacity,
		AvailablePowerRatio: ratio,
		GeneratorCount:      e.generators,
		GeneratorDemand:     unserved,
		PopulationAtRisk:    atRisk,
	}
}

// derate returns the fraction of plant capacity still online at tempF.
func (e *Economy) derate(tempF float64) float64 {
	if e.winterized || tempF >= weather.FreezingF {
		return 1
	}
	d := 1 - e.cfg.FailurePerDegree*(weather.FreezingF-tempF)
	if d < e.cfg.MinDerate {
		d = e.cfg.MinDerate
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
