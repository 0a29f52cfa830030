// Package weather provides the winter storm temperature model.
// Each day gets a seeded temperature curve; the curve only changes when the
// owner asks for a new forecast.
package weather

import (
	"log/slog"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// FreezingF is the freezing point in Fahrenheit.
const FreezingF = 32.0

// Config holds storm model parameters. Temperatures are Fahrenheit.
type Config struct {
	BaselineF      float64 `yaml:"baseline_f"`       // Daily mean with no storm
	StormDropF     float64 `yaml:"storm_drop_f"`     // Extra cooling at the storm's peak
	StormPeakDay   float64 `yaml:"storm_peak_day"`   // Day index of the coldest point
	StormWidthDays float64 `yaml:"storm_width_days"` // How long the storm lingers
	DailySpreadF   float64 `yaml:"daily_spread_f"`   // Typical high minus low
	VarianceF      float64 `yaml:"variance_f"`       // Day-to-day noise amplitude
	JitterF        float64 `yaml:"jitter_f"`         // Hour-to-hour noise amplitude
	ForecastHour   int     `yaml:"forecast_hour"`    // Hour the morning forecast is issued
}

// DefaultConfig returns a storm that dips well below freezing around day 3.
func DefaultConfig() Config {
	return Config{
		BaselineF:      46,
		StormDropF:     38,
		StormPeakDay:   2.5,
		StormWidthDays: 1.6,
		DailySpreadF:   14,
		VarianceF:      5,
		JitterF:        1.5,
		ForecastHour:   9,
	}
}

// curve is one day's temperature envelope.
type curve struct {
	day   int
	lowF  float64
	highF float64
}

// Storm produces a deterministic daily temperature curve from a seed.
type Storm struct {
	cfg   Config
	seed  int64
	noise opensimplex.Noise

	current     curve
	forecastDay int // Day of the last issued forecast, -1 before the first
}

// NewStorm creates a storm model. The day-0 curve is generated immediately
// so every hour has a temperature before the first forecast.
func NewStorm(cfg Config, seed int64) *Storm {
	s := &Storm{
		cfg:         cfg,
		seed:        seed,
		noise:       opensimplex.New(seed),
		forecastDay: -1,
	}
	s.current = s.curveFor(0)
	return s
}

// Regenerate replaces the held curve with the one for day. The result is a
// pure function of the seed and day.
func (s *Storm) Regenerate(day int) {
	s.current = s.curveFor(day)
	s.forecastDay = day
	slog.Debug("forecast issued",
		"day", day,
		"low_f", math.Round(s.current.lowF),
		"high_f", math.Round(s.current.highF),
	)
}

// ForecastDay returns the day of the last forecast, or -1 if none was issued.
func (s *Storm) ForecastDay() int { return s.forecastDay }

// CurveDay returns the day the held curve was generated for.
func (s *Storm) CurveDay() int { return s.current.day }

// ForecastHour returns the hour the morning forecast is due.
func (s *Storm) ForecastHour() int { return s.cfg.ForecastHour }

// Seed returns the seed the storm was built from.
func (s *Storm) Seed() int64 { return s.seed }

// Range returns the held curve's low and high.
func (s *Storm) Range() (lowF, highF float64) {
	return s.current.lowF, s.current.highF
}

// TemperatureAt returns the temperature at hour on the held curve. Hours
// outside 0–23 wrap.
func (s *Storm) TemperatureAt(hour int) float64 {
	h := ((hour % 24) + 24) % 24

	// Coldest at 06:00, warmest at 15:00.
	var frac float64
	if h >= 6 && h < 15 {
		frac = (1 - math.Cos(math.Pi*float64(h-6)/9)) / 2
	} else {
		since := h - 15
		if since < 0 {
			since += 24
		}
		frac = (1 + math.Cos(math.Pi*float64(since)/15)) / 2
	}

	c := s.current
	temp := c.lowF + (c.highF-c.lowF)*frac
	temp += s.cfg.JitterF * s.noise.Eval2(float64(c.day)*1.31+float64(h)*0.37, 42.5)
	return temp
}

func (s *Storm) curveFor(day int) curve {
	d := float64(day)

	envelope := 0.0
	if s.cfg.StormWidthDays > 0 {
		off := d - s.cfg.StormPeakDay
		envelope = math.Exp(-(off * off) / (2 * s.cfg.StormWidthDays * s.cfg.StormWidthDays))
	}

	mean := s.cfg.BaselineF - s.cfg.StormDropF*envelope
	mean += s.cfg.VarianceF * s.noise.Eval2(d*0.71, 0.5)

	spread := s.cfg.DailySpreadF * (1 + 0.3*s.noise.Eval2(d*0.71, 10.5))
	if spread < 0 {
		spread = 0
	}

	return curve{day: day, lowF: mean - spread/2, highF: mean + spread/2}
}

// Describe maps a temperature to a short forecast phrase.
func Describe(tempF float64) string {
	switch {
	case tempF < 0:
		return "life-threatening cold"
	case tempF < 15:
		return "bitter cold"
	case tempF < FreezingF:
		return "hard freeze"
	case tempF < 40:
		return "near freezing"
	case tempF < 55:
		return "chilly"
	case tempF < 75:
		return "mild"
	default:
		return "warm"
	}
}
