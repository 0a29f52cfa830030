package game

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/talgya/goobernor/internal/donations"
	"github.com/talgya/goobernor/internal/politics"
	"github.com/talgya/goobernor/internal/weather"
)

// Option is one choice on a modal. Presenters call Choose after
// PromptChoice has returned, never from inside it.
type Option struct {
	Text   string `json:"text"`
	Choose func() `json:"-"`
}

// Modal is a decision shown to the player. Single-option modals are
// acknowledgements.
type Modal struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Options []Option `json:"options"`
}

// Presenter displays the game. All methods are called from inside the
// orchestrator's lane and must not block or call back synchronously.
type Presenter interface {
	PromptChoice(m Modal)
	DismissModal()
	Refresh(rm ReadModel)
}

// ReadModel is the flat view of a session handed to presenters.
type ReadModel struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"`
	Date      string `json:"date"`
	Day       int    `json:"day"`
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
	Running   bool   `json:"running"`

	Governor   string `json:"governor"`
	Incumbent  string `json:"incumbent"`
	Decided    bool   `json:"decided"`
	Winterized bool   `json:"winterized"`

	TemperatureF     float64 `json:"temperature_f"`
	Conditions       string  `json:"conditions"`
	GridStability    float64 `json:"grid_stability"` // Percent of grid demand served
	GeneratorDemand  int     `json:"generator_demand"`
	GeneratorCount   int     `json:"generator_count"`
	Population       int     `json:"population"`
	PopulationAtRisk int     `json:"population_at_risk"`
	Approval         float64 `json:"approval"`
	LastUsage        float64 `json:"last_usage"`

	OrangeFunds         decimal.Decimal `json:"orange_funds"`
	PurpleFunds         decimal.Decimal `json:"purple_funds"`
	EnergyDonations     decimal.Decimal `json:"energy_donations"`
	GeneratorDonations  decimal.Decimal `json:"generator_donations"`
	GazzDonations       decimal.Decimal `json:"gazz_donations"`
	GrassrootsDonations decimal.Decimal `json:"grassroots_donations"`

	Display Display `json:"display"`
}

// Display holds human-formatted copies of the headline numbers.
type Display struct {
	OrangeFunds      string `json:"orange_funds"`
	PurpleFunds      string `json:"purple_funds"`
	Population       string `json:"population"`
	PopulationAtRisk string `json:"population_at_risk"`
	GeneratorCount   string `json:"generator_count"`
	GeneratorDemand  string `json:"generator_demand"`
	Temperature      string `json:"temperature"`
	GridStability    string `json:"grid_stability"`
	Approval         string `json:"approval"`
	LastUsage        string `json:"last_usage"`
}

// readModel builds the view. Called with the lane held.
func (o *Orchestrator) readModel() ReadModel {
	now := o.clock.Now()
	temp := o.storm.TemperatureAt(now.Hour)
	m := o.grid.Measure(temp)
	p := o.state.Policy

	rm := ReadModel{
		SessionID: o.state.ID,
		Phase:     o.state.Phase.String(),
		Date:      now.String(),
		Day:       now.Day,
		Hour:      now.Hour,
		Minute:    now.Minute,
		Running:   o.clock.Running(),

		Governor:   o.roster.Name(p.GovernorIndex),
		Incumbent:  p.Incumbent.String(),
		Decided:    p.Decided,
		Winterized: p.GridWinterized,

		TemperatureF:     temp,
		Conditions:       weather.Describe(temp),
		GridStability:    m.AvailablePowerRatio * 100,
		GeneratorDemand:  m.GeneratorDemand,
		GeneratorCount:   m.GeneratorCount,
		Population:       o.grid.Population(),
		PopulationAtRisk: m.PopulationAtRisk,
		Approval:         o.ledger.Approval(),
		LastUsage:        o.state.LastUsage,

		OrangeFunds:         o.ledger.FactionTotal(politics.Orange),
		PurpleFunds:         o.ledger.FactionTotal(politics.Purple),
		EnergyDonations:     o.ledger.IndustryTotal(donations.Energy),
		GeneratorDonations:  o.ledger.IndustryTotal(donations.Generator),
		GazzDonations:       o.ledger.IndustryTotal(donations.Gazz),
		GrassrootsDonations: o.ledger.IndustryTotal(donations.Grassroots),
	}

	rm.Display = Display{
		OrangeFunds:      money(rm.OrangeFunds),
		PurpleFunds:      money(rm.PurpleFunds),
		Population:       humanize.Comma(int64(rm.Population)),
		PopulationAtRisk: humanize.Comma(int64(rm.PopulationAtRisk)),
		GeneratorCount:   humanize.Comma(int64(rm.GeneratorCount)),
		GeneratorDemand:  humanize.Comma(int64(rm.GeneratorDemand)),
		Temperature:      humanize.FtoaWithDigits(temp, 0) + "°F",
		GridStability:    humanize.FtoaWithDigits(rm.GridStability, 0) + "%",
		Approval:         humanize.FtoaWithDigits(rm.Approval, 1) + "%",
		LastUsage:        humanize.Comma(int64(math.Round(rm.LastUsage))),
	}
	return rm
}

func money(d decimal.Decimal) string {
	return "$" + humanize.CommafWithDigits(d.InexactFloat64(), 2)
}
