// Package donations tracks political money flowing to each faction and the
// incumbent's rolling approval rating.
package donations

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"github.com/talgya/goobernor/internal/politics"
)

// ErrEnergyApplied is returned when the one-time energy industry donation is
// applied a second time.
var ErrEnergyApplied = errors.New("energy donation already applied")

// Source identifies where a ledger entry came from.
type Source uint8

const (
	Energy     Source = iota // Energy industry, paid once for the winterization decision
	Gazz                     // Gazz producers, paid hourly per unit burned
	Grassroots               // Small-dollar opposition donors, paid hourly
	Generator                // Home generator sellers, paid daily per unit sold
	Hardship                 // Approval update; carries no money
)

// Industries lists the sources that count as industry money.
var Industries = []Source{Energy, Generator, Gazz}

var sourceNames = [...]string{
	Energy:     "energy",
	Gazz:       "gazz",
	Grassroots: "grassroots",
	Generator:  "generator",
	Hardship:   "hardship",
}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return fmt.Sprintf("Source(%d)", uint8(s))
}

// ParseSource converts a stored name back to a Source.
func ParseSource(name string) (Source, error) {
	for i, n := range sourceNames {
		if n == name {
			return Source(i), nil
		}
	}
	return 0, fmt.Errorf("unknown donation source %q", name)
}

// Config holds donation rates and approval dynamics.
type Config struct {
	EnergySkipReward      float64 `yaml:"energy_skip_reward"`
	EnergyWinterizeReward float64 `yaml:"energy_winterize_reward"`
	GazzRate              float64 `yaml:"gazz_rate"`      // Dollars per unit of gazz consumed
	GeneratorRate         float64 `yaml:"generator_rate"` // Dollars per generator sold

	// Grassroots money is drawn from the opposition's share of the
	// population and shrinks as the incumbent's approval rises.
	GrassrootsPerCapita float64 `yaml:"grassroots_per_capita"`
	OppositionShare     float64 `yaml:"opposition_share"`

	// Approval drifts toward BaselineApproval scaled down by the share of
	// the population at risk times HardshipWeight.
	InitialApproval   float64 `yaml:"initial_approval"`
	BaselineApproval  float64 `yaml:"baseline_approval"`
	HardshipWeight    float64 `yaml:"hardship_weight"`
	ApprovalSmoothing float64 `yaml:"approval_smoothing"`
}

// DefaultConfig returns the stock donation rates.
func DefaultConfig() Config {
	return Config{
		EnergySkipReward:      1_000_000,
		EnergyWinterizeReward: 25_000,
		GazzRate:              0.01,
		GeneratorRate:         150,
		GrassrootsPerCapita:   0.00002,
		OppositionShare:       0.45,
		InitialApproval:       55,
		BaselineApproval:      55,
		HardshipWeight:        10,
		ApprovalSmoothing:     0.1,
	}
}

// Entry is one journaled ledger mutation. Replaying a journal in order
// rebuilds the ledger exactly.
type Entry struct {
	Seq      int64            `json:"seq"`
	Source   Source           `json:"source"`
	Faction  politics.Faction `json:"faction"`
	Amount   decimal.Decimal  `json:"amount"`
	Approval float64          `json:"approval,omitempty"` // Resulting approval, Hardship entries only
}

// Ledger holds the donation pools. It is not safe for concurrent use; the
// game drives it from a single lane.
type Ledger struct {
	cfg        Config
	factions   map[politics.Faction]decimal.Decimal
	industries map[Source]decimal.Decimal
	counts     map[Source]int
	approval   float64
	energyDone bool
	entries    []Entry
}

// NewLedger creates an empty ledger at the configured initial approval.
func NewLedger(cfg Config) *Ledger {
	return &Ledger{
		cfg:        cfg,
		factions:   make(map[politics.Faction]decimal.Decimal),
		industries: make(map[Source]decimal.Decimal),
		counts:     make(map[Source]int),
		approval:   clampApproval(cfg.InitialApproval),
	}
}

// ApplyEnergyDonations pays the incumbent for the winterization decision.
// Skipping winterization pays far more. Allowed once per session.
func (l *Ledger) ApplyEnergyDonations(winterized bool, incumbent politics.Faction) error {
	if l.energyDone {
		return ErrEnergyApplied
	}
	reward := l.cfg.EnergySkipReward
	if winterized {
		reward = l.cfg.EnergyWinterizeReward
	}
	l.credit(Energy, incumbent, reward)
	return nil
}

// ApplyGazzDonations pays the incumbent in proportion to the hour's gazz
// usage.
func (l *Ledger) ApplyGazzDonations(usage float64, incumbent politics.Faction) {
	l.credit(Gazz, incumbent, usage*l.cfg.GazzRate)
}

// ApplyGrassrootsDonations pays the opposition from small donors. Donors
// give less when the incumbent is popular.
func (l *Ledger) ApplyGrassrootsDonations(population int, approval float64, incumbent politics.Faction) {
	discontent := 1 - clampApproval(approval)/100
	amount := float64(population) * l.cfg.OppositionShare * l.cfg.GrassrootsPerCapita * discontent
	l.credit(Grassroots, incumbent.Opponent(), amount)
}

// ApplyGeneratorDonations pays the incumbent per generator sold today.
func (l *Ledger) ApplyGeneratorDonations(purchases int, incumbent politics.Faction) {
	l.credit(Generator, incumbent, float64(purchases)*l.cfg.GeneratorRate)
}

// RecordHardship moves approval toward a target set by the share of the
// population at risk.
func (l *Ledger) RecordHardship(atRisk, population int) {
	share := 0.0
	if population > 0 {
		share = math.Min(1, math.Max(0, float64(atRisk)/float64(population)))
	}
	target := l.cfg.BaselineApproval * (1 - math.Min(1, share*l.cfg.HardshipWeight))
	next := clampApproval(l.approval + l.cfg.ApprovalSmoothing*(target-l.approval))

	l.approval = next
	l.append(Entry{Source: Hardship, Approval: next})
}

// Approval returns the incumbent's rolling approval, 0 to 100.
func (l *Ledger) Approval() float64 { return l.approval }

// EnergyApplied reports whether the one-time energy donation has been paid.
func (l *Ledger) EnergyApplied() bool { return l.energyDone }

// FactionTotal returns everything donated to f.
func (l *Ledger) FactionTotal(f politics.Faction) decimal.Decimal {
	return l.factions[f]
}

// IndustryTotal returns everything donated from source s.
func (l *Ledger) IndustryTotal(s Source) decimal.Decimal {
	return l.industries[s]
}

// Count returns how many times entries from s have been applied.
func (l *Ledger) Count(s Source) int { return l.counts[s] }

// Entries returns a copy of the journal.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// EntriesSince returns journal entries with Seq greater than seq.
func (l *Ledger) EntriesSince(seq int64) []Entry {
	for i, e := range l.entries {
		if e.Seq > seq {
			out := make([]Entry, len(l.entries)-i)
			copy(out, l.entries[i:])
			return out
		}
	}
	return nil
}

// Replay rebuilds a fresh ledger from a journal. Entries must be in Seq
// order.
func Replay(cfg Config, entries []Entry) (*Ledger, error) {
	l := NewLedger(cfg)
	for _, e := range entries {
		if len(l.entries) > 0 && e.Seq <= l.entries[len(l.entries)-1].Seq {
			return nil, fmt.Errorf("replay: entry %d out of order", e.Seq)
		}
		switch e.Source {
		case Hardship:
			l.approval = clampApproval(e.Approval)
		case Energy:
			if l.energyDone {
				return nil, fmt.Errorf("replay: entry %d: %w", e.Seq, ErrEnergyApplied)
			}
			l.energyDone = true
			fallthrough
		case Gazz, Grassroots, Generator:
			if e.Amount.IsNegative() {
				return nil, fmt.Errorf("replay: entry %d has negative amount %s", e.Seq, e.Amount)
			}
			l.factions[e.Faction] = l.factions[e.Faction].Add(e.Amount)
			l.industries[e.Source] = l.industries[e.Source].Add(e.Amount)
		default:
			return nil, fmt.Errorf("replay: entry %d has unknown source %d", e.Seq, e.Source)
		}
		l.counts[e.Source]++
		l.entries = append(l.entries, e)
	}
	return l, nil
}

// Load replaces the ledger's contents with a replayed journal.
func (l *Ledger) Load(entries []Entry) error {
	r, err := Replay(l.cfg, entries)
	if err != nil {
		return err
	}
	*l = *r
	return nil
}

func (l *Ledger) credit(s Source, f politics.Faction, amount float64) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		slog.Warn("donation clamped to zero", "source", s.String(), "faction", f.String(), "amount", amount)
		amount = 0
	}
	d := decimal.NewFromFloat(amount).Round(2)

	if s == Energy {
		l.energyDone = true
	}
	l.factions[f] = l.factions[f].Add(d)
	l.industries[s] = l.industries[s].Add(d)
	l.append(Entry{Source: s, Faction: f, Amount: d})
}

func (l *Ledger) append(e Entry) {
	e.Seq = int64(len(l.entries)) + 1
	if n := len(l.entries); n > 0 {
		e.Seq = l.entries[n-1].Seq + 1
	}
	l.counts[e.Source]++
	l.entries = append(l.entries, e)
}

func clampApproval(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}
