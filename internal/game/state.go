package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/talgya/goobernor/internal/donations"
	"github.com/talgya/goobernor/internal/engine"
	"github.com/talgya/goobernor/internal/politics"
)

// Sequencing errors returned to player input.
var (
	ErrAlreadyStarted = errors.New("game already started")
	ErrAlreadyDecided = errors.New("winterization already decided")
	ErrNotRunning     = errors.New("game is not running")
	ErrNoModal        = errors.New("no decision is waiting")
	ErrBadOption      = errors.New("no such option")
)

// Contract violations inside the tick path. These panic.
var (
	ErrPolicyUnset    = errors.New("hour processed before winterization was decided")
	ErrHourOutOfRange = errors.New("hour out of range")
)

// Phase is where the session sits in its lifecycle.
type Phase uint8

const (
	PhaseIntro Phase = iota
	PhaseAwaitingWinterization
	PhaseRunning
	PhasePaused
)

var phaseNames = [...]string{
	PhaseIntro:                 "intro",
	PhaseAwaitingWinterization: "awaiting_winterization",
	PhaseRunning:               "running",
	PhasePaused:                "paused",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// ParsePhase converts a stored phase name back to a Phase.
func ParsePhase(s string) (Phase, error) {
	for i, n := range phaseNames {
		if n == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// Policy is the player's standing decisions.
type Policy struct {
	Decided        bool             `json:"decided"`
	GridWinterized bool             `json:"grid_winterized"`
	GovernorIndex  int              `json:"governor_index"`
	Incumbent      politics.Faction `json:"incumbent"`
}

// SessionState is everything the orchestrator owns about one play session
// apart from the simulation components themselves.
type SessionState struct {
	ID        string
	Seed      int64
	Policy    Policy
	Phase     Phase
	LastUsage float64
	LastTempF float64
	StartedAt time.Time
}

// HourRecord is the outcome of one processed hour.
type HourRecord struct {
	SessionID        string  `json:"session_id" db:"session_id"`
	Day              int     `json:"day" db:"day"`
	Hour             int     `json:"hour" db:"hour"`
	TemperatureF     float64 `json:"temperature_f" db:"temperature_f"`
	Usage            float64 `json:"usage" db:"usage"`
	PowerRatio       float64 `json:"power_ratio" db:"power_ratio"`
	GeneratorDemand  int     `json:"generator_demand" db:"generator_demand"`
	GeneratorCount   int     `json:"generator_count" db:"generator_count"`
	PopulationAtRisk int     `json:"population_at_risk" db:"population_at_risk"`
	Approval         float64 `json:"approval" db:"approval"`
	Governor         string  `json:"governor" db:"governor"`
}

// SavedSession is a resumable snapshot of a session.
type SavedSession struct {
	ID         string
	Seed       int64
	Time       engine.Time
	Policy     Policy
	Phase      Phase
	Generators int
	LastUsage  float64
	LastTempF  float64
	StartedAt  time.Time
	Entries    []donations.Entry
}
