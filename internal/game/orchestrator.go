// Package game runs a Goobernor session: it owns the policy decisions and
// the clock, and sequences weather, grid and donations every simulated hour.
package game

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/goobernor/internal/donations"
	"github.com/talgya/goobernor/internal/engine"
	"github.com/talgya/goobernor/internal/grid"
	"github.com/talgya/goobernor/internal/politics"
	"github.com/talgya/goobernor/internal/weather"
)

// Weather is the forecast source the orchestrator reads each hour.
type Weather interface {
	Regenerate(day int)
	ForecastDay() int
	ForecastHour() int
	TemperatureAt(hour int) float64
}

var _ Weather = (*weather.Storm)(nil)

// Hooks are optional callbacks fired from inside the lane.
type Hooks struct {
	OnHourClose func(rec HourRecord)
	OnDayClose  func(save SavedSession)
}

// Options configures a new Orchestrator.
type Options struct {
	SessionID    string // Generated when empty
	Seed         int64
	Driver       engine.Driver
	TicksPerHour int
	StartHour    int
	Weather      Weather
	Grid         *grid.Economy
	Ledger       *donations.Ledger
	Roster       politics.Roster
	Incumbent    politics.Faction
	Presenter    Presenter
	Hooks        Hooks
}

// Orchestrator owns a session's state machine.
//
// Every entry point takes mu, and clock steps take it too, so the whole game
// runs in a single lane.
type Orchestrator struct {
	mu sync.Mutex

	clock     *engine.Clock
	storm     Weather
	grid      *grid.Economy
	ledger    *donations.Ledger
	roster    politics.Roster
	presenter Presenter
	hooks     Hooks

	state SessionState
	modal *pendingModal
}

// pendingModal is the modal on screen plus the action behind each option.
type pendingModal struct {
	modal   Modal
	actions []func() error
}

// New wires an orchestrator. The session starts in PhaseIntro; call Start to
// show the first decision.
func New(opts Options) *Orchestrator {
	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	o := &Orchestrator{
		storm:     opts.Weather,
		grid:      opts.Grid,
		ledger:    opts.Ledger,
		roster:    opts.Roster,
		presenter: opts.Presenter,
		hooks:     opts.Hooks,
		state: SessionState{
			ID:        id,
			Seed:      opts.Seed,
			Phase:     PhaseIntro,
			Policy:    Policy{Incumbent: opts.Incumbent},
			StartedAt: time.Now().UTC(),
		},
	}
	o.clock = engine.NewClock(opts.Driver, &o.mu, opts.TicksPerHour, opts.StartHour)
	return o
}

// Start shows the session's opening modal. A fresh session asks for the
// winterization decision; a restored one asks the player to resume.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state.Phase {
	case PhaseIntro:
		o.state.Phase = PhaseAwaitingWinterization
		o.refresh()
		o.prompt(winterizeTitle, winterizeBody,
			choice{skipOption, func() error { return o.decide(false) }},
			choice{winterizeOption, func() error { return o.decide(true) }},
		)
		slog.Info("session started", "session", o.state.ID, "seed", o.state.Seed)
		return nil

	case PhasePaused:
		if o.modal != nil {
			return ErrAlreadyStarted
		}
		o.refresh()
		o.prompt(welcomeBackTitle, welcomeBackBody(o.governor(), o.clock.Now().String()),
			choice{welcomeBackOption, o.resume},
		)
		slog.Info("session resumed", "session", o.state.ID, "time", o.clock.Now().String())
		return nil

	default:
		return ErrAlreadyStarted
	}
}

// Choose picks option index on the modal currently shown.
func (o *Orchestrator) Choose(index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.modal == nil {
		return ErrNoModal
	}
	if index < 0 || index >= len(o.modal.actions) {
		return fmt.Errorf("%w: %d of %d", ErrBadOption, index, len(o.modal.actions))
	}
	return o.modal.actions[index]()
}

// Decide answers the winterization question directly, as if the matching
// option had been chosen.
func (o *Orchestrator) Decide(winterize bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.decide(winterize)
}

// Resign replaces the sitting governor with the next one in line. The clock
// stays stopped until the player acknowledges.
func (o *Orchestrator) Resign() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Phase != PhaseRunning {
		return ErrNotRunning
	}

	o.clock.Stop()
	outgoing := o.governor()
	o.state.Policy.GovernorIndex = o.roster.Next(o.state.Policy.GovernorIndex)
	incoming := o.governor()
	o.state.Phase = PhasePaused

	slog.Info("governor resigned", "outgoing", outgoing, "incoming", incoming, "time", o.clock.Now().String())

	o.refresh()
	o.prompt(resignTitle(outgoing), resignBody(outgoing, incoming),
		choice{resignOption, o.resume},
	)
	return nil
}

// Stop halts the clock without changing phase. Used at shutdown before a
// final save.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clock.Stop()
}

// Snapshot returns the current read-model.
func (o *Orchestrator) Snapshot() ReadModel {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.readModel()
}

// CurrentModal returns the modal on screen, if any.
func (o *Orchestrator) CurrentModal() (Modal, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.modal == nil {
		return Modal{}, false
	}
	m := o.modal.modal
	m.Options = append([]Option(nil), m.Options...)
	return m, true
}

// Phase returns the session's phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Phase
}

// State returns a copy of the session state.
func (o *Orchestrator) State() SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Save returns a resumable snapshot.
func (o *Orchestrator) Save() SavedSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.save()
}

// Restore re-seats a fresh orchestrator from a save. A session saved after
// the winterization decision comes back paused; call Start to prompt the
// player to resume.
func (o *Orchestrator) Restore(s SavedSession) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Phase != PhaseIntro || o.clock.Running() {
		return ErrAlreadyStarted
	}
	if err := o.clock.Restore(s.Time); err != nil {
		return fmt.Errorf("restore session %s: %w", s.ID, err)
	}
	if err := o.grid.RestoreGenerators(s.Generators); err != nil {
		return fmt.Errorf("restore session %s: %w", s.ID, err)
	}
	if err := o.ledger.Load(s.Entries); err != nil {
		return fmt.Errorf("restore session %s: %w", s.ID, err)
	}

	// The morning forecast for the saved day has been issued only once its
	// forecast hour has passed.
	switch {
	case s.Time.Hour >= o.storm.ForecastHour():
		o.storm.Regenerate(s.Time.Day)
	case s.Time.Day > 0:
		o.storm.Regenerate(s.Time.Day - 1)
	}

	o.state = SessionState{
		ID:        s.ID,
		Seed:      s.Seed,
		Policy:    s.Policy,
		Phase:     PhaseIntro,
		LastUsage: s.LastUsage,
		LastTempF: s.LastTempF,
		StartedAt: s.StartedAt,
	}
	o.state.Policy.GovernorIndex = o.roster.Wrap(s.Policy.GovernorIndex)
	if s.Policy.Decided {
		o.state.Phase = PhasePaused
		o.grid.SetWinterized(s.Policy.GridWinterized)
	}

	slog.Info("session restored", "session", s.ID, "time", s.Time.String(), "phase", o.state.Phase.String(),
		"generators", s.Generators, "entries", len(s.Entries))
	return nil
}

// decide applies the winterization choice and starts the clock.
func (o *Orchestrator) decide(winterize bool) error {
	if o.state.Policy.Decided {
		return ErrAlreadyDecided
	}
	if o.state.Phase != PhaseAwaitingWinterization {
		return ErrNoModal
	}

	inc := o.state.Policy.Incumbent
	if err := o.ledger.ApplyEnergyDonations(winterize, inc); err != nil {
		return fmt.Errorf("decide winterization: %w", err)
	}
	o.state.Policy.Decided = true
	o.state.Policy.GridWinterized = winterize
	o.grid.SetWinterized(winterize)
	o.state.Phase = PhaseRunning

	slog.Info("winterization decided", "winterized", winterize, "governor", o.governor(),
		"energy_donations", o.ledger.IndustryTotal(donations.Energy).String())

	o.clock.Start(o.handlers())
	o.refresh()

	if winterize {
		o.prompt(winterizeOutcomeTitle, winterizeOutcomeBody, choice{winterizeOutcomeOption, o.dismiss})
	} else {
		o.prompt(skipOutcomeTitle, skipOutcomeBody, choice{skipOutcomeOption, o.dismiss})
	}
	return nil
}

// resume acknowledges a pause and restarts the clock where it stopped.
func (o *Orchestrator) resume() error {
	if o.state.Phase != PhasePaused {
		return ErrNotRunning
	}
	o.clearModal()
	o.state.Phase = PhaseRunning
	o.clock.Start(o.handlers())
	o.refresh()
	return nil
}

// dismiss acknowledges an informational modal.
func (o *Orchestrator) dismiss() error {
	o.clearModal()
	o.refresh()
	return nil
}

func (o *Orchestrator) handlers() engine.Handlers {
	return engine.Handlers{
		OnTick: func(engine.Time) { o.refresh() },
		OnHour: o.onHour,
		OnDay:  o.onDay,
	}
}

// onHour runs one simulated hour. Called from a clock step with the lane
// held. The order of effects is fixed: forecast, temperature, grid, gazz
// money, approval, grassroots money, history, refresh.
func (o *Orchestrator) onHour(day, hour int) {
	if !o.state.Policy.Decided {
		panic(ErrPolicyUnset)
	}
	if hour < 0 || hour >= engine.HoursPerDay {
		panic(fmt.Errorf("%w: %d", ErrHourOutOfRange, hour))
	}

	if hour == o.storm.ForecastHour() && o.storm.ForecastDay() != day {
		o.storm.Regenerate(day)
		slog.Debug("forecast issued", "day", day)
	}

	p := o.state.Policy
	temp := o.storm.TemperatureAt(hour)
	usage := o.grid.Tick(temp, p.GridWinterized)
	o.ledger.ApplyGazzDonations(usage, p.Incumbent)

	m := o.grid.Last()
	pop := o.grid.Population()
	o.ledger.RecordHardship(m.PopulationAtRisk, pop)
	o.ledger.ApplyGrassrootsDonations(pop, o.ledger.Approval(), p.Incumbent)

	o.state.LastUsage = usage
	o.state.LastTempF = temp

	if o.hooks.OnHourClose != nil {
		o.hooks.OnHourClose(HourRecord{
			SessionID:        o.state.ID,
			Day:              day,
			Hour:             hour,
			TemperatureF:     temp,
			Usage:            usage,
			PowerRatio:       m.AvailablePowerRatio,
			GeneratorDemand:  m.GeneratorDemand,
			GeneratorCount:   m.GeneratorCount,
			PopulationAtRisk: m.PopulationAtRisk,
			Approval:         o.ledger.Approval(),
			Governor:         o.governor(),
		})
	}

	o.refresh()
}

// onDay closes out a simulated day. Called after onHour for hour 0.
func (o *Orchestrator) onDay(day int) {
	p := o.state.Policy
	purchases := o.grid.BuyGenerators()
	o.ledger.ApplyGeneratorDonations(purchases, p.Incumbent)

	slog.Info("daily report",
		"day", day,
		"governor", o.governor(),
		"winterized", p.GridWinterized,
		"generators_bought", purchases,
		"generators", o.grid.Generators(),
		"approval", fmt.Sprintf("%.1f", o.ledger.Approval()),
		"orange_funds", o.ledger.FactionTotal(politics.Orange).StringFixed(2),
		"purple_funds", o.ledger.FactionTotal(politics.Purple).StringFixed(2),
	)

	if o.hooks.OnDayClose != nil {
		o.hooks.OnDayClose(o.save())
	}
}

type choice struct {
	text   string
	action func() error
}

// prompt replaces the current modal and hands it to the presenter.
func (o *Orchestrator) prompt(title, body string, choices ...choice) {
	pm := &pendingModal{modal: Modal{Title: title, Body: body}}
	for _, c := range choices {
		action := c.action
		pm.actions = append(pm.actions, action)
		pm.modal.Options = append(pm.modal.Options, Option{
			Text:   c.text,
			Choose: func() { o.chooseAction(pm, action) },
		})
	}
	o.modal = pm
	if o.presenter != nil {
		o.presenter.PromptChoice(pm.modal)
	}
}

// chooseAction runs an option callback handed out with a modal. Options from
// a modal that has since been replaced are ignored.
func (o *Orchestrator) chooseAction(pm *pendingModal, action func() error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.modal != pm {
		slog.Debug("stale modal option ignored", "title", pm.modal.Title)
		return
	}
	if err := action(); err != nil {
		slog.Warn("modal option rejected", "title", pm.modal.Title, "error", err)
	}
}

func (o *Orchestrator) clearModal() {
	if o.modal == nil {
		return
	}
	o.modal = nil
	if o.presenter != nil {
		o.presenter.DismissModal()
	}
}

func (o *Orchestrator) refresh() {
	if o.presenter != nil {
		o.presenter.Refresh(o.readModel())
	}
}

func (o *Orchestrator) governor() string {
	return o.roster.Name(o.state.Policy.GovernorIndex)
}

func (o *Orchestrator) save() SavedSession {
	return SavedSession{
		ID:         o.state.ID,
		Seed:       o.state.Seed,
		Time:       o.clock.Now(),
		Policy:     o.state.Policy,
		Phase:      o.state.Phase,
		Generators: o.grid.Generators(),
		LastUsage:  o.state.LastUsage,
		LastTempF:  o.state.LastTempF,
		StartedAt:  o.state.StartedAt,
		Entries:    o.ledger.Entries(),
	}
}
