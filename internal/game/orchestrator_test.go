package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/goobernor/internal/donations"
	"github.com/talgya/goobernor/internal/engine"
	"github.com/talgya/goobernor/internal/grid"
	"github.com/talgya/goobernor/internal/politics"
	"github.com/talgya/goobernor/internal/weather"
)

const testTicksPerHour = 2

type fakePresenter struct {
	modals    []Modal
	dismissed int
	refreshes int
	last      ReadModel
}

func (p *fakePresenter) PromptChoice(m Modal) { p.modals = append(p.modals, m) }
func (p *fakePresenter) DismissModal()        { p.dismissed++ }
func (p *fakePresenter) Refresh(rm ReadModel) { p.refreshes++; p.last = rm }
func (p *fakePresenter) lastModal() Modal     { return p.modals[len(p.modals)-1] }

// countingWeather records every forecast regeneration.
type countingWeather struct {
	*weather.Storm
	regenerated []int
}

func (w *countingWeather) Regenerate(day int) {
	w.regenerated = append(w.regenerated, day)
	w.Storm.Regenerate(day)
}

// fixedWeather holds one temperature all day, every day.
type fixedWeather struct {
	tempF       float64
	forecastDay int
}

func (w *fixedWeather) Regenerate(day int)        { w.forecastDay = day }
func (w *fixedWeather) ForecastDay() int          { return w.forecastDay }
func (w *fixedWeather) ForecastHour() int         { return 9 }
func (w *fixedWeather) TemperatureAt(int) float64 { return w.tempF }

type harness struct {
	game      *Orchestrator
	driver    *engine.ManualDriver
	presenter *fakePresenter
	ledger    *donations.Ledger
	grid      *grid.Economy
	hours     []HourRecord
	saves     []SavedSession
}

func newHarness(t *testing.T, w Weather) *harness {
	t.Helper()

	roster, err := politics.NewRoster(politics.DefaultGovernors)
	require.NoError(t, err)

	h := &harness{
		driver:    engine.NewManualDriver(testTicksPerHour),
		presenter: &fakePresenter{},
		ledger:    donations.NewLedger(donations.DefaultConfig()),
		grid:      grid.New(grid.DefaultConfig()),
	}
	h.game = New(Options{
		Seed:         42,
		Driver:       h.driver,
		TicksPerHour: testTicksPerHour,
		Weather:      w,
		Grid:         h.grid,
		Ledger:       h.ledger,
		Roster:       roster,
		Incumbent:    politics.Orange,
		Presenter:    h.presenter,
		Hooks: Hooks{
			OnHourClose: func(rec HourRecord) { h.hours = append(h.hours, rec) },
			OnDayClose:  func(s SavedSession) { h.saves = append(h.saves, s) },
		},
	})
	return h
}

func newStormHarness(t *testing.T) (*harness, *countingWeather) {
	w := &countingWeather{Storm: weather.NewStorm(weather.DefaultConfig(), 42)}
	return newHarness(t, w), w
}

func (h *harness) lastHour() HourRecord {
	return h.hours[len(h.hours)-1]
}

func TestStartPromptsWinterization(t *testing.T) {
	h, _ := newStormHarness(t)

	require.NoError(t, h.game.Start())
	assert.Equal(t, PhaseAwaitingWinterization, h.game.Phase())
	assert.False(t, h.driver.Armed(), "clock waits for the decision")

	require.Len(t, h.presenter.modals, 1)
	m := h.presenter.modals[0]
	assert.Equal(t, winterizeTitle, m.Title)
	require.Len(t, m.Options, 2)
	assert.Equal(t, skipOption, m.Options[0].Text)
	assert.Equal(t, winterizeOption, m.Options[1].Text)
	assert.Positive(t, h.presenter.refreshes)

	assert.ErrorIs(t, h.game.Start(), ErrAlreadyStarted)
}

func TestForecastRegeneratesOncePerDay(t *testing.T) {
	h, w := newStormHarness(t)
	require.NoError(t, h.game.Start())
	require.NoError(t, h.game.Choose(0))

	h.driver.AdvanceBy(2 * engine.HoursPerDay)

	assert.Equal(t, []int{0, 1}, w.regenerated)
	assert.Equal(t, engine.Time{Day: 2, Hour: 0}, h.game.Save().Time)
}

func TestSkippingWinterizationPutsMorePeopleAtRisk(t *testing.T) {
	skip := newHarness(t, &fixedWeather{tempF: 20, forecastDay: -1})
	winter := newHarness(t, &fixedWeather{tempF: 20, forecastDay: -1})

	require.NoError(t, skip.game.Start())
	require.NoError(t, winter.game.Start())
	require.NoError(t, skip.game.Choose(0))
	require.NoError(t, winter.game.Choose(1))

	p := skip.game.State().Policy
	assert.True(t, p.Decided)
	assert.False(t, p.GridWinterized)
	assert.True(t, winter.game.State().Policy.GridWinterized)

	assert.Equal(t, 1, skip.ledger.Count(donations.Energy))
	assert.Equal(t, "1000000", skip.ledger.IndustryTotal(donations.Energy).String())
	assert.Equal(t, "25000", winter.ledger.IndustryTotal(donations.Energy).String())

	skip.driver.AdvanceBy(1)
	winter.driver.AdvanceBy(1)

	assert.Greater(t, skip.lastHour().PopulationAtRisk, winter.lastHour().PopulationAtRisk)
	assert.Greater(t, skip.game.Snapshot().PopulationAtRisk, winter.game.Snapshot().PopulationAtRisk)
	assert.Equal(t, 1, skip.ledger.Count(donations.Energy), "energy money is paid once")
}

func TestDecisionShowsOutcomeAndStartsClock(t *testing.T) {
	h, _ := newStormHarness(t)
	require.NoError(t, h.game.Start())
	require.NoError(t, h.game.Choose(1))

	assert.Equal(t, PhaseRunning, h.game.Phase())
	assert.True(t, h.driver.Armed())

	m := h.presenter.lastModal()
	assert.Equal(t, winterizeOutcomeTitle, m.Title)
	require.Len(t, m.Options, 1)

	require.NoError(t, h.game.Choose(0))
	_, ok := h.game.CurrentModal()
	assert.False(t, ok)
	assert.Equal(t, 1, h.presenter.dismissed)
	assert.ErrorIs(t, h.game.Choose(0), ErrNoModal)
}

func TestSecondDecisionRejected(t *testing.T) {
	h, _ := newStormHarness(t)

	assert.ErrorIs(t, h.game.Decide(true), ErrNoModal, "not asked yet")

	require.NoError(t, h.game.Start())
	require.NoError(t, h.game.Decide(false))
	assert.ErrorIs(t, h.game.Decide(true), ErrAlreadyDecided)
	assert.False(t, h.game.State().Policy.GridWinterized)
	assert.Equal(t, 1, h.ledger.Count(donations.Energy))
}

func TestStaleOptionCallbackIgnored(t *testing.T) {
	h, _ := newStormHarness(t)
	require.NoError(t, h.game.Start())
	first := h.presenter.modals[0]

	first.Options[0].Choose()
	first.Options[1].Choose()

	assert.False(t, h.game.State().Policy.GridWinterized)
	assert.Equal(t, 1, h.ledger.Count(donations.Energy))

	h.presenter.lastModal().Options[0].Choose()
	_, ok := h.game.CurrentModal()
	assert.False(t, ok)
}

func TestBadOption(t *testing.T) {
	h, _ := newStormHarness(t)
	require.NoError(t, h.game.Start())

	assert.ErrorIs(t, h.game.Choose(2), ErrBadOption)
	assert.ErrorIs(t, h.game.Choose(-1), ErrBadOption)
	assert.Equal(t, PhaseAwaitingWinterization, h.game.Phase())
}

func TestResignResumesAtNextHour(t *testing.T) {
	h, _ := newStormHarness(t)
	require.NoError(t, h.game.Start())
	require.NoError(t, h.game.Choose(0))
	require.NoError(t, h.game.Choose(0))

	h.driver.AdvanceBy(5)
	require.Equal(t, 5, h.lastHour().Hour)

	require.NoError(t, h.game.Resign())
	assert.Equal(t, PhasePaused, h.game.Phase())
	assert.False(t, h.driver.Armed())

	// Time does not move while paused.
	h.driver.AdvanceBy(3)
	assert.Len(t, h.hours, 5)

	m := h.presenter.lastModal()
	assert.Equal(t, resignTitle("Greg Abutt"), m.Title)
	assert.Contains(t, m.Body, "Dan Patwreck")
	require.Len(t, m.Options, 1)

	require.NoError(t, h.game.Choose(0))
	assert.Equal(t, PhaseRunning, h.game.Phase())

	h.driver.AdvanceBy(1)
	assert.Equal(t, 6, h.lastHour().Hour)
	assert.Equal(t, 0, h.lastHour().Day)
	assert.Equal(t, "Dan Patwreck", h.lastHour().Governor)
}

func TestResignOnlyWhileRunning(t *testing.T) {
	h, _ := newStormHarness(t)
	assert.ErrorIs(t, h.game.Resign(), ErrNotRunning)

	require.NoError(t, h.game.Start())
	assert.ErrorIs(t, h.game.Resign(), ErrNotRunning)

	require.NoError(t, h.game.Choose(0))
	require.NoError(t, h.game.Resign())
	assert.ErrorIs(t, h.game.Resign(), ErrNotRunning)
	assert.Equal(t, 1, h.game.State().Policy.GovernorIndex)
}

func TestDonationCadence(t *testing.T) {
	h, _ := newStormHarness(t)
	require.NoError(t, h.game.Start())
	require.NoError(t, h.game.Choose(0))

	h.driver.AdvanceBy(10)
	assert.Equal(t, 10, h.ledger.Count(donations.Gazz))
	assert.Equal(t, 10, h.ledger.Count(donations.Grassroots))
	assert.Equal(t, 10, h.ledger.Count(donations.Hardship))
	assert.Equal(t, 0, h.ledger.Count(donations.Generator))

	h.driver.AdvanceBy(engine.HoursPerDay - 10)
	assert.Equal(t, engine.HoursPerDay, h.ledger.Count(donations.Gazz))
	assert.Equal(t, 1, h.ledger.Count(donations.Generator))

	require.Len(t, h.saves, 1)
	assert.Equal(t, engine.Time{Day: 1, Hour: 0}, h.saves[0].Time)
	assert.Equal(t, h.grid.Generators(), h.saves[0].Generators)
}

func TestHourlyEffectsOrder(t *testing.T) {
	h, _ := newStormHarness(t)
	require.NoError(t, h.game.Start())
	require.NoError(t, h.game.Choose(0))

	h.driver.AdvanceBy(1)

	entries := h.ledger.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, donations.Energy, entries[0].Source)
	assert.Equal(t, donations.Gazz, entries[1].Source)
	assert.Equal(t, donations.Hardship, entries[2].Source)
	assert.Equal(t, donations.Grassroots, entries[3].Source)
	assert.Equal(t, politics.Purple, entries[3].Faction)
}

func TestRosterRotationWrapsAfterResignations(t *testing.T) {
	h, _ := newStormHarness(t)
	require.NoError(t, h.game.Start())
	require.NoError(t, h.game.Choose(0))

	n := len(politics.DefaultGovernors)
	for i := 1; i <= 2*n+2; i++ {
		require.NoError(t, h.game.Resign())
		require.NoError(t, h.game.Choose(0))
		assert.Equal(t, i%n, h.game.State().Policy.GovernorIndex)
	}
	assert.Equal(t, politics.DefaultGovernors[2], h.game.Snapshot().Governor)
}

func TestTickBeforeDecisionPanics(t *testing.T) {
	h, _ := newStormHarness(t)
	assert.PanicsWithValue(t, ErrPolicyUnset, func() { h.game.onHour(0, 1) })
}

func TestReadModelTracksClockFace(t *testing.T) {
	h, _ := newStormHarness(t)
	require.NoError(t, h.game.Start())
	require.NoError(t, h.game.Choose(0))

	before := h.presenter.refreshes
	h.driver.Step(1)
	assert.Greater(t, h.presenter.refreshes, before)
	assert.Equal(t, "Day 1, 00:30", h.presenter.last.Date)

	rm := h.game.Snapshot()
	assert.Equal(t, "Greg Abutt", rm.Governor)
	assert.Equal(t, "Orange", rm.Incumbent)
	assert.Equal(t, "$1,000,000", rm.Display.OrangeFunds)
	assert.Equal(t, 29_000_000, rm.Population)
	assert.GreaterOrEqual(t, rm.GridStability, 0.0)
	assert.LessOrEqual(t, rm.GridStability, 100.0)
}

func TestSaveAndRestore(t *testing.T) {
	h, _ := newStormHarness(t)
	require.NoError(t, h.game.Start())
	require.NoError(t, h.game.Choose(0))
	h.driver.AdvanceBy(30)
	require.NoError(t, h.game.Resign())
	saved := h.game.Save()

	r, w := newStormHarness(t)
	require.NoError(t, r.game.Restore(saved))
	assert.Equal(t, PhasePaused, r.game.Phase())
	assert.Equal(t, []int{0}, w.regenerated, "day 1 forecast is not issued until 09:00")

	before := h.game.Snapshot()
	after := r.game.Snapshot()
	assert.Equal(t, before.Date, after.Date)
	assert.Equal(t, before.Governor, after.Governor)
	assert.Equal(t, before.GeneratorCount, after.GeneratorCount)
	assert.True(t, before.OrangeFunds.Equal(after.OrangeFunds))
	assert.True(t, before.PurpleFunds.Equal(after.PurpleFunds))
	assert.Equal(t, before.Approval, after.Approval)
	assert.Equal(t, before.TemperatureF, after.TemperatureF)

	require.NoError(t, r.game.Start())
	assert.Equal(t, welcomeBackTitle, r.presenter.lastModal().Title)
	require.NoError(t, r.game.Choose(0))
	assert.Equal(t, PhaseRunning, r.game.Phase())

	r.driver.AdvanceBy(1)
	assert.Equal(t, 7, r.lastHour().Hour)
	assert.Equal(t, 1, r.lastHour().Day)

	assert.ErrorIs(t, r.game.Restore(saved), ErrAlreadyStarted)
}

func TestRestoreUndecidedSessionAsksAgain(t *testing.T) {
	h, _ := newStormHarness(t)
	require.NoError(t, h.game.Start())
	saved := h.game.Save()

	r, _ := newStormHarness(t)
	require.NoError(t, r.game.Restore(saved))
	assert.Equal(t, PhaseIntro, r.game.Phase())
	require.NoError(t, r.game.Start())
	assert.Equal(t, winterizeTitle, r.presenter.lastModal().Title)
}
