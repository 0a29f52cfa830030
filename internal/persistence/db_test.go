package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/goobernor/internal/donations"
	"github.com/talgya/goobernor/internal/engine"
	"github.com/talgya/goobernor/internal/game"
	"github.com/talgya/goobernor/internal/politics"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "goobernor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSession(t *testing.T) game.SavedSession {
	t.Helper()

	l := donations.NewLedger(donations.DefaultConfig())
	require.NoError(t, l.ApplyEnergyDonations(false, politics.Orange))
	for h := 0; h < 5; h++ {
		l.ApplyGazzDonations(61_234.5, politics.Orange)
		l.RecordHardship(1_000_000, 29_000_000)
		l.ApplyGrassrootsDonations(29_000_000, l.Approval(), politics.Orange)
	}

	return game.SavedSession{
		ID:   "session-1",
		Seed: 1234,
		Time: engine.Time{Day: 1, Hour: 5, Minute: 30},
		Policy: game.Policy{
			Decided:       true,
			GovernorIndex: 2,
			Incumbent:     politics.Orange,
		},
		Phase:      game.PhaseRunning,
		Generators: 4321,
		LastUsage:  61_234.5,
		LastTempF:  18.25,
		StartedAt:  time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC),
		Entries:    l.Entries(),
	}
}

func TestSaveAndLoadSession(t *testing.T) {
	db := openTestDB(t)
	saved := sampleSession(t)

	require.NoError(t, db.SaveSession(saved))

	got, err := db.LoadSession(saved.ID)
	require.NoError(t, err)

	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, saved.Seed, got.Seed)
	assert.Equal(t, saved.Time, got.Time)
	assert.Equal(t, saved.Policy, got.Policy)
	assert.Equal(t, saved.Phase, got.Phase)
	assert.Equal(t, saved.Generators, got.Generators)
	assert.Equal(t, saved.LastTempF, got.LastTempF)
	assert.True(t, saved.StartedAt.Equal(got.StartedAt))
	require.Len(t, got.Entries, len(saved.Entries))

	// The reloaded journal rebuilds the same pools.
	a, err := donations.Replay(donations.DefaultConfig(), saved.Entries)
	require.NoError(t, err)
	b, err := donations.Replay(donations.DefaultConfig(), got.Entries)
	require.NoError(t, err)
	for _, f := range politics.Factions {
		assert.True(t, a.FactionTotal(f).Equal(b.FactionTotal(f)), f.String())
	}
	assert.Equal(t, a.Approval(), b.Approval())
}

func TestSaveSessionAppendsOnlyNewEntries(t *testing.T) {
	db := openTestDB(t)
	saved := sampleSession(t)
	require.NoError(t, db.SaveSession(saved))

	l, err := donations.Replay(donations.DefaultConfig(), saved.Entries)
	require.NoError(t, err)
	l.ApplyGeneratorDonations(10, politics.Orange)
	saved.Entries = l.Entries()
	saved.Time = engine.Time{Day: 2}
	require.NoError(t, db.SaveSession(saved))
	require.NoError(t, db.SaveSession(saved))

	got, err := db.LoadSession(saved.ID)
	require.NoError(t, err)
	assert.Len(t, got.Entries, len(saved.Entries))
	assert.Equal(t, engine.Time{Day: 2}, got.Time)
	assert.Equal(t, donations.Generator, got.Entries[len(got.Entries)-1].Source)
}

func TestLatestSession(t *testing.T) {
	db := openTestDB(t)

	_, err := db.LatestSession()
	assert.ErrorIs(t, err, ErrNoSession)

	first := sampleSession(t)
	require.NoError(t, db.SaveSession(first))
	second := sampleSession(t)
	second.ID = "session-2"
	require.NoError(t, db.SaveSession(second))

	got, err := db.LatestSession()
	require.NoError(t, err)
	assert.Equal(t, "session-2", got.ID)

	_, err = db.LoadSession("missing")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestHourlyHistory(t *testing.T) {
	db := openTestDB(t)

	for h := 1; h <= 30; h++ {
		require.NoError(t, db.RecordHour(game.HourRecord{
			SessionID:    "s",
			Day:          h / 24,
			Hour:         h % 24,
			TemperatureF: float64(40 - h),
			Governor:     "Greg Abutt",
		}))
	}
	require.NoError(t, db.RecordHour(game.HourRecord{SessionID: "other", Hour: 1, Governor: "x"}))

	recs, err := db.HourlyHistory("s", 5)
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.Equal(t, 26%24, recs[0].Hour)
	assert.Equal(t, 30%24, recs[4].Hour)
	assert.Equal(t, 1, recs[4].Day)
	assert.Equal(t, 10.0, recs[4].TemperatureF)

	all, err := db.HourlyHistory("s", 100)
	require.NoError(t, err)
	assert.Len(t, all, 30)
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveMeta("k", "v1"))
	require.NoError(t, db.SaveMeta("k", "v2"))

	v, err := db.GetMeta("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}
