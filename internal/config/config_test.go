package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/goobernor/internal/politics"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "goobernor.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, ModeHTTP, cfg.Mode)
	assert.True(t, cfg.Resume)
	assert.Zero(t, cfg.Seed)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GOOBERNOR_PORT", "9090")
	t.Setenv("GOOBERNOR_SEED", "77")
	t.Setenv("GOOBERNOR_TICK_INTERVAL", "2s")
	t.Setenv("GOOBERNOR_MODE", "console")
	t.Setenv("GOOBERNOR_RESUME", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, int64(77), cfg.Seed)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.Equal(t, ModeConsole, cfg.Mode)
	assert.False(t, cfg.Resume)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("GOOBERNOR_PORT", "not-a-port")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")

	t.Setenv("GOOBERNOR_PORT", "8080")
	t.Setenv("GOOBERNOR_MODE", "gui")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("GOOBERNOR_MODE", "http")
	t.Setenv("GOOBERNOR_LOG_LEVEL", "loud")
	_, err = Load()
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestDefaultTuningIsValid(t *testing.T) {
	tun, err := LoadTuning("")
	require.NoError(t, err)
	require.NoError(t, tun.Validate())

	r, err := tun.Roster()
	require.NoError(t, err)
	assert.Equal(t, len(politics.DefaultGovernors), r.Len())
	assert.Equal(t, politics.Orange, tun.IncumbentFaction())
}

func TestTuningFileOverridesNamedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
clock:
  ticks_per_hour: 12
grid:
  capacity_mw: 95000
donations:
  energy_skip_reward: 2000000
governors: [Alpha, Beta]
incumbent: Purple
`), 0o644))

	tun, err := LoadTuning(path)
	require.NoError(t, err)

	def := DefaultTuning()
	assert.Equal(t, 12, tun.Clock.TicksPerHour)
	assert.Equal(t, 95000.0, tun.Grid.CapacityMW)
	assert.Equal(t, def.Grid.Population, tun.Grid.Population, "unnamed keys keep defaults")
	assert.Equal(t, 2_000_000.0, tun.Donations.EnergySkipReward)
	assert.Equal(t, def.Donations.GazzRate, tun.Donations.GazzRate)
	assert.Equal(t, def.Weather, tun.Weather)
	assert.Equal(t, []string{"Alpha", "Beta"}, tun.Governors)
	assert.Equal(t, politics.Purple, tun.IncumbentFaction())
}

func TestTuningFileErrors(t *testing.T) {
	_, err := LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("governors: []\n"), 0o644))
	_, err = LoadTuning(path)
	assert.ErrorIs(t, err, politics.ErrEmptyRoster)

	require.NoError(t, os.WriteFile(path, []byte("clock: [oops\n"), 0o644))
	_, err = LoadTuning(path)
	assert.Error(t, err)
}
