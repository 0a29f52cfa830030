// Command goobernor runs the Tegzit winter storm: one governor, one grid,
// one cold week, and a lot of donations.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/talgya/goobernor/internal/api"
	"github.com/talgya/goobernor/internal/config"
	"github.com/talgya/goobernor/internal/console"
	"github.com/talgya/goobernor/internal/donations"
	"github.com/talgya/goobernor/internal/engine"
	"github.com/talgya/goobernor/internal/entropy"
	"github.com/talgya/goobernor/internal/game"
	"github.com/talgya/goobernor/internal/grid"
	"github.com/talgya/goobernor/internal/persistence"
	"github.com/talgya/goobernor/internal/weather"
)

func main() {
	if err := run(); err != nil {
		slog.Error("goobernor stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		return err
	}
	roster, err := tuning.Roster()
	if err != nil {
		return err
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Load or start a session ──────────────────────────────────────
	var saved *game.SavedSession
	if cfg.Resume {
		s, err := db.LatestSession()
		switch {
		case err == nil:
			saved = &s
		case errors.Is(err, persistence.ErrNoSession):
			slog.Info("no saved session found, starting fresh")
		default:
			return err
		}
	}

	var sessionID string
	var seed int64
	if saved != nil {
		sessionID, seed = saved.ID, saved.Seed
	} else {
		seed = entropy.Seed(ctx, entropy.NewClient(cfg.RandomOrgKey), cfg.Seed)
	}

	// ── Presenter ────────────────────────────────────────────────────
	var presenter game.Presenter
	var hub *api.Hub
	var term *console.Console
	if cfg.Mode == config.ModeConsole {
		term = console.New(os.Stdout)
		presenter = term
	} else {
		hub = api.NewHub()
		go hub.Run(ctx)
		presenter = api.NewPresenter(hub)
	}

	g := game.New(game.Options{
		SessionID:    sessionID,
		Seed:         seed,
		Driver:       engine.NewRealtimeDriver(nil, cfg.TickInterval),
		TicksPerHour: tuning.Clock.TicksPerHour,
		StartHour:    tuning.Clock.StartHour,
		Weather:      weather.NewStorm(tuning.Weather, seed),
		Grid:         grid.New(tuning.Grid),
		Ledger:       donations.NewLedger(tuning.Donations),
		Roster:       roster,
		Incumbent:    tuning.IncumbentFaction(),
		Presenter:    presenter,
		Hooks: game.Hooks{
			OnHourClose: func(rec game.HourRecord) {
				if err := db.RecordHour(rec); err != nil {
					slog.Error("hour record failed", "error", err)
				}
			},
			OnDayClose: func(s game.SavedSession) {
				if err := db.SaveSession(s); err != nil {
					slog.Error("daily save failed", "error", err)
				}
			},
		},
	})

	if saved != nil {
		if err := g.Restore(*saved); err != nil {
			return err
		}
	} else if err := db.SaveSession(g.Save()); err != nil {
		slog.Error("initial save failed", "error", err)
	}

	if err := g.Start(); err != nil {
		return err
	}

	var runErr error
	if term != nil {
		fmt.Println("Type help for commands. Ctrl+C or quit saves and exits.")
		runErr = term.Run(ctx, os.Stdin, g)
	} else {
		limiter := api.NewRateLimiter(nil, 5, time.Minute)
		defer limiter.Close()

		srv := &api.Server{
			Game:          g,
			History:       db,
			Hub:           hub,
			Port:          cfg.Port,
			AdminKey:      cfg.AdminKey,
			ResignLimiter: limiter,
		}
		if cfg.AdminKey == "" {
			slog.Warn("GOOBERNOR_ADMIN_KEY not set, anyone can play this session")
		}
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
		runErr = srv.ListenAndServe(ctx)
	}

	g.Stop()
	slog.Info("final save...")
	if err := db.SaveSession(g.Save()); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("The storm is paused. Session saved.")
	return runErr
}

// setupLogging installs the default logger. Console play keeps stdout for
// the game and logs to stderr in charm's format.
func setupLogging(cfg config.Config) {
	level, _ := config.ParseLevel(cfg.LogLevel)

	var handler slog.Handler
	if cfg.Mode == config.ModeConsole {
		handler = log.NewWithOptions(os.Stderr, log.Options{
			Level:           log.Level(level),
			ReportTimestamp: true,
			Prefix:          "goobernor",
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
