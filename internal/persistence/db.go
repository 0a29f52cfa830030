// Package persistence provides SQLite-based session storage: resumable
// saves, the donation journal and the hourly history.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/talgya/goobernor/internal/donations"
	"github.com/talgya/goobernor/internal/engine"
	"github.com/talgya/goobernor/internal/game"
	"github.com/talgya/goobernor/internal/politics"
)

// ErrNoSession is returned when no saved session matches.
var ErrNoSession = errors.New("no saved session")

const metaLastSession = "last_session"

// DB wraps a SQLite connection for session persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		day INTEGER NOT NULL,
		hour INTEGER NOT NULL,
		minute INTEGER NOT NULL,
		decided INTEGER NOT NULL,
		winterized INTEGER NOT NULL,
		governor_index INTEGER NOT NULL,
		incumbent TEXT NOT NULL,
		phase TEXT NOT NULL,
		generators INTEGER NOT NULL,
		last_usage REAL NOT NULL,
		last_temp_f REAL NOT NULL,
		started_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS donation_entries (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		source TEXT NOT NULL,
		faction TEXT NOT NULL,
		amount TEXT NOT NULL,
		approval REAL NOT NULL,
		PRIMARY KEY (session_id, seq)
	);

	CREATE TABLE IF NOT EXISTS hourly_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		hour INTEGER NOT NULL,
		temperature_f REAL NOT NULL,
		usage REAL NOT NULL,
		power_ratio REAL NOT NULL,
		generator_demand INTEGER NOT NULL,
		generator_count INTEGER NOT NULL,
		population_at_risk INTEGER NOT NULL,
		approval REAL NOT NULL,
		governor TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_session ON hourly_history(session_id, id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type sessionRow struct {
	ID            string  `db:"id"`
	Seed          int64   `db:"seed"`
	Day           int     `db:"day"`
	Hour          int     `db:"hour"`
	Minute        int     `db:"minute"`
	Decided       bool    `db:"decided"`
	Winterized    bool    `db:"winterized"`
	GovernorIndex int     `db:"governor_index"`
	Incumbent     string  `db:"incumbent"`
	Phase         string  `db:"phase"`
	Generators    int     `db:"generators"`
	LastUsage     float64 `db:"last_usage"`
	LastTempF     float64 `db:"last_temp_f"`
	StartedAt     string  `db:"started_at"`
	UpdatedAt     string  `db:"updated_at"`
}

type entryRow struct {
	Seq      int64   `db:"seq"`
	Source   string  `db:"source"`
	Faction  string  `db:"faction"`
	Amount   string  `db:"amount"`
	Approval float64 `db:"approval"`
}

// SaveSession writes a session snapshot. The donation journal is append-only,
// so only entries newer than the stored ones are inserted.
func (db *DB) SaveSession(s game.SavedSession) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := sessionRow{
		ID:            s.ID,
		Seed:          s.Seed,
		Day:           s.Time.Day,
		Hour:          s.Time.Hour,
		Minute:        s.Time.Minute,
		Decided:       s.Policy.Decided,
		Winterized:    s.Policy.GridWinterized,
		GovernorIndex: s.Policy.GovernorIndex,
		Incumbent:     s.Policy.Incumbent.String(),
		Phase:         s.Phase.String(),
		Generators:    s.Generators,
		LastUsage:     s.LastUsage,
		LastTempF:     s.LastTempF,
		StartedAt:     s.StartedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	_, err = tx.NamedExec(`INSERT OR REPLACE INTO sessions
		(id, seed, day, hour, minute, decided, winterized, governor_index, incumbent,
		 phase, generators, last_usage, last_temp_f, started_at, updated_at)
		VALUES (:id, :seed, :day, :hour, :minute, :decided, :winterized, :governor_index, :incumbent,
		 :phase, :generators, :last_usage, :last_temp_f, :started_at, :updated_at)`, row)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", s.ID, err)
	}

	var stored int64
	if err := tx.Get(&stored, "SELECT COALESCE(MAX(seq), 0) FROM donation_entries WHERE session_id = ?", s.ID); err != nil {
		return fmt.Errorf("journal head %s: %w", s.ID, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO donation_entries
		(session_id, seq, source, faction, amount, approval) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range s.Entries {
		if e.Seq <= stored {
			continue
		}
		if _, err := stmt.Exec(s.ID, e.Seq, e.Source.String(), e.Faction.String(), e.Amount.String(), e.Approval); err != nil {
			return fmt.Errorf("insert entry %d: %w", e.Seq, err)
		}
		inserted++
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO session_meta (key, value) VALUES (?, ?)", metaLastSession, s.ID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("session saved", "session", s.ID, "time", s.Time.String(), "new_entries", inserted)
	return nil
}

// LoadSession reads a saved session and its full donation journal.
func (db *DB) LoadSession(id string) (game.SavedSession, error) {
	var row sessionRow
	if err := db.conn.Get(&row, "SELECT * FROM sessions WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.SavedSession{}, fmt.Errorf("%w: %s", ErrNoSession, id)
		}
		return game.SavedSession{}, fmt.Errorf("load session %s: %w", id, err)
	}

	incumbent, err := politics.ParseFaction(row.Incumbent)
	if err != nil {
		return game.SavedSession{}, fmt.Errorf("load session %s: %w", id, err)
	}
	phase, err := game.ParsePhase(row.Phase)
	if err != nil {
		return game.SavedSession{}, fmt.Errorf("load session %s: %w", id, err)
	}
	started, err := time.Parse(time.RFC3339Nano, row.StartedAt)
	if err != nil {
		return game.SavedSession{}, fmt.Errorf("load session %s: started_at: %w", id, err)
	}

	entries, err := db.loadEntries(id)
	if err != nil {
		return game.SavedSession{}, err
	}

	return game.SavedSession{
		ID:   row.ID,
		Seed: row.Seed,
		Time: engine.Time{Day: row.Day, Hour: row.Hour, Minute: row.Minute},
		Policy: game.Policy{
			Decided:        row.Decided,
			GridWinterized: row.Winterized,
			GovernorIndex:  row.GovernorIndex,
			Incumbent:      incumbent,
		},
		Phase:      phase,
		Generators: row.Generators,
		LastUsage:  row.LastUsage,
		LastTempF:  row.LastTempF,
		StartedAt:  started,
		Entries:    entries,
	}, nil
}

// LatestSession loads the most recently saved session.
func (db *DB) LatestSession() (game.SavedSession, error) {
	id, err := db.GetMeta(metaLastSession)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.SavedSession{}, ErrNoSession
		}
		return game.SavedSession{}, err
	}
	return db.LoadSession(id)
}

func (db *DB) loadEntries(id string) ([]donations.Entry, error) {
	var rows []entryRow
	err := db.conn.Select(&rows,
		"SELECT seq, source, faction, amount, approval FROM donation_entries WHERE session_id = ? ORDER BY seq",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load entries %s: %w", id, err)
	}

	entries := make([]donations.Entry, 0, len(rows))
	for _, r := range rows {
		src, err := donations.ParseSource(r.Source)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", r.Seq, err)
		}
		faction, err := politics.ParseFaction(r.Faction)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", r.Seq, err)
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("entry %d: amount: %w", r.Seq, err)
		}
		entries = append(entries, donations.Entry{
			Seq:      r.Seq,
			Source:   src,
			Faction:  faction,
			Amount:   amount,
			Approval: r.Approval,
		})
	}
	return entries, nil
}

// RecordHour appends one processed hour to the history.
func (db *DB) RecordHour(rec game.HourRecord) error {
	_, err := db.conn.NamedExec(`INSERT INTO hourly_history
		(session_id, day, hour, temperature_f, usage, power_ratio, generator_demand,
		 generator_count, population_at_risk, approval, governor)
		VALUES (:session_id, :day, :hour, :temperature_f, :usage, :power_ratio, :generator_demand,
		 :generator_count, :population_at_risk, :approval, :governor)`, rec)
	return err
}

// HourlyHistory returns up to limit of the session's most recent hours,
// oldest first.
func (db *DB) HourlyHistory(sessionID string, limit int) ([]game.HourRecord, error) {
	var recs []game.HourRecord
	err := db.conn.Select(&recs,
		`SELECT session_id, day, hour, temperature_f, usage, power_ratio, generator_demand,
		        generator_count, population_at_risk, approval, governor
		 FROM hourly_history WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// SaveMeta stores a key-value pair in session metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO session_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM session_meta WHERE key = ?", key)
	return value, err
}
