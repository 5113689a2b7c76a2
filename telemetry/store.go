// Copyright 2026 The Muster Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"fmt"
	"log/slog"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// TickRecord is one row of per-tick metrics.
type TickRecord struct {
	RunID         string
	Tick          int64
	SimTime       float64
	Mission       float64
	Formation     float64
	Communication float64
	TargetsFound  int
	TotalTargets  int
	AlphaID       int // -1 while no alpha is elected
}

// RunSummary aggregates a completed run.
type RunSummary struct {
	RunID        string
	Ticks        int64
	SimTime      float64
	Mission      float64 // final value
	MeanMission  float64
	TargetsFound int
	TotalTargets int
}

const schema = `
CREATE TABLE IF NOT EXISTS tick_metrics (
    run_id        TEXT NOT NULL,
    tick          INTEGER NOT NULL,
    sim_time      REAL NOT NULL,
    mission       REAL NOT NULL,
    formation     REAL NOT NULL,
    communication REAL NOT NULL,
    targets_found INTEGER NOT NULL,
    total_targets INTEGER NOT NULL,
    alpha_id      INTEGER NOT NULL,
    PRIMARY KEY (run_id, tick)
);
`

// Store records tick metrics in SQLite. The scheduler is the single
// writer, so one connection suffices; a mutex guards it against query
// calls from other goroutines.
type Store struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	logger *slog.Logger
}

// OpenStore opens (creating if needed) the metrics database at path.
// Use ":memory:" for an ephemeral store in tests.
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("opening metrics database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating metrics schema: %w", err)
	}

	return &Store{conn: conn, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// RecordTick inserts one metrics row.
func (s *Store) RecordTick(record TickRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("metrics store is closed")
	}

	err := sqlitex.Execute(s.conn, `
		INSERT INTO tick_metrics
		    (run_id, tick, sim_time, mission, formation, communication,
		     targets_found, total_targets, alpha_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				record.RunID, record.Tick, record.SimTime,
				record.Mission, record.Formation, record.Communication,
				record.TargetsFound, record.TotalTargets, record.AlphaID,
			},
		})
	if err != nil {
		return fmt.Errorf("recording tick %d: %w", record.Tick, err)
	}
	return nil
}

// LatestTick returns the most recent row for a run. The boolean is
// false when the run has no rows.
func (s *Store) LatestTick(runID string) (TickRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return TickRecord{}, false, fmt.Errorf("metrics store is closed")
	}

	var record TickRecord
	found := false
	err := sqlitex.Execute(s.conn, `
		SELECT run_id, tick, sim_time, mission, formation, communication,
		       targets_found, total_targets, alpha_id
		FROM tick_metrics WHERE run_id = ? ORDER BY tick DESC LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{runID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				record = TickRecord{
					RunID:         stmt.ColumnText(0),
					Tick:          stmt.ColumnInt64(1),
					SimTime:       stmt.ColumnFloat(2),
					Mission:       stmt.ColumnFloat(3),
					Formation:     stmt.ColumnFloat(4),
					Communication: stmt.ColumnFloat(5),
					TargetsFound:  stmt.ColumnInt(6),
					TotalTargets:  stmt.ColumnInt(7),
					AlphaID:       stmt.ColumnInt(8),
				}
				return nil
			},
		})
	if err != nil {
		return TickRecord{}, false, fmt.Errorf("querying latest tick: %w", err)
	}
	return record, found, nil
}

// Summarize aggregates a run: tick count, final simulated time, final
// and mean mission success, and the final target tally.
func (s *Store) Summarize(runID string) (RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return RunSummary{}, fmt.Errorf("metrics store is closed")
	}

	summary := RunSummary{RunID: runID}
	err := sqlitex.Execute(s.conn, `
		SELECT COUNT(*), MAX(sim_time), AVG(mission)
		FROM tick_metrics WHERE run_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{runID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				summary.Ticks = stmt.ColumnInt64(0)
				summary.SimTime = stmt.ColumnFloat(1)
				summary.MeanMission = stmt.ColumnFloat(2)
				return nil
			},
		})
	if err != nil {
		return RunSummary{}, fmt.Errorf("summarizing run: %w", err)
	}
	if summary.Ticks == 0 {
		return summary, nil
	}

	err = sqlitex.Execute(s.conn, `
		SELECT mission, targets_found, total_targets
		FROM tick_metrics WHERE run_id = ? ORDER BY tick DESC LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{runID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				summary.Mission = stmt.ColumnFloat(0)
				summary.TargetsFound = stmt.ColumnInt(1)
				summary.TotalTargets = stmt.ColumnInt(2)
				return nil
			},
		})
	if err != nil {
		return RunSummary{}, fmt.Errorf("summarizing run: %w", err)
	}
	return summary, nil
}
