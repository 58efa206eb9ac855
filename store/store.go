// Package store keeps evaluation results in a SQLite database so runs can be
// compared after the fact.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
	"github.com/ercarpio/SG-CNN/orchestrator"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	startedAt  INTEGER NOT NULL,
	endedAt    INTEGER NOT NULL,
	files      INTEGER NOT NULL,
	skipped    INTEGER NOT NULL,
	audio      TEXT NOT NULL,
	video      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	runId      TEXT NOT NULL,
	name       TEXT NOT NULL,
	frames     INTEGER NOT NULL,
	processed  INTEGER NOT NULL,
	terminated INTEGER NOT NULL,
	rounds     INTEGER NOT NULL,
	queries    INTEGER NOT NULL,
	audio      TEXT NOT NULL,
	video      TEXT NOT NULL,
	PRIMARY KEY (runId, name)
);
CREATE TABLE IF NOT EXISTS predictions (
	runId      TEXT NOT NULL,
	session    TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	event      TEXT NOT NULL,
	spanStart  INTEGER NOT NULL,
	spanEnd    INTEGER NOT NULL,
	frame      INTEGER NOT NULL,
	PRIMARY KEY (runId, session, seq)
);
`

var _ orchestrator.ResultStore = (*Store)(nil)

// Store writes run, session and prediction rows.
type Store struct {
	db *sql.DB
}

// Run is a stored run summary.
type Run struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Files     int
	Skipped   int
	Audio     orchestrator.ConfusionMatrix
	Video     orchestrator.ConfusionMatrix
}

// Open opens or creates the database at path and applies the schema. Use
// ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records the run summary, replacing a previous row with the same id.
func (s *Store) SaveRun(ctx context.Context, r *orchestrator.RunReport) error {
	audio, err := json.Marshal(r.Audio)
	if err != nil {
		return err
	}
	video, err := json.Marshal(r.Video)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, startedAt, endedAt, files, skipped, audio, video)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.StartedAt.UnixMilli(), r.EndedAt.UnixMilli(), r.Files, r.Skipped, string(audio), string(video))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// SaveSession records one session and its confirmed events in a single
// transaction.
func (s *Store) SaveSession(ctx context.Context, runID string, r *orchestrator.SessionReport) error {
	audio, err := json.Marshal(r.Audio)
	if err != nil {
		return err
	}
	video, err := json.Marshal(r.Video)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (runId, name, frames, processed, terminated, rounds, queries, audio, video)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, r.Name, r.Frames, r.Processed, r.Terminated, r.Rounds, r.Queries, string(audio), string(video)); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM predictions WHERE runId = ? AND session = ?`, runID, r.Name); err != nil {
		return fmt.Errorf("clear predictions: %w", err)
	}
	for i, p := range r.Predicted {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO predictions (runId, session, seq, event, spanStart, spanEnd, frame)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, r.Name, i, string(p.Event), p.Span.Start, p.Span.End, p.Frame); err != nil {
			return fmt.Errorf("insert prediction: %w", err)
		}
	}
	return tx.Commit()
}

// Runs returns every stored run, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, startedAt, endedAt, files, skipped, audio, video
		FROM runs
		ORDER BY startedAt DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, ended int64
		var audio, video string
		if err := rows.Scan(&r.ID, &started, &ended, &r.Files, &r.Skipped, &audio, &video); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.EndedAt = time.UnixMilli(ended)
		if err := json.Unmarshal([]byte(audio), &r.Audio); err != nil {
			return nil, fmt.Errorf("decode audio matrix: %w", err)
		}
		if err := json.Unmarshal([]byte(video), &r.Video); err != nil {
			return nil, fmt.Errorf("decode video matrix: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Predictions returns the confirmed events of one session in confirmation
// order.
func (s *Store) Predictions(ctx context.Context, runID, session string) ([]orchestrator.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event, spanStart, spanEnd, frame
		FROM predictions
		WHERE runId = ? AND session = ?
		ORDER BY seq ASC
	`, runID, session)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []orchestrator.Prediction
	for rows.Next() {
		var p orchestrator.Prediction
		var event string
		var start, end int
		if err := rows.Scan(&event, &start, &end, &p.Frame); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.Event = events.Name(event)
		p.Span = interval.New(start, end)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Sessions lists the session names stored for a run.
func (s *Store) Sessions(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sessions WHERE runId = ? ORDER BY name`, runID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
