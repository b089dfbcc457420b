package logging

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by ByRun for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// #region schema
const refinementLogSchema = `
CREATE TABLE IF NOT EXISTS refinement_log (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL,
    session_id    TEXT,
    style         TEXT NOT NULL,
    audience      TEXT NOT NULL,
    decision      TEXT NOT NULL,
    reason        TEXT,
    initial_score REAL NOT NULL,
    final_score   REAL NOT NULL,
    record_json   TEXT,
    created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_refinement_log_session ON refinement_log(session_id);
`

// EnsureSchema creates the refinement_log table if it does not exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(refinementLogSchema); err != nil {
		return fmt.Errorf("init refinement_log: %w", err)
	}
	return nil
}
// #endregion schema

// #region log-decision
// LogDecision writes a decision entry to the refinement_log table.
func LogDecision(db *sql.DB, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO refinement_log (run_id, session_id, style, audience, decision, reason, initial_score, final_score, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		nullIfEmpty(entry.SessionID),
		entry.Style,
		entry.Audience,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.InitialScore,
		entry.FinalScore,
		nullIfEmpty(entry.RecordJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region recent
// Recent returns the newest n entries, newest first. RecordJSON is not loaded.
func Recent(db *sql.DB, n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := db.Query(
		`SELECT run_id, COALESCE(session_id, ''), style, audience, decision, COALESCE(reason, ''),
		        initial_score, final_score, created_at
		 FROM refinement_log ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query refinement_log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.RunID, &e.SessionID, &e.Style, &e.Audience, &e.Decision, &e.Reason,
			&e.InitialScore, &e.FinalScore, &created); err != nil {
			return nil, fmt.Errorf("scan refinement_log: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ByRun returns the entry for runID including its RecordJSON.
func ByRun(db *sql.DB, runID string) (Entry, error) {
	var e Entry
	var created string
	err := db.QueryRow(
		`SELECT run_id, COALESCE(session_id, ''), style, audience, decision, COALESCE(reason, ''),
		        initial_score, final_score, COALESCE(record_json, ''), created_at
		 FROM refinement_log WHERE run_id = ? ORDER BY id DESC LIMIT 1`, runID).
		Scan(&e.RunID, &e.SessionID, &e.Style, &e.Audience, &e.Decision, &e.Reason,
			&e.InitialScore, &e.FinalScore, &e.RecordJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrRunNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("query run %s: %w", runID, err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return e, nil
}
// #endregion recent

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
