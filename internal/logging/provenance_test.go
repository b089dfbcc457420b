package logging

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := Entry{
		RunID:        "r1",
		SessionID:    "s1",
		Style:        "爆款",
		Audience:     "年轻女性",
		Decision:     "revised",
		Reason:       "0.620 -> 0.910",
		InitialScore: 0.62,
		FinalScore:   0.91,
		RecordJSON:   `{"run_id":"r1"}`,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM refinement_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var runID, decision string
	var final float64
	db.QueryRow("SELECT run_id, decision, final_score FROM refinement_log").Scan(&runID, &decision, &final)
	if runID != "r1" {
		t.Errorf("expected run_id 'r1', got %q", runID)
	}
	if decision != "revised" {
		t.Errorf("expected decision 'revised', got %q", decision)
	}
	if final != 0.91 {
		t.Errorf("expected final score 0.91, got %v", final)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogDecision(db, Entry{RunID: "r2", Style: "简约", Audience: "通用", Decision: "accepted"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM refinement_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogDecision(db, Entry{RunID: "r3", Style: "高端", Audience: "通用", Decision: "kept_original"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sessionID, reason, record sql.NullString
	db.QueryRow("SELECT session_id, reason, record_json FROM refinement_log").Scan(&sessionID, &reason, &record)
	if sessionID.Valid {
		t.Error("expected NULL session_id for empty string")
	}
	if reason.Valid {
		t.Error("expected NULL reason for empty string")
	}
	if record.Valid {
		t.Error("expected NULL record_json for empty string")
	}
}

func TestLogDecision_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogDecision(db, Entry{RunID: "r4", Decision: "accepted"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	for _, id := range []string{"a", "b", "c"} {
		if err := LogDecision(db, Entry{RunID: id, Style: "爆款", Audience: "通用", Decision: "accepted"}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := Recent(db, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].RunID != "c" || got[1].RunID != "b" {
		t.Errorf("unexpected order: %+v", got)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not parsed")
	}
}

func TestByRun(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogDecision(db, Entry{RunID: "r1", SessionID: "s1", Style: "简约", Audience: "学生", Decision: "revised", RecordJSON: `{"run_id":"r1"}`}); err != nil {
		t.Fatal(err)
	}
	e, err := ByRun(db, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if e.SessionID != "s1" || e.Decision != "revised" || e.RecordJSON != `{"run_id":"r1"}` {
		t.Errorf("entry: %+v", e)
	}
	if _, err := ByRun(db, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("missing run: got %v", err)
	}
}

// #endregion log-decision-tests

// #region logger-tests
func TestNew_WritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(Config{Level: "debug", Output: &buf}), "refine")
	l.Debug().Str("run_id", "r1").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "refine" || line["service"] != "merchantchat" || line["run_id"] != "r1" {
		t.Errorf("unexpected fields: %v", line)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf})
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn should be written")
	}
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "chatty", Output: &buf})
	l.Debug().Msg("dropped")
	l.Info().Msg("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

// #endregion logger-tests

// #region null-if-empty-tests
func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("expected nil for empty string")
	}
	if nullIfEmpty("hello") != "hello" {
		t.Error("expected passthrough for non-empty string")
	}
}

// #endregion null-if-empty-tests
