package conversation

// #region imports
import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #endregion imports

// #region types

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message in a session's history.
type Turn struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Session summarizes one conversation.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Turns     int       `json:"turns"`
}

// ErrSessionNotFound is returned for operations on unknown sessions.
var ErrSessionNotFound = errors.New("session not found")

// #endregion types

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_conversation_turns_session
ON conversation_turns(session_id, id);
`

// #endregion schema

// #region store

// Store persists per-session conversation history in SQLite. History is
// append-only; the retention limit drops the oldest turns of a session and
// is independent of how many turns readers ask for.
type Store struct {
	db        *sql.DB
	retention int // 0 = unbounded
}

// NewStore creates the conversation tables if needed and returns a store.
func NewStore(db *sql.DB, retention int) (*Store, error) {
	if retention < 0 {
		return nil, fmt.Errorf("retention must be >= 0, got %d", retention)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate conversation: %w", err)
	}
	return &Store{db: db, retention: retention}, nil
}

// NewSession starts an empty session and returns its ID.
func (s *Store) NewSession() (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, created_at) VALUES (?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Exists reports whether the session is known.
func (s *Store) Exists(sessionID string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return n > 0, nil
}

// Append adds a turn to the end of the session and applies retention.
func (s *Store) Append(sessionID string, role Role, text string) (Turn, error) {
	if !role.Valid() {
		return Turn{}, fmt.Errorf("invalid role %q", role)
	}
	ok, err := s.Exists(sessionID)
	if err != nil {
		return Turn{}, err
	}
	if !ok {
		return Turn{}, ErrSessionNotFound
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO conversation_turns (session_id, role, text, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, string(role), text, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Turn{}, fmt.Errorf("append turn: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Turn{}, fmt.Errorf("append turn id: %w", err)
	}

	if s.retention > 0 {
		_, err := s.db.Exec(`
			DELETE FROM conversation_turns
			WHERE session_id = ? AND id NOT IN (
				SELECT id FROM conversation_turns WHERE session_id = ? ORDER BY id DESC LIMIT ?
			)`, sessionID, sessionID, s.retention)
		if err != nil {
			return Turn{}, fmt.Errorf("prune turns: %w", err)
		}
	}

	return Turn{ID: id, SessionID: sessionID, Role: role, Text: text, CreatedAt: now}, nil
}

// Recent returns up to n of the session's latest turns, oldest first. n <= 0
// returns the full retained history.
func (s *Store) Recent(sessionID string, n int) ([]Turn, error) {
	ok, err := s.Exists(sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	limit := n
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT id, role, text, created_at FROM conversation_turns
		WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var role, createdAt string
		if err := rows.Scan(&t.ID, &role, &t.Text, &createdAt); err != nil {
			return nil, err
		}
		t.SessionID = sessionID
		t.Role = Role(role)
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Count returns the number of retained turns in the session.
func (s *Store) Count(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM conversation_turns WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return n, nil
}

// Sessions lists sessions, newest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.created_at, COUNT(t.id)
		FROM sessions s LEFT JOIN conversation_turns t ON t.session_id = s.id
		GROUP BY s.id, s.created_at
		ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var createdAt string
		if err := rows.Scan(&sess.ID, &createdAt, &sess.Turns); err != nil {
			return nil, err
		}
		sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// #endregion store
