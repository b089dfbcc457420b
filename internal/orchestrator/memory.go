package orchestrator

// #region imports
import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

// #endregion

// #region schema

const styleOutcomesSchema = `
CREATE TABLE IF NOT EXISTS style_outcomes (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL,
    category      TEXT NOT NULL,
    audience      TEXT NOT NULL,
    style         TEXT NOT NULL,
    attempt_num   INTEGER NOT NULL,
    score         REAL NOT NULL,
    source        TEXT NOT NULL DEFAULT 'template',
    accepted      INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL
);
`

const styleOutcomesIndex = `
CREATE INDEX IF NOT EXISTS idx_style_outcomes_lookup
ON style_outcomes(category, audience, style);
`

const (
	minSamples   = 3
	halfLifeHour = 7.0 * 24.0 // 7 days
)

// #endregion

// #region memory-struct

// StyleMemory persists refinement outcomes in SQLite and queries
// decay-weighted results per (category, audience).
type StyleMemory struct {
	db  *sql.DB
	now func() time.Time
}

// NewStyleMemory initializes the style_outcomes table and returns a StyleMemory.
func NewStyleMemory(db *sql.DB) (*StyleMemory, error) {
	if _, err := db.Exec(styleOutcomesSchema); err != nil {
		return nil, fmt.Errorf("init style_outcomes: %w", err)
	}
	if _, err := db.Exec(styleOutcomesIndex); err != nil {
		return nil, fmt.Errorf("init style_outcomes index: %w", err)
	}
	return &StyleMemory{db: db, now: time.Now}, nil
}

// #endregion

// #region record-outcome

// RecordOutcome persists a single outcome row.
func (m *StyleMemory) RecordOutcome(rec OutcomeRecord) error {
	accepted := 0
	if rec.Accepted {
		accepted = 1
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	_, err := m.db.Exec(`
		INSERT INTO style_outcomes
		(run_id, category, audience, style, attempt_num, score, source, accepted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Category,
		rec.Audience,
		rec.Style,
		rec.AttemptNum,
		rec.Score,
		rec.Source,
		accepted,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record style outcome: %w", err)
	}
	return nil
}

// #endregion

// #region best-style

// BestStyle returns the style with the highest decay-weighted score among
// accepted outcomes for (category, audience). Returns ("", 0, nil) if no
// style has at least 3 samples.
func (m *StyleMemory) BestStyle(category, audience string) (string, float64, error) {
	rows, err := m.db.Query(`
		SELECT style, score, created_at
		FROM style_outcomes
		WHERE category = ? AND audience = ? AND accepted = 1`,
		category, audience,
	)
	if err != nil {
		return "", 0, fmt.Errorf("query style_outcomes: %w", err)
	}
	defer rows.Close()

	type styleAccum struct {
		weightedSum float64
		totalWeight float64
		count       int
	}

	now := m.now()
	accum := make(map[string]*styleAccum)
	var order []string

	for rows.Next() {
		var style string
		var score float64
		var createdAtStr string
		if err := rows.Scan(&style, &score, &createdAtStr); err != nil {
			return "", 0, err
		}
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			continue
		}
		ageHours := math.Max(now.Sub(createdAt).Hours(), 0)
		weight := math.Exp(-ageHours / halfLifeHour)

		a, ok := accum[style]
		if !ok {
			a = &styleAccum{}
			accum[style] = a
			order = append(order, style)
		}
		a.weightedSum += score * weight
		a.totalWeight += weight
		a.count++
	}
	if err := rows.Err(); err != nil {
		return "", 0, err
	}

	var best string
	bestScore := -1.0
	for _, style := range order {
		a := accum[style]
		if a.count < minSamples || a.totalWeight == 0 {
			continue
		}
		avg := a.weightedSum / a.totalWeight
		if avg > bestScore {
			bestScore = avg
			best = style
		}
	}
	if best == "" {
		return "", 0, nil
	}
	return best, bestScore, nil
}

// #endregion
