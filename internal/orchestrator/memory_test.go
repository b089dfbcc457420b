package orchestrator

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStyleMemory_RecordAndQuery(t *testing.T) {
	db := newTestDB(t)
	mem, err := NewStyleMemory(db)
	if err != nil {
		t.Fatal(err)
	}

	// No data → empty result
	style, _, err := mem.BestStyle("服装", "年轻女性")
	if err != nil {
		t.Fatal(err)
	}
	if style != "" {
		t.Errorf("expected empty style, got %q", style)
	}

	// Insert 2 samples for "简约" → still below threshold of 3
	for i := 0; i < 2; i++ {
		err := mem.RecordOutcome(OutcomeRecord{
			RunID: "r1", Category: "服装", Audience: "年轻女性", Style: "简约",
			Score: 0.8, Source: "template", Accepted: true, CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	style, _, err = mem.BestStyle("服装", "年轻女性")
	if err != nil {
		t.Fatal(err)
	}
	if style != "" {
		t.Errorf("expected empty (below threshold), got %q", style)
	}

	// Add 3rd sample → should return "简约"
	err = mem.RecordOutcome(OutcomeRecord{
		RunID: "r2", Category: "服装", Audience: "年轻女性", Style: "简约",
		Score: 0.9, Source: "template", Accepted: true, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	style, score, err := mem.BestStyle("服装", "年轻女性")
	if err != nil {
		t.Fatal(err)
	}
	if style != "简约" {
		t.Errorf("expected 简约, got %q", style)
	}
	if score < 0.8 || score > 0.9 {
		t.Errorf("expected weighted score in [0.8,0.9], got %.3f", score)
	}
}

func TestStyleMemory_BestStyle_PicksHigherScore(t *testing.T) {
	db := newTestDB(t)
	mem, err := NewStyleMemory(db)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	for i := 0; i < 4; i++ {
		mem.RecordOutcome(OutcomeRecord{
			RunID: "r1", Category: "数码", Audience: "学生", Style: "爆款",
			Score: 0.6, Accepted: true, CreatedAt: now,
		})
		mem.RecordOutcome(OutcomeRecord{
			RunID: "r2", Category: "数码", Audience: "学生", Style: "高端",
			Score: 0.9, Accepted: true, CreatedAt: now,
		})
	}

	style, _, err := mem.BestStyle("数码", "学生")
	if err != nil {
		t.Fatal(err)
	}
	if style != "高端" {
		t.Errorf("expected 高端, got %q", style)
	}
}

func TestStyleMemory_IgnoresRejectedAndOtherKeys(t *testing.T) {
	db := newTestDB(t)
	mem, err := NewStyleMemory(db)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		mem.RecordOutcome(OutcomeRecord{RunID: "r", Category: "服装", Audience: "通用", Style: "爆款", Score: 0.9, Accepted: false})
		mem.RecordOutcome(OutcomeRecord{RunID: "r", Category: "美妆", Audience: "通用", Style: "高端", Score: 0.9, Accepted: true})
	}
	style, _, err := mem.BestStyle("服装", "通用")
	if err != nil {
		t.Fatal(err)
	}
	if style != "" {
		t.Errorf("expected no learned style, got %q", style)
	}
}

func TestStyleMemory_DecayFavorsRecent(t *testing.T) {
	db := newTestDB(t)
	mem, err := NewStyleMemory(db)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	old := now.Add(-60 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		mem.RecordOutcome(OutcomeRecord{RunID: "r", Category: "家居", Audience: "通用", Style: "简约", Score: 0.95, Accepted: true, CreatedAt: old})
		mem.RecordOutcome(OutcomeRecord{RunID: "r", Category: "家居", Audience: "通用", Style: "简约", Score: 0.7, Accepted: true, CreatedAt: now})
	}
	_, score, err := mem.BestStyle("家居", "通用")
	if err != nil {
		t.Fatal(err)
	}
	if score > 0.75 {
		t.Errorf("old outcomes should barely count, got %.3f", score)
	}
}
