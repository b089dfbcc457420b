package storage

import (
	"path/filepath"
	"testing"
)

func TestOpen_FileDatabaseUsesWAL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("expected wal, got %q", mode)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Errorf("expected foreign keys on, got %d", fk)
	}
}

func TestTables_CountsRows(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE b (x INTEGER); CREATE TABLE a (x INTEGER); INSERT INTO a VALUES (1), (2)`); err != nil {
		t.Fatal(err)
	}
	got, err := Tables(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[0].Rows != 2 || got[1].Name != "b" || got[1].Rows != 0 {
		t.Errorf("unexpected tables: %+v", got)
	}
}
