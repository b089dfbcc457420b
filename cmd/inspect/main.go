package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/czhharrison/MerchantChat/internal/conversation"
	"github.com/czhharrison/MerchantChat/internal/logging"
	"github.com/czhharrison/MerchantChat/internal/scoring"
	"github.com/czhharrison/MerchantChat/internal/storage"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to merchant.db")
	last := flag.Int("last", 20, "show N most recent refinement runs")
	run := flag.String("run", "", "show single refinement run detail")
	sessions := flag.Bool("sessions", false, "list conversation sessions")
	session := flag.String("session", "", "show one session's turns")
	tables := flag.Bool("tables", false, "show table row counts")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/merchant.db [--last N] [--run id] [--sessions] [--session id] [--tables] [--json]")
		os.Exit(2)
	}

	db, err := storage.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := logging.EnsureSchema(db); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *tables:
		err = runTablesMode(db, *jsonOut)
	case *run != "":
		err = runDetailMode(db, *run, *jsonOut)
	case *sessions || *session != "":
		err = runSessionMode(db, *session, *jsonOut)
	default:
		err = runListMode(db, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID        string  `json:"run_id"`
	SessionID    string  `json:"session_id,omitempty"`
	Style        string  `json:"style"`
	Audience     string  `json:"audience"`
	Decision     string  `json:"decision"`
	Reason       string  `json:"reason,omitempty"`
	InitialScore float64 `json:"initial_score"`
	FinalScore   float64 `json:"final_score"`
	CreatedAt    string  `json:"created_at"`
}

func runListMode(db *sql.DB, last int, jsonOut bool) error {
	entries, err := logging.Recent(db, last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no refinement runs found")
		return nil
	}

	// Recent returns newest first; print chronologically.
	rows := make([]listRow, len(entries))
	for i, e := range entries {
		rows[len(entries)-1-i] = listRow{
			RunID:        e.RunID,
			SessionID:    e.SessionID,
			Style:        e.Style,
			Audience:     e.Audience,
			Decision:     e.Decision,
			Reason:       e.Reason,
			InitialScore: e.InitialScore,
			FinalScore:   e.FinalScore,
			CreatedAt:    e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-6s  %-8s  %-14s  %7s  %7s  %s\n",
		"Run", "Style", "Audience", "Decision", "Initial", "Final", "Time")
	fmt.Printf("%-10s+-%-6s+-%-8s+-%-14s+-%7s+-%7s+-%s\n",
		"----------", "------", "--------", "--------------", "-------", "-------", "--------------------")
	var accepted, revised int
	for _, r := range rows {
		fmt.Printf("%-10s  %-6s  %-8s  %-14s  %7s  %7s  %s\n",
			shortID(r.RunID), r.Style, r.Audience, r.Decision,
			scoring.Percentage(r.InitialScore), scoring.Percentage(r.FinalScore), r.CreatedAt)
		switch r.Decision {
		case "accepted":
			accepted++
		case "revised":
			revised++
		}
	}
	fmt.Printf("\n%d runs: %d accepted first draft, %d improved by revision, %d kept original\n",
		len(rows), accepted, revised, len(rows)-accepted-revised)
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	Entry  logging.Entry             `json:"entry"`
	Record *logging.RefinementRecord `json:"record,omitempty"`
}

func runDetailMode(db *sql.DB, runID string, jsonOut bool) error {
	e, err := logging.ByRun(db, runID)
	if err != nil {
		return err
	}
	out := detailOutput{Entry: e, Record: parseRecord(e.RecordJSON)}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Run:       %s\n", e.RunID)
	fmt.Printf("Session:   %s\n", orDash(e.SessionID))
	fmt.Printf("Created:   %s\n", e.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Style:     %s\n", e.Style)
	fmt.Printf("Audience:  %s\n", e.Audience)
	fmt.Printf("Decision:  %s\n", e.Decision)
	fmt.Printf("Reason:    %s\n", orDash(e.Reason))
	fmt.Printf("Scores:    %s -> %s\n", scoring.Percentage(e.InitialScore), scoring.Percentage(e.FinalScore))

	if rec := out.Record; rec != nil {
		fmt.Printf("\nCategory:  %s\n", rec.Category)
		fmt.Printf("Keywords:  %s\n", strings.Join(rec.Keywords, ", "))
		fmt.Printf("Threshold: %.2f\n", rec.Threshold)
		fmt.Printf("Trace:     %s\n", strings.Join(rec.Trace, " -> "))
		for i, a := range rec.Attempts {
			fmt.Printf("\nAttempt %d (%s", i, a.Source)
			if a.FallbackReason != "" {
				fmt.Printf(", fallback=%s", a.FallbackReason)
			}
			fmt.Printf(")\n  %s\n  score %s\n", a.Title, scoring.Percentage(a.Score))
			for _, issue := range a.Issues {
				fmt.Printf("  - %s\n", issue)
			}
		}
	}
	return nil
}

func parseRecord(recordJSON string) *logging.RefinementRecord {
	if recordJSON == "" {
		return nil
	}
	var rec logging.RefinementRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err == nil && rec.RunID != "" {
		return &rec
	}
	return nil
}

// #endregion detail-mode

// #region session-mode

func runSessionMode(db *sql.DB, sessionID string, jsonOut bool) error {
	store, err := conversation.NewStore(db, 0)
	if err != nil {
		return err
	}

	if sessionID == "" {
		list, err := store.Sessions()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(list)
		}
		fmt.Printf("%-36s  %5s  %s\n", "Session", "Turns", "Created")
		for _, s := range list {
			fmt.Printf("%-36s  %5d  %s\n", s.ID, s.Turns, s.CreatedAt.Format("2006-01-02T15:04:05Z"))
		}
		return nil
	}

	turns, err := store.Recent(sessionID, 0)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(turns)
	}
	for _, t := range turns {
		fmt.Printf("[%s] %-9s %s\n", t.CreatedAt.Format("15:04:05"), t.Role, t.Text)
	}
	return nil
}

// #endregion session-mode

// #region tables-mode

func runTablesMode(db *sql.DB, jsonOut bool) error {
	counts, err := storage.Tables(db)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(counts)
	}
	for _, c := range counts {
		fmt.Printf("  %-22s %d\n", c.Name, c.Rows)
	}
	return nil
}

// #endregion tables-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// #endregion output
