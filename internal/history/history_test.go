package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndLastResult(t *testing.T) {
	l := openTestLog(t)

	last, err := l.LastResult()
	if err != nil {
		t.Fatalf("LastResult failed: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil last result on empty log, got %+v", last)
	}

	if err := l.Record(Attempt{Outcome: OutcomeFailed, Strategy: "rfb", Reason: "display server not available"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Record(Attempt{Outcome: OutcomeSucceeded, Strategy: "native"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	last, err = l.LastResult()
	if err != nil {
		t.Fatalf("LastResult failed: %v", err)
	}
	if last == nil || last.Outcome != OutcomeSucceeded || last.Strategy != "native" {
		t.Fatalf("unexpected last result: %+v", last)
	}
	if last.Timestamp.IsZero() {
		t.Error("timestamp was not filled in")
	}
}

func TestRecentNewestFirst(t *testing.T) {
	l := openTestLog(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		a := Attempt{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Outcome:   OutcomeFailed,
			Reason:    "locked",
		}
		if err := l.Record(a); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	recent, err := l.Recent(3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("got %d entries, want 3", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Timestamp.After(recent[i-1].Timestamp) {
			t.Errorf("entries not newest first: %v before %v", recent[i-1].Timestamp, recent[i].Timestamp)
		}
	}
	if !recent[0].Timestamp.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("first entry is not the newest: %v", recent[0].Timestamp)
	}
}

func TestPrune(t *testing.T) {
	l := openTestLog(t)

	for i := 0; i < 10; i++ {
		if err := l.Record(Attempt{Outcome: OutcomeSucceeded}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	if err := l.Prune(4); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	recent, err := l.Recent(100)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 4 {
		t.Fatalf("got %d entries after prune, want 4", len(recent))
	}

	// Pruning below the kept count is a no-op
	if err := l.Prune(50); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	recent, _ = l.Recent(100)
	if len(recent) != 4 {
		t.Fatalf("prune with larger keep removed entries, have %d", len(recent))
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := l.Record(Attempt{Outcome: OutcomeFailed, Reason: "credentials incomplete"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	l, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer l.Close()

	last, err := l.LastResult()
	if err != nil {
		t.Fatalf("LastResult failed: %v", err)
	}
	if last == nil || last.Reason != "credentials incomplete" {
		t.Fatalf("history lost across reopen: %+v", last)
	}
}
