package ledger

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(zap.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sampleEvent(id, correlation string) fxtypes.LedgerEvent {
	return fxtypes.LedgerEvent{
		EventID:       id,
		CorrelationID: correlation,
		Timestamp:     time.Now().UTC(),
		Severity:      fxtypes.SeverityInfo,
		EventType:     fxtypes.EventMCLSnapshot,
		Component:     fxtypes.ComponentMCL,
		Payload:       map[string]any{"x": 1.0},
	}
}

func TestAppend_DuplicateIsNoOp(t *testing.T) {
	l := newTestLedger(t)
	e := sampleEvent("evt-1", "corr-1")

	inserted, err := l.Append(e)
	if err != nil {
		t.Fatalf("unexpected error on first append: %v", err)
	}
	if !inserted {
		t.Fatal("expected first append to insert")
	}

	inserted, err = l.Append(e)
	if err != nil {
		t.Fatalf("unexpected error on duplicate append: %v", err)
	}
	if inserted {
		t.Error("expected duplicate append to be a no-op")
	}

	events := l.ByCorrelation("corr-1")
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}

func TestByCorrelation_PreservesAppendOrder(t *testing.T) {
	l := newTestLedger(t)
	for i := 0; i < 5; i++ {
		if _, err := l.Append(sampleEvent(string(rune('a'+i)), "corr-x")); err != nil {
			t.Fatalf("unexpected error appending event %d: %v", i, err)
		}
	}
	events := l.ByCorrelation("corr-x")
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	for i, e := range events {
		want := string(rune('a' + i))
		if e.EventID != want {
			t.Errorf("expected event id %s at position %d, got %s", want, i, e.EventID)
		}
	}
}

func TestTail_FiltersAndOrder(t *testing.T) {
	l := newTestLedger(t)
	_, _ = l.Append(sampleEvent("e1", "c1"))
	skip := sampleEvent("e2", "c1")
	skip.EventType = fxtypes.EventBrainSkip
	_, _ = l.Append(skip)

	tail := l.Tail(10, Filters{EventType: fxtypes.EventBrainSkip})
	if len(tail) != 1 {
		t.Fatalf("expected 1 filtered event, got %d", len(tail))
	}
	if tail[0].EventID != "e2" {
		t.Errorf("expected event id e2, got %s", tail[0].EventID)
	}
}

func TestDay_CompleteRequiresSnapshotAndIntentOrSkip(t *testing.T) {
	l := newTestLedger(t)
	today := time.Now().UTC().Format("2006-01-02")

	_, _, day := l.Day(today)
	if day.Status != fxtypes.ReplayPartial {
		t.Errorf("expected status %s with no events, got %s", fxtypes.ReplayPartial, day.Status)
	}

	_, _ = l.Append(sampleEvent("snap", "c1"))
	skip := sampleEvent("skip", "c1")
	skip.EventType = fxtypes.EventBrainSkip
	_, _ = l.Append(skip)

	_, _, day = l.Day(today)
	if day.Status != fxtypes.ReplayComplete {
		t.Errorf("expected status %s with snapshot and skip, got %s", fxtypes.ReplayComplete, day.Status)
	}
}

func TestReplay_RestoresState(t *testing.T) {
	dir := t.TempDir()
	l1, err := New(zap.NewNop(), dir)
	if err != nil {
		t.Fatalf("failed to create first ledger: %v", err)
	}
	if _, err := l1.Append(sampleEvent("e1", "c1")); err != nil {
		t.Fatalf("unexpected error appending: %v", err)
	}
	if err := l1.Close(); err != nil {
		t.Fatalf("unexpected error closing ledger: %v", err)
	}

	l2, err := New(zap.NewNop(), dir)
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	defer l2.Close()

	if l2.Size() != 1 {
		t.Fatalf("expected size 1 after replay, got %d", l2.Size())
	}
	inserted, err := l2.Append(sampleEvent("e1", "c1"))
	if err != nil {
		t.Fatalf("unexpected error on re-append: %v", err)
	}
	if inserted {
		t.Error("expected re-append of a replayed event to be a no-op")
	}
}
