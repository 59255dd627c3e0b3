// Package ledger implements the append-only, idempotent event log every
// other component writes through.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// Filters narrow a tail/between query.
type Filters struct {
	EventType fxtypes.EventType
	Severity  fxtypes.Severity
	Symbol    string
	BrainID   string
}

func (f Filters) matches(e fxtypes.LedgerEvent) bool {
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.Symbol != "" && (e.Symbol == nil || *e.Symbol != f.Symbol) {
		return false
	}
	if f.BrainID != "" && (e.BrainID == nil || *e.BrainID != f.BrainID) {
		return false
	}
	return true
}

// Ledger is the append-only, duplicate-id-idempotent durable event log.
// Storage is a JSONL file under dataDir plus in-memory indices; writes are
// serialised under a single mutex so inserts never interleave.
type Ledger struct {
	mu      sync.Mutex
	logger  *zap.Logger
	dataDir string
	file    *os.File
	writer  *bufio.Writer

	byID          map[string]fxtypes.LedgerEvent
	order         []string // event ids in append order
	byCorrelation map[string][]string
	auditLogs     map[string]fxtypes.AuditLog
}

// New opens (or creates) the ledger file under dataDir and replays it into
// memory.
func New(logger *zap.Logger, dataDir string) (*Ledger, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, "ledger.jsonl")

	l := &Ledger{
		logger:        logger.Named("ledger"),
		dataDir:       dataDir,
		byID:          make(map[string]fxtypes.LedgerEvent),
		byCorrelation: make(map[string][]string),
		auditLogs:     make(map[string]fxtypes.AuditLog),
	}

	if err := l.replay(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	l.file = f
	l.writer = bufio.NewWriter(f)
	return l, nil
}

func (l *Ledger) replay(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open ledger for replay: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var e fxtypes.LedgerEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			l.logger.Warn("skipping unreadable ledger line", zap.Error(err))
			continue
		}
		l.index(e)
	}
	return scanner.Err()
}

func (l *Ledger) index(e fxtypes.LedgerEvent) {
	if _, exists := l.byID[e.EventID]; exists {
		return
	}
	l.byID[e.EventID] = e
	l.order = append(l.order, e.EventID)
	l.byCorrelation[e.CorrelationID] = append(l.byCorrelation[e.CorrelationID], e.EventID)
	if e.EventType == fxtypes.EventAuditLog {
		if _, exists := l.auditLogs[e.EventID]; !exists {
			l.auditLogs[e.EventID] = auditFromPayload(e)
		}
	}
}

func auditFromPayload(e fxtypes.LedgerEvent) fxtypes.AuditLog {
	str := func(k string) string {
		if v, ok := e.Payload[k].(string); ok {
			return v
		}
		return ""
	}
	toMap := func(k string) map[string]any {
		if v, ok := e.Payload[k].(map[string]any); ok {
			return v
		}
		return nil
	}
	return fxtypes.AuditLog{
		AuditID:       e.EventID,
		Timestamp:     e.Timestamp,
		ActorUserID:   str("actor_user"),
		ActorRole:     str("actor_role"),
		Action:        str("action"),
		Resource:      str("resource"),
		Reason:        str("reason"),
		Before:        toMap("before"),
		After:         toMap("after"),
		CorrelationID: e.CorrelationID,
	}
}

// Append inserts event, returning true iff it was newly inserted. A
// duplicate event_id is a no-op that returns false.
func (l *Ledger) Append(e fxtypes.LedgerEvent) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byID[e.EventID]; exists {
		return false, nil
	}

	buf, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("marshal ledger event: %w", err)
	}
	if _, err := l.writer.Write(buf); err != nil {
		return false, fmt.Errorf("write ledger event: %w", err)
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		return false, fmt.Errorf("write ledger newline: %w", err)
	}
	if err := l.writer.Flush(); err != nil {
		return false, fmt.Errorf("flush ledger: %w", err)
	}

	l.index(e)
	return true, nil
}

// AppendBatch appends every event in events, returning the count actually
// inserted (duplicates are skipped, not errors).
func (l *Ledger) AppendBatch(events []fxtypes.LedgerEvent) (int, error) {
	inserted := 0
	for _, e := range events {
		ok, err := l.Append(e)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// AppendAudit persists an audit log record, mirrored as an AUDIT_LOG ledger
// event.
func (l *Ledger) AppendAudit(al fxtypes.AuditLog) (bool, error) {
	l.mu.Lock()
	l.auditLogs[al.AuditID] = al
	l.mu.Unlock()

	e := fxtypes.LedgerEvent{
		EventID:       al.AuditID,
		CorrelationID: al.CorrelationID,
		Timestamp:     al.Timestamp,
		Severity:      fxtypes.SeverityInfo,
		EventType:     fxtypes.EventAuditLog,
		Component:     fxtypes.ComponentSystem,
		Payload: map[string]any{
			"audit_id":    al.AuditID,
			"actor_role":  al.ActorRole,
			"actor_user":  al.ActorUserID,
			"action":      al.Action,
			"resource":    al.Resource,
			"reason":      al.Reason,
			"before":      al.Before,
			"after":       al.After,
		},
	}
	return l.Append(e)
}

// Tail returns up to n events in reverse time (append) order, optionally
// filtered.
func (l *Ledger) Tail(n int, f Filters) []fxtypes.LedgerEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]fxtypes.LedgerEvent, 0, n)
	for i := len(l.order) - 1; i >= 0 && len(out) < n; i-- {
		e := l.byID[l.order[i]]
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// ByCorrelation returns every event sharing correlationID, in append order.
func (l *Ledger) ByCorrelation(correlationID string) []fxtypes.LedgerEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := l.byCorrelation[correlationID]
	out := make([]fxtypes.LedgerEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.byID[id])
	}
	return out
}

// Between returns events with timestamp in [start, end), newest constraints
// applied via filters, paginated by limit/offset.
func (l *Ledger) Between(start, end time.Time, f Filters, limit, offset int) []fxtypes.LedgerEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []fxtypes.LedgerEvent
	for _, id := range l.order {
		e := l.byID[id]
		if e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
			continue
		}
		if f.matches(e) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })

	if offset >= len(matched) {
		return nil
	}
	end2 := offset + limit
	if limit <= 0 || end2 > len(matched) {
		end2 = len(matched)
	}
	return matched[offset:end2]
}

// Day returns every ledger event and audit log for the given date
// (YYYY-MM-DD, UTC) plus the derived replay-day record.
func (l *Ledger) Day(date string) ([]fxtypes.LedgerEvent, []fxtypes.AuditLog, fxtypes.ReplayDay) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var events []fxtypes.LedgerEvent
	var audits []fxtypes.AuditLog
	hasSnapshot, hasIntentOrSkip := false, false

	for _, id := range l.order {
		e := l.byID[id]
		if e.Timestamp.UTC().Format("2006-01-02") != date {
			continue
		}
		events = append(events, e)
		switch e.EventType {
		case fxtypes.EventMCLSnapshot:
			hasSnapshot = true
		case fxtypes.EventBrainIntent, fxtypes.EventBrainSkip:
			hasIntentOrSkip = true
		}
	}
	for _, al := range l.auditLogs {
		if al.Timestamp.UTC().Format("2006-01-02") == date {
			audits = append(audits, al)
		}
	}

	status := fxtypes.ReplayPartial
	if hasSnapshot && hasIntentOrSkip {
		status = fxtypes.ReplayComplete
	}
	day := fxtypes.ReplayDay{
		Date:   date,
		Status: status,
		Summary: map[string]any{
			"event_count": len(events),
			"audit_count": len(audits),
		},
	}
	return events, audits, day
}

// Close flushes and closes the underlying file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		return err
	}
	return l.file.Close()
}

// Size returns the total number of distinct events held.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
