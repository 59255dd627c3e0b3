package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

const (
	requestTimeout = 3 * time.Second
	maxAttempts    = 2
)

// RealAdapter talks to an external execution service over HTTP plus a
// lifecycle callback webhook, with a small fixed retry/timeout budget.
type RealAdapter struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client

	mu        sync.Mutex
	callbacks []LifecycleCallback
}

// NewRealAdapter builds a RealAdapter pointed at baseURL.
func NewRealAdapter(logger *zap.Logger, baseURL string) *RealAdapter {
	return &RealAdapter{
		logger:  logger.Named("executor-real"),
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// OnLifecycleEvent registers a callback invoked when a webhook handler
// (wired externally, e.g. in internal/api) receives a lifecycle payload and
// calls Deliver.
func (a *RealAdapter) OnLifecycleEvent(cb LifecycleCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, cb)
}

// Deliver is called by the webhook handler with a decoded lifecycle
// envelope; it fans out to registered callbacks.
func (a *RealAdapter) Deliver(e fxtypes.ExecutorEvent) {
	a.mu.Lock()
	cbs := append([]LifecycleCallback(nil), a.callbacks...)
	a.mu.Unlock()
	for _, cb := range cbs {
		cb(e)
	}
}

// Send posts cmd to the execution service, retrying once on transient
// failure within the 3s budget per attempt.
func (a *RealAdapter) Send(ctx context.Context, cmd fxtypes.ExecutorCommand) (SendResult, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal command: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, requestTimeout)
		req, err := http.NewRequestWithContext(cctx, http.MethodPost, a.baseURL+"/commands", bytes.NewReader(body))
		if err != nil {
			cancel()
			return SendResult{}, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		cancel()
		if err != nil {
			lastErr = err
			a.logger.Warn("executor send failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("executor returned %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			return SendResult{OK: false, ReasonCode: fxtypes.ReasonExecOrderFailed}, nil
		}
		return SendResult{OK: true}, nil
	}

	if ctx.Err() != nil {
		return SendResult{OK: false, ReasonCode: fxtypes.ReasonExecOrderTimeout}, ctx.Err()
	}
	return SendResult{OK: false, ReasonCode: fxtypes.ReasonExecBroken}, lastErr
}

// Status queries the execution service's own health endpoint.
func (a *RealAdapter) Status(ctx context.Context) (Status, error) {
	cctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, a.baseURL+"/status", nil)
	if err != nil {
		return Status{}, fmt.Errorf("build status request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return Status{Health: fxtypes.ExecutionHealthBroken}, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		LatencyMs float64 `json:"latency_ms"`
		ErrorRate float64 `json:"error_rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Status{Health: fxtypes.ExecutionHealthBroken}, fmt.Errorf("decode status: %w", err)
	}
	return Status{Health: DeriveHealth(payload.LatencyMs, payload.ErrorRate), LatencyMs: payload.LatencyMs, ErrorRate: payload.ErrorRate}, nil
}

var _ Port = (*RealAdapter)(nil)
