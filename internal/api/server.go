package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/internal/executor"
	"github.com/atlas-desktop/fx-decision-engine/internal/gate"
	"github.com/atlas-desktop/fx-decision-engine/internal/ledger"
	"github.com/atlas-desktop/fx-decision-engine/internal/opstate"
	"github.com/atlas-desktop/fx-decision-engine/internal/orchestrator"
	"github.com/atlas-desktop/fx-decision-engine/internal/streamhub"
	"github.com/atlas-desktop/fx-decision-engine/pkg/fxtypes"
)

// Config holds the HTTP server's own settings, separate from the core
// components it fronts.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Symbols      []string
}

// Server is the thin ops HTTP/WebSocket surface. It never resolves
// authentication or authorization itself; it trusts the ActorContext
// carried on each request by whatever sits in front of it (out of scope
// here). The handlers themselves do not check the actor: only a gate
// transition is refused without the admin role, by the gate authority.
type Server struct {
	mu     sync.Mutex
	logger *zap.Logger
	cfg    Config

	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	ledger *ledger.Ledger
	hub    *streamhub.Hub
	orch   *orchestrator.Orchestrator
	state  *opstate.State
	gate   *gate.Authority
	exec   executor.Port
}

// New builds a Server wired to the engine's core components. exec is used
// only to deliver webhook-carried lifecycle events when it is a
// *executor.RealAdapter; it is a no-op target otherwise.
func New(logger *zap.Logger, cfg Config, l *ledger.Ledger, hub *streamhub.Hub, orch *orchestrator.Orchestrator, state *opstate.State, ga *gate.Authority, exec executor.Port) *Server {
	s := &Server{
		logger: logger.Named("api"),
		cfg:    cfg,
		router: mux.NewRouter(),
		ledger: l,
		hub:    hub,
		orch:   orch,
		state:  state,
		gate:   ga,
		exec:   exec,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/v1/state", s.handleState).Methods("GET")

	s.router.HandleFunc("/api/v1/ticks/run", s.handleRunTick).Methods("POST")

	s.router.HandleFunc("/api/v1/ledger/tail", s.handleLedgerTail).Methods("GET")
	s.router.HandleFunc("/api/v1/ledger/correlation/{id}", s.handleLedgerByCorrelation).Methods("GET")
	s.router.HandleFunc("/api/v1/ledger/between", s.handleLedgerBetween).Methods("GET")
	s.router.HandleFunc("/api/v1/ledger/day/{date}", s.handleLedgerDay).Methods("GET")

	s.router.HandleFunc("/api/v1/gate/transition", s.handleGateTransition).Methods("POST")
	s.router.HandleFunc("/api/v1/arm", s.handleArm).Methods("POST")
	s.router.HandleFunc("/api/v1/disarm", s.handleDisarm).Methods("POST")
	s.router.HandleFunc("/api/v1/kill", s.handleKill).Methods("POST")

	s.router.HandleFunc("/api/v1/executor/webhook", s.handleExecutorWebhook).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Start starts the HTTP server. It blocks until the server stops or errors.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	readTimeout, writeTimeout := s.cfg.ReadTimeout, s.cfg.WriteTimeout
	if readTimeout == 0 {
		readTimeout = 10 * time.Second
	}
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	s.logger.Info("starting api server", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func actorFromRequest(r *http.Request) fxtypes.ActorContext {
	return fxtypes.ActorContext{
		UserID: r.Header.Get("X-Actor-User"),
		Role:   r.Header.Get("X-Actor-Role"),
	}
}

func correlationFromRequest(r *http.Request) string {
	if c := r.Header.Get("X-Correlation-ID"); c != "" {
		return c
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleRunTick(w http.ResponseWriter, r *http.Request) {
	symbols := s.cfg.Symbols
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		symbols = splitCSV(raw)
	}

	result, err := s.orch.RunTick(r.Context(), symbols)
	if err != nil {
		if err == orchestrator.ErrTickInProgress {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func (s *Server) handleLedgerTail(w http.ResponseWriter, r *http.Request) {
	n := 100
	if raw := r.URL.Query().Get("n"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	f := ledger.Filters{
		EventType: fxtypes.EventType(r.URL.Query().Get("event_type")),
		Severity:  fxtypes.Severity(r.URL.Query().Get("severity")),
		Symbol:    r.URL.Query().Get("symbol"),
		BrainID:   r.URL.Query().Get("brain_id"),
	}
	writeJSON(w, http.StatusOK, s.ledger.Tail(n, f))
}

func (s *Server) handleLedgerByCorrelation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, s.ledger.ByCorrelation(id))
}

func (s *Server) handleLedgerBetween(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be RFC3339")
		return
	}
	limit, offset := 100, 0
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		offset = v
	}
	f := ledger.Filters{
		EventType: fxtypes.EventType(q.Get("event_type")),
		Severity:  fxtypes.Severity(q.Get("severity")),
		Symbol:    q.Get("symbol"),
		BrainID:   q.Get("brain_id"),
	}
	writeJSON(w, http.StatusOK, s.ledger.Between(start, end, f, limit, offset))
}

func (s *Server) handleLedgerDay(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	events, audits, day := s.ledger.Day(date)
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"audits": audits,
		"day":    day,
	})
}

type gateTransitionRequest struct {
	From fxtypes.Gate `json:"from"`
	To   fxtypes.Gate `json:"to"`
}

func (s *Server) handleGateTransition(w http.ResponseWriter, r *http.Request) {
	var req gateTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.From.Valid() || !req.To.Valid() {
		writeError(w, http.StatusBadRequest, "invalid gate value")
		return
	}

	res := s.gate.RequestTransition(req.From, req.To, actorFromRequest(r), time.Now().UTC(), correlationFromRequest(r))
	if res.Audit != nil {
		if _, err := s.ledger.AppendAudit(*res.Audit); err != nil {
			s.logger.Error("append audit failed", zap.Error(err))
		} else {
			s.hub.Publish(streamhub.TopicAudit, *res.Audit)
		}
	}
	if !res.Accepted {
		writeJSON(w, http.StatusConflict, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type confirmRequest struct {
	Confirm string `json:"confirm"`
}

func (s *Server) handleArm(w http.ResponseWriter, r *http.Request) {
	s.handleConfirmAction(w, r, "ARM", fxtypes.ReasonAuditArm, s.state.Arm)
}

func (s *Server) handleDisarm(w http.ResponseWriter, r *http.Request) {
	s.handleConfirmAction(w, r, "DISARM", fxtypes.ReasonAuditDisarm, s.state.Disarm)
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	s.handleConfirmAction(w, r, "KILL", fxtypes.ReasonAuditKill, s.state.Kill)
}

func (s *Server) handleConfirmAction(w http.ResponseWriter, r *http.Request, action string, reason fxtypes.ReasonCode, apply func(string) error) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := apply(req.Confirm); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	actor := actorFromRequest(r)
	al := fxtypes.AuditLog{
		AuditID:       fmt.Sprintf("%s-%d", action, time.Now().UTC().UnixNano()),
		Timestamp:     time.Now().UTC(),
		ActorUserID:   actor.UserID,
		ActorRole:     actor.Role,
		Action:        action,
		Resource:      "arm",
		Reason:        string(reason),
		CorrelationID: correlationFromRequest(r),
	}
	if _, err := s.ledger.AppendAudit(al); err != nil {
		s.logger.Error("append audit failed", zap.Error(err))
	} else {
		s.hub.Publish(streamhub.TopicAudit, al)
	}

	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

// handleExecutorWebhook receives asynchronous lifecycle events from an
// external execution service when the executor port is a RealAdapter; the
// simulator drives its own lifecycle events in-process and never calls
// this path.
func (s *Server) handleExecutorWebhook(w http.ResponseWriter, r *http.Request) {
	real, ok := s.exec.(*executor.RealAdapter)
	if !ok {
		writeError(w, http.StatusNotFound, "executor port does not accept webhook delivery")
		return
	}

	var evt fxtypes.ExecutorEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	real.Deliver(evt)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	sink := newWSSink(s.logger, conn)
	s.hub.Subscribe(sink)
}
