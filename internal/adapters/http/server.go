// Package http exposes the bot over HTTP: the Telegram webhook, health and
// metrics endpoints, and a small JSON API for driving conversations and
// reading records.
package http

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Doe880/telegram-feedback-bot1/internal/logging"
	"github.com/Doe880/telegram-feedback-bot1/internal/sanitize"
	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"github.com/Doe880/telegram-feedback-bot1/pkg/intake"
	"github.com/Doe880/telegram-feedback-bot1/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

//go:embed openapi.yaml
var rawDocument []byte

// maxBodyBytes bounds request bodies, webhook updates included.
const maxBodyBytes = 1 << 20

// SecretHeader is set by Telegram on webhook calls when a secret token was
// registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Conversations drives one intake step for a session.
type Conversations interface {
	Handle(ctx context.Context, sessionID string, ev domain.InputEvent) (*intake.Reply, error)
}

// UpdateSink consumes a raw Telegram update.
type UpdateSink interface {
	HandleUpdate(ctx context.Context, body []byte) error
}

// LoadOpenAPI parses and validates the embedded OpenAPI document.
func LoadOpenAPI(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(rawDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
}

// Server holds the handler dependencies. Nil collaborators disable the
// routes that need them.
type Server struct {
	conversations Conversations
	records       ports.RecordStore
	updates       UpdateSink
	metrics       http.Handler
	doc           *openapi3.T
	apiToken      string
	webhookSecret string
	version       string
	logger        *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

func WithConversations(c Conversations) Option { return func(s *Server) { s.conversations = c } }

func WithRecords(r ports.RecordStore) Option { return func(s *Server) { s.records = r } }

// WithWebhook enables POST /webhook/{secret}.
func WithWebhook(sink UpdateSink, secret string) Option {
	return func(s *Server) {
		s.updates = sink
		s.webhookSecret = secret
	}
}

func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithAPIToken requires "Authorization: Bearer <token>" on /api routes.
func WithAPIToken(token string) Option { return func(s *Server) { s.apiToken = token } }

func WithVersion(v string) Option { return func(s *Server) { s.version = v } }

func WithLogger(logger *slog.Logger) Option { return func(s *Server) { s.logger = logger } }

// NewHandler builds the router. The OpenAPI document is validated here so
// a broken build fails at startup.
func NewHandler(ctx context.Context, opts ...Option) (http.Handler, error) {
	s := &Server{version: "dev", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	doc, err := LoadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	s.doc = doc

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawDocument)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.updates != nil {
		r.Post("/webhook/{secret}", s.Webhook)
	}
	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)
		if s.conversations != nil {
			r.Post("/sessions/{id}/advance", s.AdvanceSession)
		}
		if s.records != nil {
			r.Get("/records", s.ListRecords)
			r.Get("/records/{id}", s.GetRecord)
		}
	})
	return r, nil
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "OK")
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "feedbackbot",
		"version": s.version,
	})
}

// Webhook handles POST /webhook/{secret}.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	if !equalSecret(chi.URLParam(r, "secret"), s.webhookSecret) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		s.logger.Warn("Webhook: wrong path secret", "remote", r.RemoteAddr)
		return
	}
	if h := r.Header.Get(SecretHeader); h != "" && !equalSecret(h, s.webhookSecret) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		s.logger.Warn("Webhook: wrong secret header", "remote", r.RemoteAddr)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || !json.Valid(body) {
		http.Error(w, "Invalid update", http.StatusBadRequest)
		s.logger.Warn("Webhook: invalid update body", "err", err)
		return
	}
	// Telegram redelivers on non-2xx, so handler failures are logged and
	// acknowledged instead of retried forever.
	if err := s.updates.HandleUpdate(r.Context(), body); err != nil {
		s.logger.Error("Webhook: update failed", "err", err)
	}
	w.WriteHeader(http.StatusOK)
}

type stepResult struct {
	SessionID string        `json:"session_id"`
	State     domain.State  `json:"state"`
	Prompt    domain.Prompt `json:"prompt"`
	Error     string        `json:"error,omitempty"`
}

// AdvanceSession handles POST /api/sessions/{id}/advance.
func (s *Server) AdvanceSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	var ev domain.InputEvent
	if err := s.decodeValidated(r, "InputEvent", &ev); err != nil {
		http.Error(w, fmt.Sprintf("Invalid input event: %v", err), http.StatusBadRequest)
		s.logger.Warn("AdvanceSession: invalid body", "session_id", sessionID, "err", err)
		return
	}
	if ev.Text != "" {
		clean, err := sanitize.Text(ev.Text, 0)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
			return
		}
		ev.Text = clean
	}

	reply, err := s.conversations.Handle(r.Context(), sessionID, ev)
	if err != nil {
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		s.logger.Error("AdvanceSession failed", "session_id", sessionID, "err", err)
		return
	}
	res := stepResult{SessionID: sessionID, State: reply.State, Prompt: reply.Prompt}
	if reply.Err != nil {
		res.Error = reply.Err.Error()
	}
	s.writeJSON(w, http.StatusOK, res)
}

// ListRecords handles GET /api/records.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	var (
		recs []domain.Record
		err  error
	)
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			http.Error(w, "Invalid user_id", http.StatusBadRequest)
			return
		}
		recs, err = s.records.ListByUser(r.Context(), userID)
	} else {
		recs, err = s.records.List(r.Context())
	}
	if err != nil {
		http.Error(w, "Storage error", http.StatusInternalServerError)
		s.logger.Error("ListRecords failed", "err", err)
		return
	}
	if recs == nil {
		recs = []domain.Record{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

// GetRecord handles GET /api/records/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid record id", http.StatusBadRequest)
		return
	}
	rec, err := s.records.Get(r.Context(), id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Storage error", http.StatusInternalServerError)
		s.logger.Error("GetRecord failed", "record_id", id, "err", err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken != "" {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || !equalSecret(token, s.apiToken) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// decodeValidated checks the body against a component schema of the
// OpenAPI document before decoding it into v.
func (s *Server) decodeValidated(r *http.Request, schema string, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return err
	}
	ref, ok := s.doc.Components.Schemas[schema]
	if !ok || ref.Value == nil {
		return fmt.Errorf("schema %s not found", schema)
	}
	if err := ref.Value.VisitJSON(raw); err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func equalSecret(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
