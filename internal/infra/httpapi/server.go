package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"askme/internal/domain"
)

const maxBodyBytes = 4096

// responseWriteTimeout bounds writing an outcome once the pipeline returns.
const responseWriteTimeout = 10 * time.Second

// Pipeline is the orchestrator surface the server exposes.
type Pipeline interface {
	HandleTopic(ctx context.Context, topic string) domain.Outcome
	HandleTextQuestion(ctx context.Context, question string) domain.Outcome
	HandleVoiceQuestion(ctx context.Context) domain.Outcome
	LatestExchange(ctx context.Context) (domain.Exchange, bool, error)
}

type Server struct {
	addr     string
	pipeline Pipeline
	logger   *slog.Logger
	mux      *http.ServeMux

	mu      sync.Mutex
	server  *http.Server
	running bool
}

func NewServer(addr string, pipeline Pipeline, logger *slog.Logger) *Server {
	s := &Server{
		addr:     addr,
		pipeline: pipeline,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /topic", s.handleTopic)
	s.mux.HandleFunc("POST /question", s.handleQuestion)
	s.mux.HandleFunc("POST /voice", s.handleVoice)
	s.mux.HandleFunc("GET /exchange", s.handleExchange)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	// Voice questions block for capture, completion and playback. Outcome
	// writes get a fresh deadline since runs queue behind one another.
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

type topicRequest struct {
	Topic string `json:"topic"`
}

type questionRequest struct {
	Question string `json:"question"`
}

type outcomeResponse struct {
	Status  domain.Status `json:"status"`
	Answer  string        `json:"answer,omitempty"`
	Source  domain.Source `json:"source,omitempty"`
	Kind    string        `json:"kind,omitempty"`
	Message string        `json:"message,omitempty"`
	Detail  string        `json:"detail,omitempty"`
}

type exchangeResponse struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	RecordedAt time.Time `json:"recorded_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "topic is required"})
		return
	}

	s.logger.Info("received topic via HTTP", "topic", req.Topic)
	s.writeOutcome(w, s.pipeline.HandleTopic(r.Context(), req.Topic))
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	s.logger.Info("received question via HTTP", "question", req.Question)
	s.writeOutcome(w, s.pipeline.HandleTextQuestion(r.Context(), req.Question))
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("voice question requested via HTTP")
	s.writeOutcome(w, s.pipeline.HandleVoiceQuestion(r.Context()))
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	exchange, ok, err := s.pipeline.LatestExchange(r.Context())
	if err != nil {
		s.logger.Error("loading exchange", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load exchange"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no exchange recorded"})
		return
	}

	writeJSON(w, http.StatusOK, exchangeResponse(exchange))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		s.logger.Error("reading request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
		return false
	}
	if len(data) > maxBodyBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "body too large"})
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) writeOutcome(w http.ResponseWriter, outcome domain.Outcome) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(responseWriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Warn("extending write deadline", "error", err)
	}

	if outcome.OK() {
		writeJSON(w, http.StatusOK, outcomeResponse{
			Status: outcome.Status,
			Answer: outcome.Answer.Text,
			Source: outcome.Answer.Source,
		})
		return
	}

	f := outcome.Failure
	writeJSON(w, statusFor(f.Kind), outcomeResponse{
		Status:  outcome.Status,
		Kind:    string(f.Kind),
		Message: f.Message(),
		Detail:  f.Detail,
	})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindInvalidInput:
		return http.StatusBadRequest
	case domain.ErrorKindNoSpeechDetected, domain.ErrorKindUnintelligible:
		return http.StatusUnprocessableEntity
	case domain.ErrorKindExternalService, domain.ErrorKindTranscriptionService:
		return http.StatusBadGateway
	case domain.ErrorKindCaptureDevice:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
