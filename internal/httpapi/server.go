// Package httpapi exposes a preview channel over HTTP: event ingress for
// producers, SSE and websocket streams for consumers, aggregated state for
// late-opening surfaces, and the usual operational endpoints.
//
// The transport adds nothing to the channel's semantics. Streams observe
// events published while they are attached, ingress for a conversation
// nobody watches is accepted and dropped, and malformed payloads are
// rejected at the boundary so they never enter the channel.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/casualjim/preview"
	"github.com/casualjim/preview/events"
	"github.com/casualjim/preview/pkg/slogx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config carries the server's dependencies and knobs. Channel is required,
// everything else has a usable zero value.
type Config struct {
	// Channel is the preview channel the API exposes.
	Channel *preview.Channel
	// Log is the logger for request and stream diagnostics. Defaults to
	// slog.Default.
	Log *slog.Logger
	// BaseCtx ends every attached stream when it is canceled, typically on
	// shutdown. Defaults to context.Background.
	BaseCtx context.Context
	// MaxEventBytes caps ingress request bodies. Defaults to 1 MiB.
	MaxEventBytes int64
	// StreamBuffer is the per-client bridge buffer. Defaults to 64.
	StreamBuffer int
	// CORSOrigins lists origins allowed for browser clients. Defaults to
	// allowing all.
	CORSOrigins []string
}

// Server is the HTTP front of a preview channel.
type Server struct {
	channel       *preview.Channel
	log           *slog.Logger
	baseCtx       context.Context
	maxEventBytes int64
	streamBuffer  int
	corsOrigins   []string
	upgrader      websocket.Upgrader
	tracker       *tracker
}

// New validates cfg, fills in defaults and returns the server.
func New(cfg Config) (*Server, error) {
	if cfg.Channel == nil {
		return nil, errors.New("channel is required")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	baseCtx := cfg.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	maxEventBytes := cfg.MaxEventBytes
	if maxEventBytes <= 0 {
		maxEventBytes = 1 << 20
	}
	streamBuffer := cfg.StreamBuffer
	if streamBuffer <= 0 {
		streamBuffer = 64
	}
	corsOrigins := cfg.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	return &Server{
		channel:       cfg.Channel,
		log:           log.With(slogx.LoggerName("httpapi")),
		baseCtx:       baseCtx,
		maxEventBytes: maxEventBytes,
		streamBuffer:  streamBuffer,
		corsOrigins:   corsOrigins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(corsOrigins),
		},
		tracker: newTracker(baseCtx, cfg.Channel),
	}, nil
}

// Routes builds the chi router for the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(metricsMiddleware)
	r.Use(s.logRequests)

	r.Route("/conversations/{id}", func(r chi.Router) {
		r.Post("/events", s.handlePublishEvent)
		r.Get("/events", s.handleStreamEvents)
		r.Get("/ws", s.handleStreamWS)
		r.Get("/state", s.handleState)
	})
	r.Get("/schema", s.handleSchema)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// handlePublishEvent reconstructs an event from its wire form and publishes
// it. Malformed payloads are rejected here, valid events for conversations
// nobody watches are accepted and dropped by the channel.
func (s *Server) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxEventBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "request body too large or unreadable")
		return
	}

	ev, err := events.Unmarshal(body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.channel.Subscribers(conversationID) == 0 {
		eventsUnroutableTotal.Inc()
	}
	if err := s.channel.Publish(r.Context(), conversationID, ev); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	eventsIngestedTotal.WithLabelValues(events.Kind(ev)).Inc()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"kind":     events.Kind(ev),
	})
}

// handleState returns the aggregated preview snapshot. The first request
// for a conversation attaches the aggregator, so the snapshot reflects
// events published from that point on.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	pre := s.tracker.ensure(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, pre.Snapshot())
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, events.WireSchema())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if s.baseCtx.Err() != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shutting down"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)
		s.log.DebugContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sr.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func originChecker(origins []string) func(*http.Request) bool {
	allowAll := slices.Contains(origins, "*")
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(origins, origin)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
		"code":  status,
	})
}
