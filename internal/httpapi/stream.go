package httpapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/casualjim/preview/events"
	"github.com/casualjim/preview/pkg/slogx"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// attachStream subscribes a buffered bridge to the conversation and returns
// the event feed plus its detach function. The bridge decouples the
// synchronous channel fan-out from network writes: when a client's buffer
// is full, events are dropped for that client only and the publisher never
// blocks on it.
func (s *Server) attachStream(ctx context.Context, conversationID, transport string) (<-chan events.Event, func(), error) {
	bridge := make(chan events.Event, s.streamBuffer)
	hook := events.HookFunc(func(_ context.Context, ev events.Event) {
		select {
		case bridge <- ev:
		default:
			streamDroppedTotal.WithLabelValues(transport).Inc()
			s.log.Warn("stream client too slow, dropping event",
				slog.String("conversation_id", conversationID),
				slog.String("transport", transport),
				slog.String("kind", events.Kind(ev)),
			)
		}
	})

	sub, err := s.channel.Subscribe(ctx, conversationID, hook)
	if err != nil {
		return nil, nil, err
	}
	return bridge, sub.Unsubscribe, nil
}

// joinContexts derives a context that ends when either the request or the
// server shuts down.
func (s *Server) joinContexts(req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(s.baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// handleStreamEvents streams the conversation's events as server-sent
// events. The stream carries only events published while it is attached and
// ends after a terminal event, when the client disconnects, or when the
// server shuts down.
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx, cancel := s.joinContexts(r.Context())
	defer cancel()

	bridge, detach, err := s.attachStream(ctx, conversationID, "sse")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer detach()

	activeStreams.WithLabelValues("sse").Inc()
	defer activeStreams.WithLabelValues("sse").Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.log.DebugContext(ctx, "stream attached",
		slog.String("conversation_id", conversationID),
		slog.String("transport", "sse"),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-bridge:
			if err := writeSSEEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
			if events.IsTerminal(ev) {
				return
			}
		}
	}
}

func writeSSEEvent(w io.Writer, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", events.Kind(ev), data)
	return err
}

// handleStreamWS pushes the conversation's events over a websocket, one
// wire-encoded event per text frame. Inbound frames are ignored, the read
// side only surfaces close and control frames.
func (s *Server) handleStreamWS(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		return
	}
	defer conn.Close() //nolint:errcheck

	ctx, cancel := s.joinContexts(r.Context())
	defer cancel()

	bridge, detach, err := s.attachStream(ctx, conversationID, "websocket")
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"failed to attach stream"}`))
		return
	}
	defer detach()

	activeStreams.WithLabelValues("websocket").Inc()
	defer activeStreams.WithLabelValues("websocket").Dec()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-bridge:
			data, err := json.Marshal(ev)
			if err != nil {
				s.log.Error("encoding event for websocket", slogx.Error(err))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Warn("websocket write failed, dropping connection",
					slog.String("conversation_id", conversationID),
					slogx.Error(err),
				)
				return
			}
			if events.IsTerminal(ev) {
				deadline := time.Now().Add(time.Second)
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream complete")
				_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
				return
			}
		}
	}
}
