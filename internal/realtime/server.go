// Package realtime bridges browser websockets onto broadcast views.
package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/slidrapp/slidr/internal/broadcast"
	"github.com/slidrapp/slidr/internal/metrics"
	"github.com/slidrapp/slidr/internal/models"
)

// PresentationSource looks up the document a session belongs to.
type PresentationSource interface {
	GetPresentation(ctx context.Context, id string) (*models.Presentation, error)
}

// ReactionCounter tallies reactions per session.
type ReactionCounter interface {
	IncrementReaction(ctx context.Context, session, kind string) error
}

// Options configures a Server.
type Options struct {
	Presentations     PresentationSource
	Transports        []broadcast.Transport
	Reactions         ReactionCounter // optional
	HeartbeatInterval time.Duration
	Logger            zerolog.Logger
}

// Server upgrades connections and keeps one broadcast.View per client.
type Server struct {
	presentations PresentationSource
	transports    []broadcast.Transport
	reactions     ReactionCounter
	heartbeat     time.Duration
	logger        zerolog.Logger
	upgrader      websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewServer creates a websocket server.
func NewServer(opts Options) *Server {
	return &Server{
		presentations: opts.Presentations,
		transports:    opts.Transports,
		reactions:     opts.Reactions,
		heartbeat:     opts.HeartbeatInterval,
		logger:        opts.Logger.With().Str("component", "realtime").Logger(),
		clients:       make(map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // views are public; auth is not cookie based
			},
		},
	}
}

// HandleWebSocket serves GET /ws/{slug}?session=&role=.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	session, err := broadcast.SessionID(slug, r.URL.Query().Get("session"))
	if err != nil {
		http.Error(w, `{"error":"invalid session"}`, http.StatusBadRequest)
		return
	}

	role, err := broadcast.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		http.Error(w, `{"error":"invalid role"}`, http.StatusBadRequest)
		return
	}

	p, err := s.presentations.GetPresentation(r.Context(), slug)
	if err != nil {
		s.logger.Error().Err(err).Str("presentation", slug).Msg("presentation lookup failed")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, `{"error":"presentation not found"}`, http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(s, conn, slug, session, role)
	client.view = broadcast.NewView(broadcast.ViewOptions{
		Session:           session,
		Role:              role,
		SlideCount:        p.SlideCount(),
		Transports:        s.transports,
		HeartbeatInterval: s.heartbeat,
		Logger:            s.logger,
		OnSlideChange:     client.sendSlide,
		OnReaction:        client.sendReaction,
		OnClearReaction:   client.sendClear,
	})

	if err := client.view.Mount(r.Context()); err != nil {
		s.logger.Error().Err(err).Str("session", session).Msg("mount view failed")
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteJSON(ServerFrame{Type: "error", Error: "sync unavailable"})
		conn.Close()
		return
	}

	s.add(client)
	client.sendSlide(client.view.State())

	go client.writePump()
	go client.readPump()
}

func (s *Server) add(c *Client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	metrics.WebsocketConnections.WithLabelValues(string(c.role)).Inc()
	c.logger.Info().Msg("view connected")
}

func (s *Server) remove(c *Client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		metrics.WebsocketConnections.WithLabelValues(string(c.role)).Dec()
		c.logger.Info().Msg("view disconnected")
	}
}

// Clients returns the number of connected views.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Rendered updates the slide count of every view of presentation id connected
// to this server. Views opened while the deck was rendering start at zero.
func (s *Server) Rendered(id string, slideCount int) {
	s.mu.Lock()
	var views []*broadcast.View
	for c := range s.clients {
		if c.slug == id && c.view != nil {
			views = append(views, c.view)
		}
	}
	s.mu.Unlock()

	for _, v := range views {
		v.SetSlideCount(slideCount)
	}
	if len(views) > 0 {
		s.logger.Debug().Str("presentation", id).Int("views", len(views)).Msg("slide count updated")
	}
}

// Shutdown disconnects every client.
func (s *Server) Shutdown() {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.closeNow()
	}
}

func (s *Server) countReaction(session, kind string) {
	metrics.Reactions.WithLabelValues(kind).Inc()
	if s.reactions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.reactions.IncrementReaction(ctx, session, kind); err != nil {
		s.logger.Warn().Err(err).Str("session", session).Msg("reaction tally failed")
	}
}
