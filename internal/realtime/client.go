package realtime

import (
	"encoding/json"
	"regexp"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/slidrapp/slidr/internal/broadcast"
	"github.com/slidrapp/slidr/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 64
)

var reactionKindRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// Client actions.
const (
	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionGoto     = "goto"
	ActionReact    = "react"
	ActionClear    = "clear"
)

// ClientFrame is sent by browsers.
type ClientFrame struct {
	Action string `json:"action"`
	Index  *int   `json:"index,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// ServerFrame is sent to browsers. Slide fields are set for type "slide" only.
type ServerFrame struct {
	Type string `json:"type"`
	*broadcast.SlideState
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`
}

// Client is one websocket connection and its view.
type Client struct {
	server  *Server
	conn    *websocket.Conn
	view    *broadcast.View
	slug    string
	session string
	role    broadcast.Role
	logger  zerolog.Logger

	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(s *Server, conn *websocket.Conn, slug, session string, role broadcast.Role) *Client {
	return &Client{
		server:  s,
		conn:    conn,
		slug:    slug,
		session: session,
		role:    role,
		logger: s.logger.With().
			Str("session", session).
			Str("role", string(role)).
			Str("remote_addr", conn.RemoteAddr().String()).
			Logger(),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// readPump applies client actions to the view until the connection fails.
func (c *Client) readPump() {
	defer c.closeNow()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket error")
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError("invalid frame")
			continue
		}
		c.handle(frame)
	}
}

func (c *Client) handle(frame ClientFrame) {
	switch frame.Action {
	case ActionNext:
		c.view.NavNext()
	case ActionPrevious:
		c.view.NavPrevious()
	case ActionGoto:
		if frame.Index == nil {
			c.sendError("index is required")
			return
		}
		c.view.SetSlideIndex(*frame.Index)
	case ActionReact:
		if !reactionKindRegex.MatchString(frame.Kind) {
			c.sendError("invalid reaction kind")
			return
		}
		c.view.React(frame.Kind)
		c.server.countReaction(c.session, frame.Kind)
	case ActionClear:
		c.view.ClearReactions()
	default:
		c.sendError("unknown action")
	}
}

// writePump drains the send queue and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeNow()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue never blocks; a slow browser loses frames instead of stalling the view.
func (c *Client) enqueue(frame ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		metrics.SyncDropped.WithLabelValues("websocket", "client_slow").Inc()
	}
}

func (c *Client) sendSlide(state broadcast.SlideState) {
	c.enqueue(ServerFrame{Type: "slide", SlideState: &state})
}

func (c *Client) sendReaction(kind string) {
	c.enqueue(ServerFrame{Type: "reaction", Kind: kind})
}

func (c *Client) sendClear() {
	c.enqueue(ServerFrame{Type: "clear-reaction"})
}

func (c *Client) sendError(msg string) {
	c.enqueue(ServerFrame{Type: "error", Error: msg})
}

// closeNow tears down the view and the connection once.
func (c *Client) closeNow() {
	c.once.Do(func() {
		close(c.done)
		if c.view != nil {
			c.view.Close()
		}
		c.server.remove(c)
		// Give writePump a moment to send the close frame.
		time.AfterFunc(writeWait, func() { c.conn.Close() })
	})
}
