package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Ancillary-AGI/titan-sub001/internal/infrastructure/monitoring"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/coordinator"
	"github.com/Ancillary-AGI/titan-sub001/internal/security/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	streamBuffer   = 128
	outboxSize     = 16
)

// Message is a client request
type Message struct {
	Type  string `json:"type"`
	TabID string `json:"tabId,omitempty"`
}

// Handler manages WebSocket connections
type Handler struct {
	security *coordinator.Coordinator
	metrics  *monitoring.Metrics
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(security *coordinator.Coordinator, metrics *monitoring.Metrics, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		security: security,
		metrics:  metrics,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // origin policy is enforced by the CORS middleware
			},
		},
	}
}

// session is one connected client. Only the write loop touches conn for writing.
type session struct {
	conn   *websocket.Conn
	outbox chan gin.H
	quit   chan struct{}

	mu  sync.Mutex
	tab string
}

func (s *session) filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

func (s *session) setFilter(tab string) {
	s.mu.Lock()
	s.tab = tab
	s.mu.Unlock()
}

// HandleConnection upgrades the request and streams events until the
// client disconnects or the event log closes.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	s := &session{
		conn:   conn,
		outbox: make(chan gin.H, outboxSize),
		quit:   make(chan struct{}),
		tab:    c.Query("tab"),
	}
	defer close(s.quit)
	stream, cancel := h.security.Subscribe(streamBuffer)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readLoop(s)
	}()

	h.writeLoop(s, stream, done)
}

func (h *Handler) readLoop(s *session) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		h.countMessage("in", msg.Type)

		var reply gin.H
		switch msg.Type {
		case "subscribe":
			s.setFilter(msg.TabID)
			reply = gin.H{"type": "subscribed", "tabId": msg.TabID}
		case "score":
			reply = gin.H{"type": "score", "tabId": msg.TabID, "score": h.security.GetThreatScore(msg.TabID)}
		case "ping":
			reply = gin.H{"type": "pong"}
		default:
			reply = errorMessage("unknown message type")
		}
		reply["timestamp"] = time.Now().Unix()
		select {
		case s.outbox <- reply:
		case <-s.quit:
			return
		}
	}
}

func (h *Handler) writeLoop(s *session, stream <-chan events.Event, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := h.send(s, gin.H{
		"type":      "system",
		"message":   "Connected to security event stream",
		"tabId":     s.filter(),
		"timestamp": time.Now().Unix(),
	}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case reply := <-s.outbox:
			if err := h.send(s, reply); err != nil {
				return
			}
		case e, ok := <-stream:
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if tab := s.filter(); tab != "" && tab != e.TabID {
				continue
			}
			if err := h.send(s, gin.H{"type": "event", "event": e, "timestamp": time.Now().Unix()}); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(s *session, data gin.H) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(data); err != nil {
		h.log.Debug("websocket write failed", zap.Error(err))
		return err
	}
	if t, ok := data["type"].(string); ok {
		h.countMessage("out", t)
	}
	return nil
}

func (h *Handler) countMessage(direction, msgType string) {
	if h.metrics == nil {
		return
	}
	switch msgType {
	case "subscribe", "subscribed", "score", "ping", "pong", "system", "event", "error":
	default:
		msgType = "unknown"
	}
	h.metrics.RecordWSMessage(direction, msgType)
}

func errorMessage(msg string) gin.H {
	return gin.H{"type": "error", "message": msg}
}
