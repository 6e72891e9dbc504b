package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// WebSocket message types for the analysis status protocol
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeStatus   = "status"
	MsgTypeComplete = "complete"
	MsgTypeError    = "error"
	MsgTypePong     = "pong"
)

// WSMessage is the envelope for every WebSocket message
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error message
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// AnalysisSocketHandler pushes analysis session snapshots over a WebSocket
// until the session reaches a terminal status.
type AnalysisSocketHandler struct {
	sessionMgr   SessionManager
	upgrader     websocket.Upgrader
	pollInterval time.Duration
	timeout      time.Duration
}

// NewAnalysisSocketHandler creates a new WebSocket status handler
func NewAnalysisSocketHandler(sessionMgr SessionManager) *AnalysisSocketHandler {
	return &AnalysisSocketHandler{
		sessionMgr: sessionMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		pollInterval: 100 * time.Millisecond,
		timeout:      5 * time.Minute,
	}
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	return c.ws.WriteJSON(msg)
}

func (c *wsConn) sendError(id, message, code string) {
	if err := c.send(WSMessage{
		Type:    MsgTypeError,
		ID:      id,
		Payload: mustJSON(WSErrorResponse{Message: message, Code: code}),
	}); err != nil {
		log.Debugf("[WebSocket] Failed to send error: %v", err)
	}
}

// HandleAnalysisSocket upgrades the connection and streams status updates
func (h *AnalysisSocketHandler) HandleAnalysisSocket(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}
	if _, ok := h.sessionMgr.GetSession(id); !ok {
		return NewNotFoundError("analysis", id)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	conn := &wsConn{ws: ws}
	log.Debugf("[WebSocket %s] Client connected", shortID(id))

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	timeout := time.NewTimer(h.timeout)
	defer timeout.Stop()

	var lastStatus string
	for {
		sess, ok := h.sessionMgr.GetSession(id)
		if !ok {
			conn.sendError(id, "analysis not found", "NOT_FOUND")
			return nil
		}

		msgType := MsgTypeStatus
		if sess.Done() {
			msgType = MsgTypeComplete
		}

		if string(sess.Status) != lastStatus || msgType == MsgTypeComplete {
			lastStatus = string(sess.Status)
			if err := conn.send(WSMessage{Type: msgType, ID: id, Payload: mustJSON(sess)}); err != nil {
				log.Debugf("[WebSocket %s] Send failed: %v", shortID(id), err)
				return nil
			}
		}

		if msgType == MsgTypeComplete {
			h.sessionMgr.TouchSession(id)
			conn.mu.Lock()
			ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "analysis finished"))
			conn.mu.Unlock()
			return nil
		}

		select {
		case <-ticker.C:
		case <-closed:
			log.Debugf("[WebSocket %s] Client disconnected", shortID(id))
			return nil
		case <-timeout.C:
			conn.sendError(id, "stream timeout", "TIMEOUT")
			return nil
		}
	}
}

// readLoop answers pings and detects client disconnects.
func (h *AnalysisSocketHandler) readLoop(conn *wsConn, closed chan<- struct{}) {
	defer close(closed)
	for {
		var msg WSMessage
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debugf("[WebSocket] Connection error: %v", err)
			}
			return
		}

		switch msg.Type {
		case MsgTypePing:
			conn.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
		default:
			conn.sendError(msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// shortID truncates an ID for logging
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
