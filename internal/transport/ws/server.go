package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/xiaot623/rolo/internal/domain"
	"github.com/xiaot623/rolo/internal/service"
	"go.uber.org/zap"
)

// Chatter runs conversation turns. It is satisfied by *service.Service.
type Chatter interface {
	CreateSession(ctx context.Context, req domain.CreateSessionRequest) (*domain.CreateSessionResponse, error)
	SendMessage(ctx context.Context, sessionID, content string, onEvent service.EventHandler) (*domain.TurnResponse, error)
}

// Options tunes the connection keep-alive.
type Options struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

// DefaultOptions returns the keep-alive settings used by rolo serve.
func DefaultOptions() Options {
	return Options{
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 65536,
	}
}

// Server handles WebSocket connections.
type Server struct {
	chat     Chatter
	opts     Options
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(chat Chatter, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		chat:   chat,
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// connection is one client socket bound to a session. Turns run one at a
// time on their own goroutine so the reader keeps answering pings.
type connection struct {
	id        string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
	turns     chan UserMessage

	mu     sync.Mutex
	cancel context.CancelFunc
	busy   bool
}

// HandleWebSocket upgrades GET /v1/sessions/:session_id/ws.
func (s *Server) HandleWebSocket(c echo.Context) error {
	sessionID := c.Param("session_id")
	if _, err := s.chat.CreateSession(c.Request().Context(), domain.CreateSessionRequest{SessionID: sessionID}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return nil
	}
	ws.SetReadLimit(s.opts.MaxMessageSize)

	conn := &connection{
		id:        uuid.New().String(),
		sessionID: sessionID,
		conn:      ws,
		send:      make(chan []byte, 256),
		turns:     make(chan UserMessage, 1),
	}
	s.logger.Info("websocket connected", zap.String("conn_id", conn.id), zap.String("session_id", sessionID))

	s.sendJSON(conn, BaseMessage{Type: TypeHelloAck, Ts: time.Now().UnixMilli(), SessionID: sessionID})

	ctx, cancel := context.WithCancel(context.Background())
	go s.writePump(conn)
	go s.turnLoop(ctx, conn)
	go func() {
		s.readPump(conn)
		cancel()
	}()
	return nil
}

// readPump reads client messages until the socket closes.
func (s *Server) readPump(conn *connection) {
	defer func() {
		conn.cancelTurn()
		close(conn.turns)
		conn.conn.Close()
		s.logger.Info("websocket disconnected", zap.String("conn_id", conn.id))
	}()

	conn.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	})

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", zap.String("conn_id", conn.id), zap.Error(err))
			}
			return
		}
		conn.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		s.handleMessage(conn, data)
	}
}

// writePump serializes writes and sends pings.
func (s *Server) writePump(conn *connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		conn.conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.send:
			conn.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write websocket message", zap.String("conn_id", conn.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleMessage(conn *connection, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Content == "" {
			s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "user_message requires content")
			return
		}
		if !conn.tryStart() {
			s.sendError(conn, msg.RequestID, ErrorCodeTurnInProgress, "a turn is already running on this session")
			return
		}
		conn.turns <- msg
	case TypeCancelTurn:
		conn.cancelTurn()
	default:
		s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

// turnLoop runs queued turns. Closing the socket cancels the running turn.
func (s *Server) turnLoop(ctx context.Context, conn *connection) {
	defer close(conn.send)
	for msg := range conn.turns {
		turnCtx, cancel := context.WithCancel(ctx)
		conn.setCancel(cancel)

		resp, err := s.chat.SendMessage(turnCtx, conn.sessionID, msg.Content, func(event domain.TurnEvent) {
			s.sendJSON(conn, EventMessage{
				BaseMessage: BaseMessage{Type: TypeEvent, Ts: event.Ts, RequestID: msg.RequestID, SessionID: conn.sessionID},
				Event:       event,
			})
		})
		cancel()
		conn.finish()

		switch {
		case resp != nil:
			s.sendJSON(conn, DoneMessage{
				BaseMessage: BaseMessage{Type: TypeDone, Ts: time.Now().UnixMilli(), RequestID: msg.RequestID, SessionID: conn.sessionID},
				Response:    resp,
			})
		case errors.Is(err, service.ErrSessionNotFound):
			s.sendError(conn, msg.RequestID, ErrorCodeSessionNotFound, err.Error())
		case err != nil:
			s.sendError(conn, msg.RequestID, ErrorCodeTurnFailed, err.Error())
		}
	}
}

func (s *Server) sendError(conn *connection, requestID, code, message string) {
	s.sendJSON(conn, ErrorMessage{
		BaseMessage: BaseMessage{Type: TypeError, Ts: time.Now().UnixMilli(), RequestID: requestID, SessionID: conn.sessionID},
		Code:        code,
		Message:     message,
	})
}

func (s *Server) sendJSON(conn *connection, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal websocket message", zap.Error(err))
		return
	}
	select {
	case conn.send <- data:
	default:
		s.logger.Warn("websocket send buffer full, dropping message", zap.String("conn_id", conn.id))
	}
}

func (c *connection) tryStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *connection) setCancel(cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
}

func (c *connection) finish() {
	c.mu.Lock()
	c.busy = false
	c.cancel = nil
	c.mu.Unlock()
}

func (c *connection) cancelTurn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}
