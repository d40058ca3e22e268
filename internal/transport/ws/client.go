package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xiaot623/rolo/internal/domain"
)

// Client is a WebSocket chat client for a running rolo server. A background
// reader keeps the connection alive between turns; control frames such as
// pings are only answered while a read is in progress.
type Client struct {
	conn      *websocket.Conn
	sessionID string

	writeMu sync.Mutex
	frames  chan []byte
	readErr error
	done    chan struct{}
	once    sync.Once
}

// Dial connects to addr (e.g. ws://localhost:8765/v1/sessions/s1/ws) and
// waits for hello_ack.
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read hello_ack: %w", err)
	}
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unmarshal hello_ack: %w", err)
	}
	if base.Type != TypeHelloAck {
		conn.Close()
		return nil, fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	c := &Client{
		conn:      conn,
		sessionID: base.SessionID,
		frames:    make(chan []byte, 64),
		done:      make(chan struct{}),
	}
	go c.readMessages()
	return c, nil
}

// readMessages forwards data frames to Send until the connection fails.
// readErr is set before frames is closed.
func (c *Client) readMessages() {
	defer close(c.frames)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}
		select {
		case c.frames <- data:
		case <-c.done:
			c.readErr = websocket.ErrCloseSent
			return
		}
	}
}

// SessionID returns the session the connection is bound to.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.once.Do(func() { close(c.done) })
	_ = c.writeMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Cancel asks the server to cancel the running turn. It is safe to call while
// Send is running.
func (c *Client) Cancel() error {
	return c.writeJSON(BaseMessage{Type: TypeCancelTurn, Ts: time.Now().UnixMilli(), SessionID: c.sessionID})
}

func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// Send runs one turn: it sends content and reads events until the turn is
// done. onEvent may be nil. Send must not be called concurrently.
func (c *Client) Send(content string, onEvent func(domain.TurnEvent)) (*domain.TurnResponse, error) {
	requestID := fmt.Sprintf("req_%d", time.Now().UnixNano())
	msg := UserMessage{
		BaseMessage: BaseMessage{
			Type:      TypeUserMessage,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
			SessionID: c.sessionID,
		},
		Content: content,
	}
	if err := c.writeJSON(msg); err != nil {
		return nil, fmt.Errorf("write user_message: %w", err)
	}

	for {
		data, ok := <-c.frames
		if !ok {
			return nil, fmt.Errorf("read: %w", c.readErr)
		}
		var base BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		if base.RequestID != "" && base.RequestID != requestID {
			continue
		}

		switch base.Type {
		case TypeEvent:
			var ev EventMessage
			if err := json.Unmarshal(data, &ev); err != nil {
				return nil, fmt.Errorf("unmarshal event: %w", err)
			}
			if onEvent != nil {
				onEvent(ev.Event)
			}
		case TypeDone:
			var done DoneMessage
			if err := json.Unmarshal(data, &done); err != nil {
				return nil, fmt.Errorf("unmarshal done: %w", err)
			}
			if done.Response != nil && done.Response.Error != nil {
				return done.Response, fmt.Errorf("%s: %s", done.Response.Error.Code, done.Response.Error.Message)
			}
			return done.Response, nil
		case TypeError:
			var errMsg ErrorMessage
			if err := json.Unmarshal(data, &errMsg); err != nil {
				return nil, fmt.Errorf("unmarshal error: %w", err)
			}
			return nil, fmt.Errorf("%s: %s", errMsg.Code, errMsg.Message)
		}
	}
}
