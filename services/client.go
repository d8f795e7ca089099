package services

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 32
)

type Client struct {
	id       string
	identity Identity
	conn     *websocket.Conn
	hub      *Hub
	engine   *Engine
	log      *zap.SugaredLogger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id string, identity Identity, conn *websocket.Conn, hub *Hub, engine *Engine, log *zap.SugaredLogger) *Client {
	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		hub:      hub,
		engine:   engine,
		log:      log,
		send:     make(chan []byte, sendBuffer),
	}
}

func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.engine.Disconnect(context.Background(), c.id)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	session := Session{ConnID: c.id, Identity: c.identity}
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Infof("[Client %s] disconnected normally", c.id)
			} else {
				c.log.Infof("[Client %s] read error: %v", c.id, err)
			}
			return
		}

		func(msg []byte) {
			defer func() {
				if r := recover(); r != nil {
					c.log.Errorf("[Client %s] recovered from panic: %v", c.id, r)
				}
			}()
			c.engine.HandleRaw(context.Background(), session, msg)
		}(message)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.log.Infof("[Client %s] write error: %v", c.id, err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
