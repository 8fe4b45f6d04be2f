package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// feedClient is one connected live-feed subscriber.
type feedClient struct {
	conn      *websocket.Conn
	send      chan []byte
	sub       *nats.Subscription
	logger    *zap.Logger
	closeOnce sync.Once
}

// WebSocketConfig contains configuration for WebSocket connections.
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration.
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 64 * 1024,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, this should be more restrictive
		return true
	},
}

// FeedWebSocketHandler streams detected events, sentiment updates and
// alerts to connected clients. The feed is one-way; inbound frames beyond
// control messages are discarded.
func FeedWebSocketHandler(natsConn *nats.Conn, eventsTopic string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &feedClient{
			conn:   conn,
			send:   make(chan []byte, 256),
			logger: logger,
		}

		// One wildcard subscription covers the event, sentiment and alert
		// subjects under the topic prefix.
		sub, err := natsConn.Subscribe(eventsTopic+".>", func(msg *nats.Msg) {
			envelope, err := json.Marshal(map[string]interface{}{
				"subject": msg.Subject,
				"payload": json.RawMessage(msg.Data),
			})
			if err != nil {
				return
			}

			select {
			case client.send <- envelope:
			default:
				// Slow consumer; drop rather than block the bus callback.
			}
		})
		if err != nil {
			logger.Error("feed subscription failed", zap.Error(err))
			conn.Close()
			return
		}
		client.sub = sub

		go client.writePump()
		go client.readPump()

		welcome, _ := json.Marshal(map[string]interface{}{
			"type": "welcome",
			"time": time.Now().UTC(),
		})
		client.send <- welcome

		logger.Info("feed client connected", zap.String("remote", r.RemoteAddr))
	}
}

// readPump drains the connection so control frames are processed, and
// tears the client down when the peer goes away.
func (c *feedClient) readPump() {
	config := DefaultWebSocketConfig()

	defer c.close()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket error", zap.Error(err))
			}
			break
		}
	}
}

// writePump forwards queued feed messages and keeps the connection alive
// with pings.
func (c *feedClient) writePump() {
	config := DefaultWebSocketConfig()
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close tears the client down. Both pumps call it on their exit paths, so
// the teardown must be safe to reach from two goroutines at once.
func (c *feedClient) close() {
	c.closeOnce.Do(func() {
		if c.sub != nil {
			c.sub.Unsubscribe()
		}
		c.conn.Close()
	})
}
