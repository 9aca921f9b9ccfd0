package feed

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxInboundMessage = 4096

// client is one subscriber connection.
type client struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	opts    Options
	logger  *zap.Logger
	onClose func(id string)
}

func newClient(id string, ws *websocket.Conn, opts Options, logger *zap.Logger, onClose func(string)) *client {
	return &client{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, opts.SendBuffer),
		done:    make(chan struct{}),
		opts:    opts,
		logger:  logger,
		onClose: onClose,
	}
}

func (c *client) enqueue(msg []byte) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.logger.Warn("dropping feed event, buffer full", zap.String("subscriber_id", c.id))
	}
}

// readPump only services control frames; subscribers have nothing to say.
func (c *client) readPump() {
	defer c.close()
	pongWait := 2 * c.opts.PingInterval
	c.ws.SetReadLimit(maxInboundMessage)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.logger.Debug("feed connection read closed", zap.String("subscriber_id", c.id), zap.Error(err))
			return
		}
	}
}

func (c *client) writePump() {
	defer c.close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("feed write failed", zap.String("subscriber_id", c.id), zap.Error(err))
				return
			}
		}
	}
}

// ping may run concurrently with writePump; WriteControl is safe for that.
func (c *client) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout))
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(c.opts.WriteTimeout),
		)
		_ = c.ws.Close()
		if c.onClose != nil {
			c.onClose(c.id)
		}
	})
}
