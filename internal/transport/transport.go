// Package transport binds the session layer's abstract ClientChannel to a
// real gorilla/websocket connection: the upgrader, origin validation, and
// per-connection read/write pump goroutines, grounded on the teacher's
// Client/Server pattern in server/websocket.go.
package transport

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

// isValidOrigin allows same-origin and localhost connections; same policy
// as the teacher's isValidOrigin, generalized so a production deployment
// can extend the allow-list.
func isValidOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		originURL, err := url.Parse(origin)
		if err != nil {
			log.Printf("transport: invalid origin URL: %s", origin)
			return false
		}
		if r.Host == originURL.Host {
			return true
		}
		if strings.HasPrefix(originURL.Host, "localhost:") ||
			strings.HasPrefix(originURL.Host, "127.0.0.1:") ||
			originURL.Host == "localhost" || originURL.Host == "127.0.0.1" {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		log.Printf("transport: rejected connection from origin: %s", origin)
		return false
	}
}

// NewUpgrader builds a websocket.Upgrader whose origin check additionally
// allows the given extra origins (e.g. a production front-end's domain).
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin:       isValidOrigin(allowedOrigins),
		EnableCompression: true,
	}
}

// wsChannel adapts a *websocket.Conn to match.ClientChannel: send is
// non-blocking with a bounded buffer, dropping (and logging) on a full
// channel exactly as the teacher's broadcast loop does.
type wsChannel struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewChannel wraps conn and starts its read/write pumps. onMessage is
// invoked from the read pump for every frame received; onClose is invoked
// once, from the read pump, when it stops. A write failure closes the
// connection, which ends the read pump.
func NewChannel(conn *websocket.Conn, onMessage func([]byte), onClose func()) *wsChannel {
	c := &wsChannel{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writePump()
	go c.readPump(onMessage, onClose)
	return c
}

// Send enqueues messageBytes for delivery; if the outbound buffer is full
// the message is dropped rather than blocking the caller (the caller is
// typically GameSession.broadcast, which must never stall on one slow
// client).
func (c *wsChannel) Send(messageBytes []byte) error {
	select {
	case c.send <- messageBytes:
		return nil
	default:
		log.Printf("transport: send buffer full, dropping message")
		return nil
	}
}

// IsAlive reports whether the channel has not yet been closed.
func (c *wsChannel) IsAlive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close tears down the connection; safe to call more than once.
func (c *wsChannel) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.conn.Close()
}

func (c *wsChannel) readPump(onMessage func([]byte), onClose func()) {
	defer func() {
		c.Close()
		if onClose != nil {
			onClose()
		}
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("transport: read error: %v", err)
			}
			return
		}
		if onMessage != nil {
			onMessage(data)
		}
	}
}

func (c *wsChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
