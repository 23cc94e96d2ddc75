package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Nertsal/trail-blazer/internal/config"
	"github.com/Nertsal/trail-blazer/internal/game"
	"github.com/Nertsal/trail-blazer/internal/match"
	"github.com/Nertsal/trail-blazer/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
	leaveTimeout   = time.Second
)

var (
	errSendBufferFull = errors.New("send buffer full")
	errClientClosed   = errors.New("client closed")
)

// WebSocketHub accepts websocket clients and bridges them to the match inbox.
// The hub never touches the game model: every client message becomes an
// inbox post, and the match pushes frames back through wsClient.Send.
type WebSocketHub struct {
	match    MatchInterface
	limits   config.ResourceLimits
	origins  *OriginChecker
	conns    *ConnectionLimiter
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

// NewWebSocketHub creates a hub with connection limiting
func NewWebSocketHub(m MatchInterface, limits config.ResourceLimits, origins []string, log *zap.SugaredLogger) *WebSocketHub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &WebSocketHub{
		match:   m,
		limits:  limits,
		origins: NewOriginChecker(origins),
		conns:   NewConnectionLimiter(limits.MaxConnections, limits.MaxConnectionsPerIP),
		log:     log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if h.origins.Allowed(origin) {
		return true
	}
	h.log.Warnw("websocket connection rejected", "origin", origin)
	RecordConnectionRejected("origin")
	return false
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	return h.conns.Active()
}

// HandleWebSocket upgrades the request and serves the client until it
// disconnects. ?codec=msgpack selects the binary codec.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	codec, err := protocol.CodecByName(r.URL.Query().Get("codec"))
	if err != nil {
		RecordConnectionRejected("codec")
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ip := GetClientIP(r)
	if ok, reason := h.conns.Acquire(ip); !ok {
		h.log.Warnw("websocket connection rejected", "ip", ip, "reason", reason)
		RecordConnectionRejected(reason)
		writeError(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	defer func() {
		h.conns.Release(ip)
		UpdateWSConnections(h.conns.Active())
	}()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied to the client.
		h.log.Debugw("websocket upgrade failed", "ip", ip, "error", err)
		return
	}
	UpdateWSConnections(h.conns.Active())

	c := newWSClient(h.match.NextClientID(), conn, codec, h.limits)
	go c.writePump()

	if err := h.match.Post(r.Context(), match.Join{ID: c.id, Conn: c, Codec: codec}); err != nil {
		_ = c.Close()
		return
	}
	h.log.Debugw("websocket client connected", "client", c.id, "ip", ip, "codec", codec.Name())

	h.readPump(r.Context(), c)

	// The match closes the client when it handles Leave. Post with a
	// fresh context since the request one may already be done.
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if err := h.match.Post(ctx, match.Leave{ID: c.id}); err != nil {
		h.log.Warnw("leave not delivered", "client", c.id, "error", err)
	}
	_ = c.Close()
	<-c.stopped
}

// readPump decodes client frames into inbox messages until the connection fails.
func (h *WebSocketHub) readPump(ctx context.Context, c *wsClient) {
	c.conn.SetReadLimit(h.limits.MaxMessageBytes)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debugw("websocket read error", "client", c.id, "error", err)
			}
			return
		}
		wsMessagesTotal.WithLabelValues("in").Inc()

		if !c.limiter.Allow() {
			RecordConnectionRejected("ws_rate")
			continue
		}
		msg, err := c.codec.Decode(data)
		if err != nil {
			wsMessagesInvalid.Inc()
			h.log.Debugw("invalid client message", "client", c.id, "error", err)
			continue
		}
		if err := h.match.Post(ctx, inboxMessage(c.id, msg)); err != nil {
			return
		}
	}
}

// inboxMessage converts a validated client message into a match inbox message.
func inboxMessage(id game.ClientID, msg protocol.ClientMessage) any {
	switch msg.Type {
	case protocol.ClientSubmitMove:
		return match.Submit{ID: id, Move: *msg.Move}
	case protocol.ClientSetCustomization:
		return match.Customize{ID: id, Customization: *msg.Customization}
	case protocol.ClientSpectate:
		return match.Spectate{ID: id}
	default:
		return match.Pong{ID: id}
	}
}

type outbound struct {
	data   []byte
	binary bool
}

// wsClient is one websocket connection. It implements match.Conn.
type wsClient struct {
	id      game.ClientID
	conn    *websocket.Conn
	codec   protocol.Codec
	limiter *rate.Limiter

	send      chan outbound
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newWSClient(id game.ClientID, conn *websocket.Conn, codec protocol.Codec, limits config.ResourceLimits) *wsClient {
	return &wsClient{
		id:      id,
		conn:    conn,
		codec:   codec,
		limiter: rate.NewLimiter(rate.Limit(limits.WSMessagesPerSec), limits.WSBurst),
		send:    make(chan outbound, sendBufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Send queues a frame without blocking.
func (c *wsClient) Send(data []byte, binary bool) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.send <- outbound{data: data, binary: binary}:
		return nil
	default:
		return errSendBufferFull
	}
}

// Close stops the write pump, which closes the socket.
func (c *wsClient) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *wsClient) writePump() {
	defer close(c.stopped)
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			typ := websocket.TextMessage
			if msg.binary {
				typ = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(typ, msg.data); err != nil {
				return
			}
			wsMessagesTotal.WithLabelValues("out").Inc()
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
