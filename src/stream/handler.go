// Package stream pushes live ticks and ledger snapshots over WebSocket.
package stream

import (
	"context"
	"net/http"
	"time"

	"neotrade/src/auth"
	"neotrade/src/identity"
	"neotrade/src/ledger"
	"neotrade/src/model"
	"neotrade/src/positions"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 16
)

type TickFeed interface {
	Subscribe() (<-chan []model.Tick, func())
	Snapshot() []model.Tick
	Prices() map[string]decimal.Decimal
}

type LedgerSubscriber interface {
	Subscribe(ctx context.Context, id model.Identity, onSnapshot func([]model.Order), onError func(error)) (*ledger.Subscription, error)
}

// Handler serves one live terminal per WebSocket connection. Ticks start
// flowing right away; the ledger feed starts once the identity resolves.
type Handler struct {
	feed     TickFeed
	ledger   LedgerSubscriber
	resolver identity.Resolver
	upgrader websocket.Upgrader
}

func NewHandler(feed TickFeed, l LedgerSubscriber, resolver identity.Resolver) *Handler {
	return &Handler{
		feed:     feed,
		ledger:   l,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is handled by the router
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	connID := uuid.NewString()
	c := &client{
		conn: conn,
		send: make(chan interface{}, sendBuffer),
		log:  logger.WithFields(logger.Fields{"component": "stream", "conn": connID}),
	}
	c.log.Info("client connected")

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		c.writePump(ctx)
	}()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		c.readPump()
		cancel()
	}()

	ticks, stopTicks := h.feed.Subscribe()
	c.offer(ticksMessage{Type: TypeTicks, Ticks: h.feed.Snapshot()})

	session := identity.NewSession(h.resolver, auth.Credential(r))
	session.Start(ctx)
	settled := session.Done()

	var sub *ledger.Subscription

loop:
	for {
		select {
		case <-ctx.Done():
			break loop

		case batch, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			c.offer(ticksMessage{Type: TypeTicks, Ticks: batch})

		case <-settled:
			settled = nil
			sub = h.startLedger(ctx, c, session)
		}
	}

	// teardown: no orphaned feed or ledger listeners survive the connection
	if sub != nil {
		sub.Close()
	}
	stopTicks()
	<-writeDone
	<-readDone
	c.log.Info("client disconnected")
}

func (h *Handler) startLedger(ctx context.Context, c *client, session *identity.Session) *ledger.Subscription {
	id, err := session.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		c.log.WithError(err).Warn("identity unresolved, ledger stream disabled")
		c.deliver(ctx, errorMessage{Type: TypeError, Error: "identity unresolved"})
		return nil
	}

	log := c.log.WithField("user", id.UserID)
	c.deliver(ctx, identityMessage{
		Type:      TypeIdentity,
		UserID:    id.UserID,
		Anonymous: id.Anonymous,
		Token:     session.Credential(),
	})

	sub, err := h.ledger.Subscribe(ctx, id,
		func(orders []model.Order) {
			c.deliver(ctx, ledgerMessage{
				Type:      TypeLedger,
				Orders:    orders,
				Positions: positions.Holdings(orders, h.feed.Prices()),
			})
		},
		func(err error) {
			log.WithError(err).Error("ledger snapshot failed")
			c.deliver(ctx, errorMessage{Type: TypeError, Error: "ledger unavailable"})
		},
	)
	if err != nil {
		log.WithError(err).Error("ledger subscription failed")
		c.deliver(ctx, errorMessage{Type: TypeError, Error: "ledger unavailable"})
		return nil
	}
	return sub
}

type client struct {
	conn *websocket.Conn
	send chan interface{}
	log  *logger.Entry
}

// offer queues a message that may be dropped when the client is behind.
func (c *client) offer(msg interface{}) {
	select {
	case c.send <- msg:
	default:
		c.log.Debug("client is behind, dropping tick batch")
	}
}

// deliver queues a message that must not be dropped.
func (c *client) deliver(ctx context.Context, msg interface{}) {
	select {
	case c.send <- msg:
	case <-ctx.Done():
	}
}

// readPump only watches for pongs and the close frame.
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("websocket read error")
			}
			return
		}
	}
}

func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.WithError(err).Warn("websocket write failed")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
