package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"neotrade/src/model"

	"github.com/nats-io/nats.go"
	logger "github.com/sirupsen/logrus"
)

// NatsNotifier publishes ledger changes on NATS so that every instance of the
// service can push snapshots, whichever instance took the write.
type NatsNotifier struct {
	conn *nats.Conn
}

// ChangeEvent is the payload published for each append.
type ChangeEvent struct {
	Tenant string `json:"tenant"`
	UserID string `json:"user_id"`
	Time   int64  `json:"time"` // ms since epoch
}

func NewNatsNotifier(conn *nats.Conn) *NatsNotifier {
	return &NatsNotifier{conn: conn}
}

// DialNatsNotifier connects to the given NATS url.
func DialNatsNotifier(url string) (*NatsNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("neotrade-ledger"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NatsNotifier{conn: conn}, nil
}

func (n *NatsNotifier) Publish(_ context.Context, id model.Identity) error {
	data, err := json.Marshal(ChangeEvent{
		Tenant: id.Tenant,
		UserID: id.UserID,
		Time:   time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return n.conn.Publish(Subject(id), data)
}

func (n *NatsNotifier) Listen(id model.Identity, fn func()) (func(), error) {
	sub, err := n.conn.Subscribe(Subject(id), func(_ *nats.Msg) {
		fn()
	})
	if err != nil {
		return nil, err
	}
	// the server must know the interest before the first snapshot is read,
	// or a change published in between would be missed
	if err := n.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flush subscription %s: %w", sub.Subject, err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
			logger.WithError(err).WithField("subject", sub.Subject).Warn("nats unsubscribe failed")
		}
	}, nil
}

func (n *NatsNotifier) Close() {
	n.conn.Close()
}

// Subject is the NATS subject of one ledger: LEDGER.<tenant>.<user>.
func Subject(id model.Identity) string {
	return "LEDGER." + subjectToken(id.Tenant) + "." + subjectToken(id.UserID)
}

// subjectToken keeps a value inside a single NATS subject token.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
