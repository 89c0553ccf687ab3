package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"neotrade/src/model"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func dialTestNotifier(t *testing.T, url string) *NatsNotifier {
	t.Helper()
	n, err := DialNatsNotifier(url)
	require.NoError(t, err)
	t.Cleanup(n.Close)
	return n
}

func TestNatsNotifierCarriesChangesAcrossInstances(t *testing.T) {
	srv := natsserver.RunRandClientPortServer()
	defer srv.Shutdown()

	store := newSQLiteStore(t)
	writer := New(store, dialTestNotifier(t, srv.ClientURL()))
	reader := New(store, dialTestNotifier(t, srv.ClientURL()))

	ctx := context.Background()
	rec := newRecorder()
	sub, err := reader.Subscribe(ctx, alice, rec.record, nil)
	require.NoError(t, err)
	defer sub.Close()

	require.Empty(t, rec.next(t))

	// appended through the other instance right after subscribing
	o := newOrder("GOLD (MCX)", model.SideBuy, "62450.00", 1000)
	require.NoError(t, writer.Append(ctx, alice, o))

	snap := rec.waitFor(t, func(s []model.Order) bool { return len(s) == 1 })
	require.Equal(t, o.ID, snap[0].ID)
}

func TestNatsNotifierPublishesChangeEvent(t *testing.T) {
	srv := natsserver.RunRandClientPortServer()
	defer srv.Shutdown()

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	raw, err := nc.SubscribeSync(Subject(alice))
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	n := dialTestNotifier(t, srv.ClientURL())
	require.NoError(t, n.Publish(context.Background(), alice))

	msg, err := raw.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var ev ChangeEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	require.Equal(t, alice.Tenant, ev.Tenant)
	require.Equal(t, alice.UserID, ev.UserID)
	require.NotZero(t, ev.Time)
}

func TestNatsNotifierStopListening(t *testing.T) {
	srv := natsserver.RunRandClientPortServer()
	defer srv.Shutdown()

	n := dialTestNotifier(t, srv.ClientURL())

	calls := make(chan struct{}, 4)
	stop, err := n.Listen(alice, func() { calls <- struct{}{} })
	require.NoError(t, err)

	require.NoError(t, n.Publish(context.Background(), alice))
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not called")
	}

	stop()
	require.NoError(t, n.Publish(context.Background(), alice))
	require.NoError(t, n.conn.Flush())

	select {
	case <-calls:
		t.Fatal("listener called after stop")
	case <-time.After(100 * time.Millisecond):
	}
}
