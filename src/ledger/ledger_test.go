package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"neotrade/src/model"
	"neotrade/src/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var alice = model.Identity{Tenant: "neotrade-neo-rules", UserID: "alice"}

func newSQLiteStore(t *testing.T) *repository.OrderRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection: shared-cache memory databases lock tables across connections
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Order{}))

	return (&repository.OrderRepository{}).WithDB(db)
}

func newOrder(symbol string, side model.Side, price string, ts int64) *model.Order {
	return &model.Order{
		Symbol:    symbol,
		Side:      side,
		Price:     decimal.RequireFromString(price),
		Quantity:  1,
		Timestamp: ts,
		Status:    model.OrderStatusExecuted,
	}
}

// snapshotRecorder collects pushed snapshots for assertions.
type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots [][]model.Order
	ch        chan []model.Order
}

func newRecorder() *snapshotRecorder {
	return &snapshotRecorder{ch: make(chan []model.Order, 16)}
}

func (r *snapshotRecorder) record(orders []model.Order) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, orders)
	r.mu.Unlock()
	r.ch <- orders
}

func (r *snapshotRecorder) next(t *testing.T) []model.Order {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for ledger snapshot")
		return nil
	}
}

// waitFor drains snapshots until one satisfies cond.
func (r *snapshotRecorder) waitFor(t *testing.T, cond func([]model.Order) bool) []model.Order {
	t.Helper()
	for {
		s := r.next(t)
		if cond(s) {
			return s
		}
	}
}

func TestAppendThenSubscribeReadsBack(t *testing.T) {
	ctx := context.Background()
	l := New(newSQLiteStore(t), NewLocalNotifier())

	rec := newRecorder()
	sub, err := l.Subscribe(ctx, alice, rec.record, nil)
	require.NoError(t, err)
	defer sub.Close()

	require.Empty(t, rec.next(t))

	o := newOrder("NIFTY 50 (Index)", model.SideCall, "22453.20", 1000)
	require.NoError(t, l.Append(ctx, alice, o))
	require.NotEmpty(t, o.ID)
	require.Equal(t, alice.Tenant, o.Tenant)
	require.Equal(t, alice.UserID, o.UserID)

	snap := rec.waitFor(t, func(s []model.Order) bool { return len(s) == 1 })
	got := snap[0]
	require.Equal(t, o.ID, got.ID)
	require.Equal(t, o.Symbol, got.Symbol)
	require.Equal(t, o.Side, got.Side)
	require.True(t, o.Price.Equal(got.Price))
	require.Equal(t, o.Quantity, got.Quantity)
	require.Equal(t, o.Timestamp, got.Timestamp)
	require.Equal(t, o.Status, got.Status)
}

func TestSnapshotIsNewestFirst(t *testing.T) {
	ctx := context.Background()
	l := New(newSQLiteStore(t), nil)

	require.NoError(t, l.Append(ctx, alice, newOrder("X", model.SideBuy, "100", 1)))
	require.NoError(t, l.Append(ctx, alice, newOrder("X", model.SideSell, "110", 3)))
	require.NoError(t, l.Append(ctx, alice, newOrder("X", model.SideBuy, "105", 2)))

	snap, err := l.Snapshot(ctx, alice)
	require.NoError(t, err)
	require.Len(t, snap, 3)
	require.Equal(t, int64(3), snap[0].Timestamp)
	require.Equal(t, int64(2), snap[1].Timestamp)
	require.Equal(t, int64(1), snap[2].Timestamp)
}

func TestUnresolvedIdentityIsRejected(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	l := New(store, nil)

	err := l.Append(ctx, model.Identity{}, newOrder("X", model.SideBuy, "1", 1))
	require.ErrorIs(t, err, ErrIdentityUnresolved)

	_, err = l.Snapshot(ctx, model.Identity{Tenant: "t"})
	require.ErrorIs(t, err, ErrIdentityUnresolved)

	_, err = l.Subscribe(ctx, model.Identity{}, func([]model.Order) {}, nil)
	require.ErrorIs(t, err, ErrIdentityUnresolved)

	require.Zero(t, store.calls, "store must not be touched")
}

func TestAppendFailureIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	notifier := NewLocalNotifier()
	l := New(&failingStore{err: errors.New("disk full")}, notifier)

	published := 0
	stop, err := notifier.Listen(alice, func() { published++ })
	require.NoError(t, err)
	defer stop()

	err = l.Append(ctx, alice, newOrder("X", model.SideBuy, "1", 1))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "append", perr.Op)
	require.Zero(t, published, "failed appends are not announced")
}

func TestSubscriptionReportsSnapshotErrors(t *testing.T) {
	l := New(&failingStore{err: errors.New("unavailable")}, nil)

	errs := make(chan error, 1)
	sub, err := l.Subscribe(context.Background(), alice, func([]model.Order) {
		t.Errorf("no snapshot expected")
	}, func(err error) { errs <- err })
	require.NoError(t, err)
	defer sub.Close()

	select {
	case err := <-errs:
		var perr *PersistenceError
		require.ErrorAs(t, err, &perr)
	case <-time.After(2 * time.Second):
		t.Fatal("expected snapshot error")
	}
}

func TestSubscriptionCloseReleasesListener(t *testing.T) {
	notifier := NewLocalNotifier()
	l := New(newSQLiteStore(t), notifier)

	rec := newRecorder()
	sub, err := l.Subscribe(context.Background(), alice, rec.record, nil)
	require.NoError(t, err)
	rec.next(t)
	require.Equal(t, 1, notifier.Listeners(alice))

	sub.Close()
	sub.Close()

	require.Equal(t, 0, notifier.Listeners(alice))
	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription should be done after Close")
	}
}

func TestSubscriptionStopsWithContext(t *testing.T) {
	notifier := NewLocalNotifier()
	l := New(newSQLiteStore(t), notifier)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := l.Subscribe(ctx, alice, func([]model.Order) {}, nil)
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop with its context")
	}
	require.Equal(t, 0, notifier.Listeners(alice))
}

func TestSubjectSanitizesTokens(t *testing.T) {
	require.Equal(t, "LEDGER.neotrade-neo-rules.a_b_c", Subject(model.Identity{Tenant: "neotrade-neo-rules", UserID: "a.b c"}))
}

type failingStore struct {
	err   error
	calls int
}

func (s *failingStore) Append(context.Context, *model.Order) error {
	s.calls++
	return s.err
}

func (s *failingStore) ListByUser(context.Context, string, string) ([]model.Order, error) {
	s.calls++
	return nil, s.err
}

func (s *failingStore) FindByClientOrderID(context.Context, string, string, string) (*model.Order, error) {
	s.calls++
	return nil, s.err
}

func TestNewNotifierSelection(t *testing.T) {
	n, release, err := NewNotifier(&Config{Notifier: "local"})
	require.NoError(t, err)
	require.IsType(t, &LocalNotifier{}, n)
	release()

	_, _, err = NewNotifier(&Config{Notifier: "kafka"})
	require.Error(t, err)

	// nothing listens on port 1
	_, _, err = NewNotifier(&Config{Notifier: "nats", NatsURL: "nats://127.0.0.1:1"})
	require.Error(t, err)
}
