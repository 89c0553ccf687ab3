// Package ledger is the append-only record of a user's trade events.
//
// The ledger never mutates or deletes an order. Readers get whole snapshots,
// either once (Snapshot) or pushed on every change (Subscribe).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"neotrade/src/model"

	logger "github.com/sirupsen/logrus"
)

// ErrIdentityUnresolved is returned when an operation is attempted before the
// caller's identity is known. Nothing is read or written.
var ErrIdentityUnresolved = errors.New("ledger: identity not resolved")

// PersistenceError wraps a failure of the durable order store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the durable order store.
type Store interface {
	Append(ctx context.Context, order *model.Order) error
	ListByUser(ctx context.Context, tenant string, userID string) ([]model.Order, error)
	FindByClientOrderID(ctx context.Context, tenant string, userID string, clientOrderID string) (*model.Order, error)
}

type Ledger struct {
	store    Store
	notifier Notifier
	log      *logger.Entry
}

func New(store Store, notifier Notifier) *Ledger {
	if notifier == nil {
		notifier = NewLocalNotifier()
	}
	return &Ledger{
		store:    store,
		notifier: notifier,
		log:      logger.WithField("component", "ledger"),
	}
}

// Append durably records one order for the identity. Tenant and user are
// stamped from the identity; on success order.ID holds the store id.
func (l *Ledger) Append(ctx context.Context, id model.Identity, order *model.Order) error {
	if !id.Resolved() {
		return ErrIdentityUnresolved
	}

	order.Tenant = id.Tenant
	order.UserID = id.UserID

	if err := l.store.Append(ctx, order); err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}

	// The order is durable at this point; a lost notification only delays
	// subscribers until the next change, so it is not reported as a failure.
	if err := l.notifier.Publish(ctx, id); err != nil {
		l.log.WithError(err).WithField("user", id.UserID).Warn("failed to publish ledger change")
	}

	return nil
}

// Snapshot returns every order of the identity, newest first.
func (l *Ledger) Snapshot(ctx context.Context, id model.Identity) ([]model.Order, error) {
	if !id.Resolved() {
		return nil, ErrIdentityUnresolved
	}

	orders, err := l.store.ListByUser(ctx, id.Tenant, id.UserID)
	if err != nil {
		return nil, &PersistenceError{Op: "snapshot", Err: err}
	}
	SortNewestFirst(orders)
	return orders, nil
}

// FindByClientOrderID returns the order carrying an idempotency token, or nil.
func (l *Ledger) FindByClientOrderID(ctx context.Context, id model.Identity, clientOrderID string) (*model.Order, error) {
	if !id.Resolved() {
		return nil, ErrIdentityUnresolved
	}

	order, err := l.store.FindByClientOrderID(ctx, id.Tenant, id.UserID, clientOrderID)
	if err != nil {
		return nil, &PersistenceError{Op: "lookup", Err: err}
	}
	return order, nil
}

// Subscribe delivers the full snapshot once immediately and again after every
// change, until ctx is cancelled or the subscription is closed. Deliveries are
// sequential; bursts of changes may be coalesced into one snapshot.
// onError receives snapshot read failures; nil means log only.
func (l *Ledger) Subscribe(
	ctx context.Context,
	id model.Identity,
	onSnapshot func([]model.Order),
	onError func(error),
) (*Subscription, error) {
	if !id.Resolved() {
		return nil, ErrIdentityUnresolved
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		cancel:  cancel,
		done:    make(chan struct{}),
		changed: make(chan struct{}, 1),
	}

	stopListening, err := l.notifier.Listen(id, sub.signal)
	if err != nil {
		cancel()
		return nil, &PersistenceError{Op: "subscribe", Err: err}
	}

	// Initial snapshot.
	sub.signal()

	go func() {
		defer close(sub.done)
		defer stopListening()

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.changed:
			}

			orders, err := l.Snapshot(ctx, id)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				if onError != nil {
					onError(err)
				} else {
					l.log.WithError(err).WithField("user", id.UserID).Error("ledger subscription snapshot failed")
				}
				continue
			}
			onSnapshot(orders)
		}
	}()

	return sub, nil
}

// Subscription is a live ledger feed. Close releases it.
type Subscription struct {
	cancel  context.CancelFunc
	done    chan struct{}
	changed chan struct{}
	once    sync.Once
}

func (s *Subscription) signal() {
	select {
	case s.changed <- struct{}{}:
	default:
		// a refresh is already pending
	}
}

// Close stops deliveries and waits until the subscription goroutine has exited.
// It is safe to call more than once, but not from inside the snapshot callback.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// SortNewestFirst orders by timestamp descending, then id descending.
func SortNewestFirst(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].Timestamp != orders[j].Timestamp {
			return orders[i].Timestamp > orders[j].Timestamp
		}
		return orders[i].ID > orders[j].ID
	})
}
