package ledger

import (
	"context"
	"sync"

	"neotrade/src/model"
)

// Notifier carries "this ledger changed" events between writers and subscribers.
// Listeners must not block; they are called from the publisher's goroutine.
type Notifier interface {
	Publish(ctx context.Context, id model.Identity) error
	Listen(id model.Identity, fn func()) (stop func(), err error)
}

// LocalNotifier fans changes out inside one process.
type LocalNotifier struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string]map[uint64]func()
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[string]map[uint64]func())}
}

func (n *LocalNotifier) Publish(_ context.Context, id model.Identity) error {
	n.mu.RLock()
	fns := make([]func(), 0, len(n.listeners[id.Key()]))
	for _, fn := range n.listeners[id.Key()] {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (n *LocalNotifier) Listen(id model.Identity, fn func()) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := id.Key()
	n.nextID++
	listenerID := n.nextID
	if n.listeners[key] == nil {
		n.listeners[key] = make(map[uint64]func())
	}
	n.listeners[key][listenerID] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners[key], listenerID)
			if len(n.listeners[key]) == 0 {
				delete(n.listeners, key)
			}
		})
	}, nil
}

// Listeners reports how many listeners are registered for an identity.
func (n *LocalNotifier) Listeners(id model.Identity) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners[id.Key()])
}
