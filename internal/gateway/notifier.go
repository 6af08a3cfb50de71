package gateway

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"slices"
	"sync"
)

// Notifier fans auth events out to registered listeners. The zero value is
// ready to use.
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

// Subscribe registers fn. The returned function is idempotent.
func (n *Notifier) Subscribe(fn Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners == nil {
		n.listeners = make(map[int]Listener)
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

// Emit calls every listener in registration order outside the lock.
func (n *Notifier) Emit(event Event, session *domain.Session) {
	n.mu.Lock()
	ids := make([]int, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	n.mu.Unlock()
	slices.Sort(ids)

	for _, id := range ids {
		n.mu.Lock()
		fn, ok := n.listeners[id]
		n.mu.Unlock()
		if ok {
			fn(event, session)
		}
	}
}

// Len reports the number of registered listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
