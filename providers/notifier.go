package providers

import "sync"

// ChangeNotifier coalesces catalog change signals for one component kind.
// Local, FS and the composition server hold one per kind; a signal carries
// no payload and only means the listing must be refetched, so signals that
// arrive while a subscriber is behind collapse into the pending one.
type ChangeNotifier struct {
	mu     sync.Mutex
	subs   []chan struct{}
	closed bool
}

// Subscriber registers a listener. The channel holds at most one pending
// signal and is closed when the notifier shuts down.
func (cn *ChangeNotifier) Subscriber() <-chan struct{} {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	if cn.closed {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	ch := make(chan struct{}, 1)
	cn.subs = append(cn.subs, ch)
	return ch
}

// Notify signals every subscriber without blocking. A subscriber with a
// signal already pending is skipped; that signal covers this change too.
func (cn *ChangeNotifier) Notify() {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	if cn.closed {
		return
	}
	for _, ch := range cn.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close closes all subscription channels. Further Notify calls are no-ops.
func (cn *ChangeNotifier) Close() {
	cn.mu.Lock()
	subs := cn.subs
	cn.subs, cn.closed = nil, true
	cn.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
}

// ChangeSubscriber is implemented by providers that can signal catalog
// changes.
type ChangeSubscriber interface {
	Subscriber() <-chan struct{}
}
