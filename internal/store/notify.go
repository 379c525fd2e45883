package store

import (
	"context"
	"sync"
)

// Notifier carries "collection changed" signals from committers to
// subscriptions. Signals carry no payload; listeners re-query.
type Notifier interface {
	Publish(ctx context.Context, collections ...string) error
	// Listen returns a channel that receives a value after each publish for
	// collection. Bursts may coalesce. The channel is closed once ctx ends.
	Listen(ctx context.Context, collection string) (<-chan struct{}, error)
}

// LocalNotifier fans signals out inside one process.
type LocalNotifier struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: map[string]map[chan struct{}]struct{}{}}
}

func (n *LocalNotifier) Publish(_ context.Context, collections ...string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, collection := range collections {
		for ch := range n.listeners[collection] {
			Signal(ch)
		}
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context, collection string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	if n.listeners[collection] == nil {
		n.listeners[collection] = map[chan struct{}]struct{}{}
	}
	n.listeners[collection][ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.listeners[collection], ch)
		if len(n.listeners[collection]) == 0 {
			delete(n.listeners, collection)
		}
		close(ch)
		n.mu.Unlock()
	}()
	return ch, nil
}

// Signal does a non-blocking send on a buffered change channel.
func Signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
