package service

import (
	"context"
	"sync"
)

// KeyedQueue runs functions one at a time per key, in arrival order. Different
// keys run concurrently.
type KeyedQueue struct {
	mu     sync.Mutex
	chains map[string]chan struct{}
}

func NewKeyedQueue() *KeyedQueue {
	return &KeyedQueue{chains: map[string]chan struct{}{}}
}

func (q *KeyedQueue) Run(ctx context.Context, key string, fn func(context.Context) error) error {
	q.mu.Lock()
	previous := q.chains[key]
	next := make(chan struct{})
	q.chains[key] = next
	q.mu.Unlock()

	release := func() {
		close(next)
		q.mu.Lock()
		if q.chains[key] == next {
			delete(q.chains, key)
		}
		q.mu.Unlock()
	}

	if previous != nil {
		select {
		case <-previous:
		case <-ctx.Done():
			// Hand our slot on only after the predecessor finishes.
			go func() {
				<-previous
				release()
			}()
			return ctx.Err()
		}
	}
	defer release()

	return fn(ctx)
}

// Pending reports how many keys currently have work queued or running.
func (q *KeyedQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chains)
}
