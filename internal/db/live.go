package db

import (
	"context"
	"sync"

	"github.com/gameshelf/gameshelf/internal/logging"
)

// changeHub fans a change signal out to every live query. Subscriber
// channels are buffered with capacity one so rapid writes coalesce into a
// single pending recompute instead of queueing.
type changeHub struct {
	mu     sync.Mutex
	subs   map[int]chan struct{}
	nextID int
	closed bool
}

func newChangeHub() *changeHub {
	return &changeHub{subs: make(map[int]chan struct{})}
}

func (h *changeHub) subscribe() (int, chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan struct{}, 1)
	if !h.closed {
		h.subs[id] = ch
	}
	return id, ch
}

func (h *changeHub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

func (h *changeHub) broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
			// A recompute is already pending for this subscriber.
		}
	}
}

func (h *changeHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.subs = make(map[int]chan struct{})
}

// WatchAll delivers the full cache contents, newest-cached first: an initial
// snapshot, then a fresh snapshot after every store mutation. The returned
// channel closes when ctx is cancelled.
func (db *DB) WatchAll(ctx context.Context) <-chan []GameRecord {
	return db.watch(ctx, func(ctx context.Context) ([]GameRecord, error) {
		return db.AllGames(ctx)
	})
}

// WatchSearch delivers live name-substring matches, alphabetically ordered.
func (db *DB) WatchSearch(ctx context.Context, query string) <-chan []GameRecord {
	return db.watch(ctx, func(ctx context.Context) ([]GameRecord, error) {
		return db.SearchGames(ctx, query)
	})
}

// WatchWishlist delivers the live wishlist in the requested order.
func (db *DB) WatchWishlist(ctx context.Context, sort WishlistSort) <-chan []GameRecord {
	return db.watch(ctx, func(ctx context.Context) ([]GameRecord, error) {
		return db.WishlistGames(ctx, sort)
	})
}

func (db *DB) watch(ctx context.Context, query func(context.Context) ([]GameRecord, error)) <-chan []GameRecord {
	out := make(chan []GameRecord, 1)
	id, signal := db.changes.subscribe()

	go func() {
		defer close(out)
		defer db.changes.unsubscribe(id)

		emit := func() bool {
			recs, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				logging.Error("live query failed", "error", err)
				return true
			}
			select {
			case out <- recs:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}
