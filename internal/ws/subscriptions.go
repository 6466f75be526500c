package ws

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"auctionhouse/internal/notify"
)

// subscriptionManager guarantees exactly one Redis subscription per listing
// event channel, no matter how many websocket clients watch the same listing.
type subscriptionManager struct {
	rdb  *redis.Client
	hub  *Hub
	mu   sync.Mutex
	subs map[string]*subEntry // listingID -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		rdb:  rdb,
		hub:  hub,
		subs: make(map[string]*subEntry),
	}
}

// Subscribe ensures the process is subscribed to the listing's channel;
// subsequent calls for the same listing only bump the ref-counter.
func (sm *subscriptionManager) Subscribe(listingID string) {
	sm.mu.Lock()
	if e, ok := sm.subs[listingID]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// First watcher: open the Redis SUB and the fan-out loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, notify.ChannelFor(listingID))

	sm.subs[listingID] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok {
					return
				}
				sm.hub.Broadcast(listingID, wrapNotifyEvent(m.Payload))
			}
		}
	}()
}

// Unsubscribe decrements the ref-counter and tears the Redis SUB down when
// the last websocket client leaves the room.
func (sm *subscriptionManager) Unsubscribe(listingID string) {
	sm.mu.Lock()
	e, ok := sm.subs[listingID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, listingID)
	sm.mu.Unlock()

	// Outside the lock: stop the fan-out goroutine.
	e.cancel()
}
