// Package notify publishes engine events to interested parties: the
// per-listing Redis channel consumed by the websocket layer and any external
// delivery worker (email/SMS is not this service's job).
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	EventBidAccepted      = "bid"
	EventListingApproved  = "approved"
	EventListingRejected  = "rejected"
	EventListingCancelled = "cancelled"
	EventAuctionWon       = "won"
	EventAuctionSold      = "sold"
	EventOrderPaid        = "paid"
)

// Event is one engine notification. UserID is the addressee when the event
// targets a single user; empty means "everyone watching the listing".
type Event struct {
	Type      string  `json:"event"`
	ListingID string  `json:"listing_id"`
	UserID    string  `json:"user_id,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	OrderID   string  `json:"order_id,omitempty"`
}

// Sink receives engine events. Publish must never block the caller's hot path
// on delivery guarantees; fire and forget.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// ChannelFor returns the Redis pub/sub channel carrying a listing's events.
func ChannelFor(listingID string) string { return "listing:" + listingID + ":events" }

type redisSink struct {
	rdc *redis.Client
}

// NewRedisSink publishes every event as JSON on the listing's channel.
func NewRedisSink(rdc *redis.Client) Sink { return &redisSink{rdc: rdc} }

func (s *redisSink) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		zap.L().Warn("notify.marshal", zap.Error(err))
		return
	}
	if err := s.rdc.Publish(ctx, ChannelFor(ev.ListingID), payload).Err(); err != nil {
		zap.L().Warn("notify.publish",
			zap.String("listing_id", ev.ListingID),
			zap.String("event", ev.Type),
			zap.Error(err))
	}
}

// Recorder is a Sink for tests; it remembers everything it was given.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
