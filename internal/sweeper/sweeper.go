// Package sweeper drives the time-based listing transitions: Scheduled
// listings go Active when their window opens, Active listings close at
// endTime, and Sold listings without an order are handed to settlement. The
// sweep is safe to run concurrently with bid admission because Close and
// PlaceBid serialize on the same per-listing lock; a bid racing the closing
// tick either commits first and is honored, or finds the listing closed and
// is rejected.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"auctionhouse/internal/clock"
	"auctionhouse/internal/models"
	"auctionhouse/internal/services/listing"
	"auctionhouse/internal/services/settlement"
	"auctionhouse/internal/store"
)

type Sweeper struct {
	listings   listing.IListingService
	settlement settlement.ISettlementService
	orders     store.OrderStore
	clk        clock.Clock
}

func New(listings listing.IListingService, stl settlement.ISettlementService, orders store.OrderStore, clk clock.Clock) *Sweeper {
	return &Sweeper{listings: listings, settlement: stl, orders: orders, clk: clk}
}

// Run ticks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Tick performs one sweep pass. Every step is idempotent, so overlapping
// ticks (or a second instance sweeping the same state) do no harm. Settlement
// runs off the Sold status, not the close that caused it: a listing whose
// settlement failed (Redis down, crash between close and settle) is picked up
// again on the next tick because it is still Sold with no order.
func (s *Sweeper) Tick(ctx context.Context) {
	now := s.clk.Now()

	scheduled, err := s.listings.List(ctx, store.ListingFilter{Status: models.StatusScheduled})
	if err != nil {
		zap.L().Warn("sweep.list_scheduled", zap.Error(err))
		return
	}
	for _, l := range scheduled {
		if now.Before(l.StartTime) {
			continue
		}
		if err := s.listings.Activate(ctx, l.ID); err != nil {
			zap.L().Warn("sweep.activate", zap.String("listing_id", l.ID), zap.Error(err))
		}
	}

	active, err := s.listings.List(ctx, store.ListingFilter{Status: models.StatusActive})
	if err != nil {
		zap.L().Warn("sweep.list_active", zap.Error(err))
		return
	}
	for _, l := range active {
		if now.Before(l.EndTime) {
			continue
		}
		if _, err := s.listings.Close(ctx, l.ID); err != nil {
			zap.L().Warn("sweep.close", zap.String("listing_id", l.ID), zap.Error(err))
		}
	}

	sold, err := s.listings.List(ctx, store.ListingFilter{Status: models.StatusSold})
	if err != nil {
		zap.L().Warn("sweep.list_sold", zap.Error(err))
		return
	}
	for _, l := range sold {
		if _, err := s.orders.GetByListing(ctx, l.ID); err == nil {
			continue // already settled
		}
		if err := s.settlement.Settle(ctx, l.ID); err != nil {
			zap.L().Error("sweep.settle", zap.String("listing_id", l.ID), zap.Error(err))
		}
	}
}
