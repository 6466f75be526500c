// Package bidding is the admission controller: it validates and commits bids
// against the ledger under per-listing mutual exclusion, so no two bids are
// ever admitted against the same current-price baseline.
package bidding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/clock"
	"auctionhouse/internal/models"
	"auctionhouse/internal/notify"
	"auctionhouse/internal/store"
)

type IBiddingService interface {
	PlaceBid(ctx context.Context, listingID, buyerID string, amount float64) (models.Bid, error)
	BidsForListing(ctx context.Context, listingID string, limit int) ([]models.Bid, error)
	BidsForBuyer(ctx context.Context, buyerID string, limit int) ([]models.Bid, error)
}

type biddingService struct {
	listings store.ListingStore
	ledger   store.LedgerStore
	sink     notify.Sink
	clk      clock.Clock
}

func NewBiddingService(listings store.ListingStore, ledger store.LedgerStore, sink notify.Sink, clk clock.Clock) IBiddingService {
	return &biddingService{
		listings: listings,
		ledger:   ledger,
		sink:     sink,
		clk:      clk,
	}
}

// PlaceBid admits a single bid. The whole read-validate-write sequence runs
// inside the listing store's Update callback, which holds that listing's
// lock: a concurrent bid or a close sweep on the same listing waits, then
// re-evaluates against the committed result. Validation happens fully before
// any mutation; a rejected bid leaves no trace.
func (svc *biddingService) PlaceBid(ctx context.Context, listingID, buyerID string, amount float64) (models.Bid, error) {
	if listingID == "" || buyerID == "" {
		return models.Bid{}, fmt.Errorf("%w: missing listing or buyer id", auctionerrors.ErrInvalidInput)
	}
	if amount <= 0 {
		return models.Bid{}, fmt.Errorf("%w: non-positive bid amount", auctionerrors.ErrInvalidInput)
	}

	var bid models.Bid
	_, err := svc.listings.Update(ctx, listingID, func(l *models.Listing) error {
		if !l.Biddable(svc.clk.Now()) {
			return fmt.Errorf("listing %s: %w", listingID, auctionerrors.ErrListingNotBiddable)
		}
		if buyerID == l.SellerID {
			return fmt.Errorf("listing %s: %w", listingID, auctionerrors.ErrSelfBid)
		}

		// Exact arithmetic for the threshold; float addition would admit
		// bids a fraction of a cent short of it.
		min := decimal.NewFromFloat(l.CurrentPrice).Add(decimal.NewFromFloat(l.MinBidIncrement))
		if decimal.NewFromFloat(amount).LessThan(min) {
			return &auctionerrors.BidTooLowError{Minimum: min.InexactFloat64()}
		}

		bid = models.Bid{
			ID:        uuid.New().String(),
			ListingID: listingID,
			BuyerID:   buyerID,
			Amount:    amount,
			CreatedAt: svc.clk.Now(),
		}
		if err := svc.ledger.Append(ctx, bid); err != nil {
			return fmt.Errorf("append bid: %w", err)
		}
		l.CurrentPrice = amount
		return nil
	})
	if err != nil {
		return models.Bid{}, err
	}

	svc.sink.Publish(ctx, notify.Event{
		Type:      notify.EventBidAccepted,
		ListingID: listingID,
		UserID:    buyerID,
		Amount:    amount,
	})
	return bid, nil
}

func (svc *biddingService) BidsForListing(ctx context.Context, listingID string, limit int) ([]models.Bid, error) {
	if listingID == "" {
		return nil, fmt.Errorf("%w: missing listing id", auctionerrors.ErrInvalidInput)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return svc.ledger.BidsForListing(ctx, listingID, limit)
}

func (svc *biddingService) BidsForBuyer(ctx context.Context, buyerID string, limit int) ([]models.Bid, error) {
	if buyerID == "" {
		return nil, fmt.Errorf("%w: missing buyer id", auctionerrors.ErrInvalidInput)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return svc.ledger.BidsForBuyer(ctx, buyerID, limit)
}
