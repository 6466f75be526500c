// Package admin is the moderation gate: approval, rejection, force deletion,
// and the dashboard counts the admin UI polls.
package admin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/clock"
	"auctionhouse/internal/models"
	"auctionhouse/internal/notify"
	"auctionhouse/internal/store"
)

// DeleteResult tells the caller whether bidders were affected.
type DeleteResult struct {
	Deleted  bool `json:"deleted"`
	HadBids  bool `json:"hadBids"`
	BidCount int  `json:"bidCount"`
}

// Stats is the dashboard aggregate. Users live with the identity
// collaborator, so only listing/bid/order counts are served here.
type Stats struct {
	TotalListings   int                          `json:"totalProducts"`
	PendingListings int                          `json:"pendingProducts"`
	ActiveAuctions  int                          `json:"activeAuctions"`
	TotalBids       int                          `json:"totalBids"`
	ByStatus        map[models.ListingStatus]int `json:"productsByStatus"`
}

type IAdminService interface {
	Approve(ctx context.Context, listingID string) (models.Listing, error)
	Reject(ctx context.Context, listingID, reason string) (models.Listing, error)
	ForceDelete(ctx context.Context, listingID, reason string, force bool) (DeleteResult, error)
	Queue(ctx context.Context, status models.ListingStatus, limit, offset int) ([]models.Listing, error)
	DashboardStats(ctx context.Context) (Stats, error)
}

type adminService struct {
	listings store.ListingStore
	ledger   store.LedgerStore
	sink     notify.Sink
	clk      clock.Clock
}

func NewAdminService(listings store.ListingStore, ledger store.LedgerStore, sink notify.Sink, clk clock.Clock) IAdminService {
	return &adminService{
		listings: listings,
		ledger:   ledger,
		sink:     sink,
		clk:      clk,
	}
}

// Approve moves a pending listing past the gate. If its window has already
// opened it goes straight to Active, otherwise it waits in Scheduled for the
// sweep.
func (svc *adminService) Approve(ctx context.Context, listingID string) (models.Listing, error) {
	now := svc.clk.Now()
	updated, err := svc.listings.Update(ctx, listingID, func(l *models.Listing) error {
		if l.Status != models.StatusPending {
			return fmt.Errorf("approve listing %s in %s: %w", listingID, l.Status, auctionerrors.ErrNotPending)
		}
		l.IsApproved = true
		if now.Before(l.StartTime) {
			l.Status = models.StatusScheduled
		} else {
			l.Status = models.StatusActive
		}
		return nil
	})
	if err != nil {
		return models.Listing{}, err
	}

	svc.sink.Publish(ctx, notify.Event{
		Type:      notify.EventListingApproved,
		ListingID: listingID,
		UserID:    updated.SellerID,
	})
	return updated, nil
}

func (svc *adminService) Reject(ctx context.Context, listingID, reason string) (models.Listing, error) {
	if reason == "" {
		return models.Listing{}, fmt.Errorf("%w: rejection needs a reason", auctionerrors.ErrInvalidInput)
	}
	updated, err := svc.listings.Update(ctx, listingID, func(l *models.Listing) error {
		if l.Status != models.StatusPending {
			return fmt.Errorf("reject listing %s in %s: %w", listingID, l.Status, auctionerrors.ErrNotPending)
		}
		l.Status = models.StatusRejected
		l.RejectReason = reason
		return nil
	})
	if err != nil {
		return models.Listing{}, err
	}

	svc.sink.Publish(ctx, notify.Event{
		Type:      notify.EventListingRejected,
		ListingID: listingID,
		UserID:    updated.SellerID,
		Reason:    reason,
	})
	return updated, nil
}

// ForceDelete removes a listing regardless of state. With bid history and
// force unset it refuses and reports the count so the caller can confirm;
// forced, it cancels the listing and notifies every distinct bidder.
func (svc *adminService) ForceDelete(ctx context.Context, listingID, reason string, force bool) (DeleteResult, error) {
	now := svc.clk.Now()
	var count int
	// Count and check inside the listing's lock: bid admission holds the same
	// lock, so no bid can slip in between the count and the delete.
	_, err := svc.listings.Update(ctx, listingID, func(l *models.Listing) error {
		n, err := svc.ledger.CountForListing(ctx, listingID)
		if err != nil {
			return err
		}
		if n > 0 && !force {
			return &auctionerrors.HasActiveBidsError{Count: n}
		}
		count = n
		if !l.Status.Terminal() {
			l.Status = models.StatusCancelled
		}
		l.RejectReason = reason
		l.DeletedAt = &now
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}

	bidders, err := svc.ledger.BiddersForListing(ctx, listingID)
	if err != nil {
		return DeleteResult{}, err
	}
	for _, b := range bidders {
		svc.sink.Publish(ctx, notify.Event{
			Type:      notify.EventListingCancelled,
			ListingID: listingID,
			UserID:    b,
			Reason:    reason,
		})
	}

	zap.L().Info("listing force-deleted",
		zap.String("listing_id", listingID),
		zap.Int("bids", count),
		zap.Bool("forced", force))

	return DeleteResult{Deleted: true, HadBids: count > 0, BidCount: count}, nil
}

func (svc *adminService) Queue(ctx context.Context, status models.ListingStatus, limit, offset int) ([]models.Listing, error) {
	if limit == 0 {
		limit = 50
	}
	return svc.listings.List(ctx, store.ListingFilter{Status: status, Limit: limit, Offset: offset})
}

func (svc *adminService) DashboardStats(ctx context.Context) (Stats, error) {
	all, err := svc.listings.List(ctx, store.ListingFilter{})
	if err != nil {
		return Stats{}, err
	}

	st := Stats{ByStatus: make(map[models.ListingStatus]int)}
	st.TotalListings = len(all)
	for _, l := range all {
		st.ByStatus[l.Status]++
		switch l.Status {
		case models.StatusPending:
			st.PendingListings++
		case models.StatusActive:
			st.ActiveAuctions++
		}
		n, err := svc.ledger.CountForListing(ctx, l.ID)
		if err != nil {
			return Stats{}, err
		}
		st.TotalBids += n
	}
	return st, nil
}
