// Package listing owns the auction lifecycle: creation, the Pending →
// Scheduled → Active → Sold/Expired state machine, and the browse reads.
package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/clock"
	"auctionhouse/internal/models"
	"auctionhouse/internal/store"
)

// CreateParams carries the seller's fields for a new listing.
type CreateParams struct {
	SellerID        string
	Name            string
	Description     string
	StartPrice      float64
	MinBidIncrement float64
	StartTime       time.Time
	EndTime         time.Time
	ImageURLs       []string
}

type IListingService interface {
	Create(ctx context.Context, p CreateParams) (models.Listing, error)
	Get(ctx context.Context, id string) (models.Listing, error)
	ListActive(ctx context.Context, search string, limit, offset int) ([]models.Listing, error)
	List(ctx context.Context, f store.ListingFilter) ([]models.Listing, error)
	Activate(ctx context.Context, id string) error
	Close(ctx context.Context, id string) (models.ListingStatus, error)
	SelfDelete(ctx context.Context, id, sellerID string) error
}

type listingService struct {
	listings    store.ListingStore
	ledger      store.LedgerStore
	clk         clock.Clock
	defaultIncr float64
}

func NewListingService(listings store.ListingStore, ledger store.LedgerStore, clk clock.Clock, defaultIncr float64) IListingService {
	return &listingService{
		listings:    listings,
		ledger:      ledger,
		clk:         clk,
		defaultIncr: defaultIncr,
	}
}

// Create validates the seller's fields and stores the listing in Pending.
// Nothing is biddable until the moderation gate approves it.
func (svc *listingService) Create(ctx context.Context, p CreateParams) (models.Listing, error) {
	now := svc.clk.Now()
	switch {
	case p.SellerID == "":
		return models.Listing{}, fmt.Errorf("%w: missing seller id", auctionerrors.ErrInvalidInput)
	case p.Name == "":
		return models.Listing{}, fmt.Errorf("%w: missing name", auctionerrors.ErrInvalidInput)
	case p.StartPrice <= 0:
		return models.Listing{}, fmt.Errorf("%w: start price must be positive", auctionerrors.ErrInvalidInput)
	case p.MinBidIncrement < 0:
		return models.Listing{}, fmt.Errorf("%w: negative bid increment", auctionerrors.ErrInvalidInput)
	case !p.EndTime.After(p.StartTime):
		return models.Listing{}, fmt.Errorf("%w: end time must be after start time", auctionerrors.ErrInvalidInput)
	case p.EndTime.Before(now):
		return models.Listing{}, fmt.Errorf("%w: end time is in the past", auctionerrors.ErrInvalidInput)
	}

	incr := p.MinBidIncrement
	if incr == 0 {
		incr = svc.defaultIncr
	}

	images := make([]models.ListingImage, 0, len(p.ImageURLs))
	for _, u := range p.ImageURLs {
		images = append(images, models.ListingImage{ID: uuid.New().String(), ImageURL: u})
	}

	l := models.Listing{
		ID:              uuid.New().String(),
		SellerID:        p.SellerID,
		Name:            p.Name,
		Description:     p.Description,
		StartPrice:      p.StartPrice,
		CurrentPrice:    p.StartPrice,
		MinBidIncrement: incr,
		StartTime:       p.StartTime.UTC(),
		EndTime:         p.EndTime.UTC(),
		Status:          models.StatusPending,
		Images:          images,
		CreatedAt:       now,
	}
	if err := svc.listings.Create(ctx, &l); err != nil {
		return models.Listing{}, fmt.Errorf("create listing: %w", err)
	}
	return l, nil
}

func (svc *listingService) Get(ctx context.Context, id string) (models.Listing, error) {
	return svc.listings.Get(ctx, id)
}

func (svc *listingService) ListActive(ctx context.Context, search string, limit, offset int) ([]models.Listing, error) {
	if limit == 0 {
		limit = 10
	}
	return svc.listings.List(ctx, store.ListingFilter{
		Status: models.StatusActive,
		Search: search,
		Limit:  limit,
		Offset: offset,
	})
}

func (svc *listingService) List(ctx context.Context, f store.ListingFilter) ([]models.Listing, error) {
	return svc.listings.List(ctx, f)
}

// Activate moves an approved listing into Active once its window opens.
func (svc *listingService) Activate(ctx context.Context, id string) error {
	_, err := svc.listings.Update(ctx, id, func(l *models.Listing) error {
		if l.Status != models.StatusScheduled {
			return fmt.Errorf("listing %s in %s: %w", id, l.Status, auctionerrors.ErrAlreadyActive)
		}
		l.Status = models.StatusActive
		return nil
	})
	return err
}

// Close fires the terminal transition at endTime: Sold with at least one bid,
// Expired with none. Closing an already-closed listing is a no-op that
// reports the current status, so redundant sweep ticks are harmless.
func (svc *listingService) Close(ctx context.Context, id string) (models.ListingStatus, error) {
	var closed models.ListingStatus
	_, err := svc.listings.Update(ctx, id, func(l *models.Listing) error {
		if l.Status.Terminal() {
			closed = l.Status
			return nil
		}
		if l.Status != models.StatusActive {
			return fmt.Errorf("close listing %s in %s: %w", id, l.Status, auctionerrors.ErrInvalidTransition)
		}
		n, err := svc.ledger.CountForListing(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			l.Status = models.StatusSold
		} else {
			l.Status = models.StatusExpired
		}
		closed = l.Status
		return nil
	})
	if err != nil {
		return "", err
	}
	return closed, nil
}

// SelfDelete lets a seller withdraw their own listing while it is harmless:
// still pending, or expired without a single bid.
func (svc *listingService) SelfDelete(ctx context.Context, id, sellerID string) error {
	now := svc.clk.Now()
	_, err := svc.listings.Update(ctx, id, func(l *models.Listing) error {
		if l.SellerID != sellerID {
			return fmt.Errorf("listing %s: %w", id, auctionerrors.ErrForbidden)
		}
		if l.Status != models.StatusPending && l.Status != models.StatusExpired {
			return fmt.Errorf("delete listing %s in %s: %w", id, l.Status, auctionerrors.ErrInvalidTransition)
		}
		n, err := svc.ledger.CountForListing(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("delete listing %s: %w", id, auctionerrors.ErrInvalidTransition)
		}
		l.DeletedAt = &now
		return nil
	})
	return err
}
