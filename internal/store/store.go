// Package store holds the engine's state: listings, the append-only bid
// ledger, and orders. The in-memory implementations are the hot path; the
// archiver mirrors them into Postgres.
package store

import (
	"context"

	"auctionhouse/internal/models"
)

// ListingFilter narrows List results. Zero values mean "no constraint".
type ListingFilter struct {
	Status   models.ListingStatus
	SellerID string
	Search   string // case-insensitive substring on name/description
	Limit    int
	Offset   int
}

// ListingStore owns listing records. Update serializes all mutations of a
// single listing: the callback runs under that listing's lock, so the
// read-validate-write sequence of bid admission and the close sweep can never
// interleave on the same listing.
type ListingStore interface {
	Create(ctx context.Context, l *models.Listing) error
	Get(ctx context.Context, id string) (models.Listing, error)
	Update(ctx context.Context, id string, fn func(l *models.Listing) error) (models.Listing, error)
	List(ctx context.Context, f ListingFilter) ([]models.Listing, error)
}

// LedgerStore is the durable append-only bid history. Bids are immutable;
// ordering by (amount desc, createdAt asc) determines the winner.
type LedgerStore interface {
	Append(ctx context.Context, bid models.Bid) error
	BidsForListing(ctx context.Context, listingID string, limit int) ([]models.Bid, error)
	BidsForBuyer(ctx context.Context, buyerID string, limit int) ([]models.Bid, error)
	WinningBid(ctx context.Context, listingID string) (models.Bid, error)
	CountForListing(ctx context.Context, listingID string) (int, error)
	BiddersForListing(ctx context.Context, listingID string) ([]string, error)
}

// OrderStore owns orders. Create enforces at most one order per listing.
type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id string) (models.Order, error)
	GetByListing(ctx context.Context, listingID string) (models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	Update(ctx context.Context, id string, fn func(o *models.Order) error) (models.Order, error)
}
