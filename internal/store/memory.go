package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/models"
)

// MemoryListings is the in-memory ListingStore. A dedicated mutex per listing
// backs the Update contract.
type MemoryListings struct {
	mu       sync.RWMutex
	listings map[string]*models.Listing
	locks    map[string]*sync.Mutex
}

func NewMemoryListings() *MemoryListings {
	return &MemoryListings{
		listings: make(map[string]*models.Listing),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *MemoryListings) Create(_ context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; ok {
		return fmt.Errorf("create listing %s: duplicate id", l.ID)
	}
	cp := *l
	s.listings[l.ID] = &cp
	s.locks[l.ID] = &sync.Mutex{}
	return nil
}

func (s *MemoryListings) Get(_ context.Context, id string) (models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok || l.DeletedAt != nil {
		return models.Listing{}, fmt.Errorf("listing %s: %w", id, auctionerrors.ErrNotFound)
	}
	return snapshot(l), nil
}

// Update runs fn under the listing's own lock and returns the updated copy.
// If fn returns an error no change is kept.
func (s *MemoryListings) Update(_ context.Context, id string, fn func(l *models.Listing) error) (models.Listing, error) {
	s.mu.RLock()
	lock, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return models.Listing{}, fmt.Errorf("listing %s: %w", id, auctionerrors.ErrNotFound)
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	l := s.listings[id]
	s.mu.RUnlock()
	if l == nil || l.DeletedAt != nil {
		return models.Listing{}, fmt.Errorf("listing %s: %w", id, auctionerrors.ErrNotFound)
	}

	work := snapshot(l)
	if err := fn(&work); err != nil {
		return models.Listing{}, err
	}

	s.mu.Lock()
	s.listings[id] = &work
	s.mu.Unlock()
	return snapshot(&work), nil
}

func (s *MemoryListings) List(_ context.Context, f ListingFilter) ([]models.Listing, error) {
	s.mu.RLock()
	all := make([]models.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if l.DeletedAt != nil {
			continue
		}
		all = append(all, snapshot(l))
	}
	s.mu.RUnlock()

	out := all[:0]
	needle := strings.ToLower(f.Search)
	for _, l := range all {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.SellerID != "" && l.SellerID != f.SellerID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(l.Name), needle) &&
			!strings.Contains(strings.ToLower(l.Description), needle) {
			continue
		}
		out = append(out, l)
	}

	// Soonest-ending first, the order the browse page shows.
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []models.Listing{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func snapshot(l *models.Listing) models.Listing {
	cp := *l
	cp.Images = append([]models.ListingImage(nil), l.Images...)
	return cp
}

// MemoryLedger is the in-memory LedgerStore. Appends carry a monotonic
// sequence number so the archiver can tail the ledger incrementally.
type MemoryLedger struct {
	mu      sync.RWMutex
	byID    map[string][]models.Bid // listingID -> bids in append order
	byBuyer map[string][]models.Bid
	log     []models.Bid // global append order, index+1 == sequence
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		byID:    make(map[string][]models.Bid),
		byBuyer: make(map[string][]models.Bid),
	}
}

func (s *MemoryLedger) Append(_ context.Context, bid models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[bid.ListingID] = append(s.byID[bid.ListingID], bid)
	s.byBuyer[bid.BuyerID] = append(s.byBuyer[bid.BuyerID], bid)
	s.log = append(s.log, bid)
	return nil
}

func (s *MemoryLedger) BidsForListing(_ context.Context, listingID string, limit int) ([]models.Bid, error) {
	s.mu.RLock()
	bids := append([]models.Bid(nil), s.byID[listingID]...)
	s.mu.RUnlock()

	sortBids(bids)
	if limit > 0 && len(bids) > limit {
		bids = bids[:limit]
	}
	return bids, nil
}

func (s *MemoryLedger) BidsForBuyer(_ context.Context, buyerID string, limit int) ([]models.Bid, error) {
	s.mu.RLock()
	bids := append([]models.Bid(nil), s.byBuyer[buyerID]...)
	s.mu.RUnlock()

	// Newest first for the "my bids" view.
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })
	if limit > 0 && len(bids) > limit {
		bids = bids[:limit]
	}
	return bids, nil
}

func (s *MemoryLedger) WinningBid(_ context.Context, listingID string) (models.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bids := s.byID[listingID]
	if len(bids) == 0 {
		return models.Bid{}, fmt.Errorf("winning bid for %s: %w", listingID, auctionerrors.ErrNotFound)
	}
	win := bids[0]
	for _, b := range bids[1:] {
		if b.Amount > win.Amount || (b.Amount == win.Amount && b.CreatedAt.Before(win.CreatedAt)) {
			win = b
		}
	}
	return win, nil
}

func (s *MemoryLedger) CountForListing(_ context.Context, listingID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID[listingID]), nil
}

func (s *MemoryLedger) BiddersForListing(_ context.Context, listingID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, b := range s.byID[listingID] {
		if _, ok := seen[b.BuyerID]; ok {
			continue
		}
		seen[b.BuyerID] = struct{}{}
		out = append(out, b.BuyerID)
	}
	return out, nil
}

// AppendedAfter returns bids appended after the given sequence and the new
// high-water mark. Used by the archiver's incremental mirror.
func (s *MemoryLedger) AppendedAfter(seq uint64) ([]models.Bid, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if seq >= uint64(len(s.log)) {
		return nil, seq
	}
	tail := append([]models.Bid(nil), s.log[seq:]...)
	return tail, uint64(len(s.log))
}

func sortBids(bids []models.Bid) {
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].Amount != bids[j].Amount {
			return bids[i].Amount > bids[j].Amount
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
}

// MemoryOrders is the in-memory OrderStore.
type MemoryOrders struct {
	mu        sync.RWMutex
	orders    map[string]*models.Order
	byListing map[string]string // listingID -> orderID
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{
		orders:    make(map[string]*models.Order),
		byListing: make(map[string]string),
	}
}

// Create fails if the listing already has an order. This is the settlement
// idempotency guard.
func (s *MemoryOrders) Create(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byListing[o.ListingID]; ok {
		return fmt.Errorf("listing %s already settled by order %s", o.ListingID, existing)
	}
	cp := *o
	s.orders[o.ID] = &cp
	s.byListing[o.ListingID] = o.ID
	return nil
}

func (s *MemoryOrders) Get(_ context.Context, id string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, fmt.Errorf("order %s: %w", id, auctionerrors.ErrNotFound)
	}
	return *o, nil
}

func (s *MemoryOrders) GetByListing(_ context.Context, listingID string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byListing[listingID]
	if !ok {
		return models.Order{}, fmt.Errorf("order for listing %s: %w", listingID, auctionerrors.ErrNotFound)
	}
	return *s.orders[id], nil
}

func (s *MemoryOrders) ListByBuyer(_ context.Context, buyerID string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// All returns every order; the archiver mirrors them wholesale.
func (s *MemoryOrders) All() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out
}

func (s *MemoryOrders) Update(_ context.Context, id string, fn func(o *models.Order) error) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, fmt.Errorf("order %s: %w", id, auctionerrors.ErrNotFound)
	}
	work := *o
	if err := fn(&work); err != nil {
		return models.Order{}, err
	}
	s.orders[id] = &work
	return work, nil
}
