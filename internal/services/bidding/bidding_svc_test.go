package bidding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/clock"
	"auctionhouse/internal/models"
	"auctionhouse/internal/notify"
	"auctionhouse/internal/store"
)

type fixture struct {
	listings *store.MemoryListings
	ledger   *store.MemoryLedger
	sink     *notify.Recorder
	clk      *clock.Fake
	svc      IBiddingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		listings: store.NewMemoryListings(),
		ledger:   store.NewMemoryLedger(),
		sink:     &notify.Recorder{},
		clk:      clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.svc = NewBiddingService(f.listings, f.ledger, f.sink, f.clk)
	return f
}

func (f *fixture) seedListing(t *testing.T, id string, status models.ListingStatus, approved bool) models.Listing {
	t.Helper()
	now := f.clk.Now()
	l := models.Listing{
		ID:              id,
		SellerID:        "seller1",
		Name:            "Painting",
		StartPrice:      100,
		CurrentPrice:    100,
		MinBidIncrement: 10,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
		Status:          status,
		IsApproved:      approved,
		CreatedAt:       now,
	}
	require.NoError(t, f.listings.Create(context.Background(), &l))
	return l
}

func TestPlaceBid_AdmissionThreshold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedListing(t, "l1", models.StatusActive, true)

	// startPrice=100, minBidIncrement=10: 105 is below the threshold.
	_, err := f.svc.PlaceBid(ctx, "l1", "buyer1", 105)
	var tooLow *auctionerrors.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	require.Equal(t, float64(110), tooLow.Minimum)

	bid, err := f.svc.PlaceBid(ctx, "l1", "buyer1", 110)
	require.NoError(t, err)
	require.Equal(t, float64(110), bid.Amount)

	l, err := f.listings.Get(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, float64(110), l.CurrentPrice)

	// The next bidder's minimum moved up with the committed price.
	_, err = f.svc.PlaceBid(ctx, "l1", "buyer2", 115)
	require.ErrorAs(t, err, &tooLow)
	require.Equal(t, float64(120), tooLow.Minimum)
}

func TestPlaceBid_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prep    func(f *fixture)
		buyerID string
		amount  float64
		wantErr error
	}{
		{
			name:    "self_bid",
			prep:    func(f *fixture) { f.seedListing(t, "l1", models.StatusActive, true) },
			buyerID: "seller1",
			amount:  1000,
			wantErr: auctionerrors.ErrSelfBid,
		},
		{
			name:    "not_approved",
			prep:    func(f *fixture) { f.seedListing(t, "l1", models.StatusActive, false) },
			buyerID: "buyer1",
			amount:  110,
			wantErr: auctionerrors.ErrListingNotBiddable,
		},
		{
			name:    "still_pending",
			prep:    func(f *fixture) { f.seedListing(t, "l1", models.StatusPending, false) },
			buyerID: "buyer1",
			amount:  110,
			wantErr: auctionerrors.ErrListingNotBiddable,
		},
		{
			name: "before_start",
			prep: func(f *fixture) {
				f.seedListing(t, "l1", models.StatusActive, true)
				f.clk.Set(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
			},
			buyerID: "buyer1",
			amount:  110,
			wantErr: auctionerrors.ErrListingNotBiddable,
		},
		{
			name: "at_end_time",
			prep: func(f *fixture) {
				f.seedListing(t, "l1", models.StatusActive, true)
				f.clk.Advance(time.Hour) // now == endTime, window is half-open
			},
			buyerID: "buyer1",
			amount:  110,
			wantErr: auctionerrors.ErrListingNotBiddable,
		},
		{
			name:    "unknown_listing",
			prep:    func(f *fixture) {},
			buyerID: "buyer1",
			amount:  110,
			wantErr: auctionerrors.ErrNotFound,
		},
		{
			name:    "zero_amount",
			prep:    func(f *fixture) { f.seedListing(t, "l1", models.StatusActive, true) },
			buyerID: "buyer1",
			amount:  0,
			wantErr: auctionerrors.ErrInvalidInput,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tc.prep(f)

			_, err := f.svc.PlaceBid(ctx, "l1", tc.buyerID, tc.amount)
			require.ErrorIs(t, err, tc.wantErr)

			n, err := f.ledger.CountForListing(ctx, "l1")
			require.NoError(t, err)
			require.Zero(t, n, "rejected bid must leave no trace")
		})
	}
}

func TestPlaceBid_SelfBidRejectedRegardlessOfAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedListing(t, "l1", models.StatusActive, true)

	for _, amount := range []float64{5, 110, 1e9} {
		_, err := f.svc.PlaceBid(ctx, "l1", "seller1", amount)
		require.ErrorIs(t, err, auctionerrors.ErrSelfBid)
	}
}

func TestPlaceBid_ExactIncrementArithmetic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedListing(t, "l1", models.StatusActive, true)

	_, err := f.listings.Update(ctx, "l1", func(l *models.Listing) error {
		l.CurrentPrice = 0.1
		l.MinBidIncrement = 0.2
		return nil
	})
	require.NoError(t, err)

	// 0.1+0.2 != 0.3 in float64; decimal arithmetic must still admit 0.30.
	_, err = f.svc.PlaceBid(ctx, "l1", "buyer1", 0.3)
	require.NoError(t, err)
}

func TestPlaceBid_PublishesEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedListing(t, "l1", models.StatusActive, true)

	_, err := f.svc.PlaceBid(ctx, "l1", "buyer1", 110)
	require.NoError(t, err)

	evs := f.sink.Events()
	require.Len(t, evs, 1)
	require.Equal(t, notify.EventBidAccepted, evs[0].Type)
	require.Equal(t, "l1", evs[0].ListingID)
	require.Equal(t, float64(110), evs[0].Amount)
}

// Fuzz concurrent bids: the final price must equal the maximum admitted
// amount, prices must be strictly increasing in ledger order, and every
// admitted bid must have cleared the threshold that held when it committed.
func TestPlaceBid_ConcurrentAdmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedListing(t, "l1", models.StatusActive, true)

	const bidders = 50
	var wg sync.WaitGroup
	wg.Add(bidders)
	for i := 0; i < bidders; i++ {
		amount := 110 + float64(i)*10
		go func(amount float64) {
			defer wg.Done()
			_, _ = f.svc.PlaceBid(ctx, "l1", "buyer", amount)
		}(amount)
	}
	wg.Wait()

	l, err := f.listings.Get(ctx, "l1")
	require.NoError(t, err)

	admitted, _ := f.ledger.AppendedAfter(0)
	require.NotEmpty(t, admitted)

	maxAdmitted := 0.0
	prev := 100.0 // start price
	for _, b := range admitted {
		require.Greater(t, b.Amount, prev, "admitted amounts strictly increase in commit order")
		require.GreaterOrEqual(t, b.Amount, prev+10, "every admitted bid cleared the increment")
		prev = b.Amount
		if b.Amount > maxAdmitted {
			maxAdmitted = b.Amount
		}
	}
	require.Equal(t, maxAdmitted, l.CurrentPrice, "final price equals max admitted amount")
}

// Near-simultaneous 120 and 125: whichever validates second is evaluated
// against the first one's committed result. 125 is never silently lost — it
// either sets the price or its bidder gets an explicit rejection.
func TestPlaceBid_RacingBidsSerialize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedListing(t, "l1", models.StatusActive, true)

	_, err := f.svc.PlaceBid(ctx, "l1", "buyer1", 110)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var err120, err125 error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err120 = f.svc.PlaceBid(ctx, "l1", "buyer2", 120)
	}()
	go func() {
		defer wg.Done()
		_, err125 = f.svc.PlaceBid(ctx, "l1", "buyer3", 125)
	}()
	wg.Wait()

	l, err := f.listings.Get(ctx, "l1")
	require.NoError(t, err)

	var tooLow *auctionerrors.BidTooLowError
	switch l.CurrentPrice {
	case 125:
		// 125 won the lock first; 120 was then below 125+10.
		require.NoError(t, err125)
		require.ErrorAs(t, err120, &tooLow)
	case 120:
		// 120 committed first; 125 was rejected with the new minimum, not dropped.
		require.NoError(t, err120)
		require.ErrorAs(t, err125, &tooLow)
		require.Equal(t, float64(130), tooLow.Minimum)
	default:
		t.Fatalf("unexpected final price %v", l.CurrentPrice)
	}
}
