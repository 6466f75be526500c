package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/clock"
	"auctionhouse/internal/models"
	"auctionhouse/internal/notify"
	"auctionhouse/internal/payments"
	"auctionhouse/internal/store"
)

type fixture struct {
	listings *store.MemoryListings
	ledger   *store.MemoryLedger
	orders   *store.MemoryOrders
	mock     redismock.ClientMock
	sink     *notify.Recorder
	clk      *clock.Fake
	svc      ISettlementService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rdc, mock := redismock.NewClientMock()
	f := &fixture{
		listings: store.NewMemoryListings(),
		ledger:   store.NewMemoryLedger(),
		orders:   store.NewMemoryOrders(),
		mock:     mock,
		sink:     &notify.Recorder{},
		clk:      clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.svc = NewSettlementService(f.listings, f.ledger, f.orders, rdc, payments.GatewayStub{}, f.sink, f.clk)
	return f
}

func (f *fixture) seedSold(t *testing.T, id string, bids ...models.Bid) {
	t.Helper()
	ctx := context.Background()
	now := f.clk.Now()
	l := models.Listing{
		ID:              id,
		SellerID:        "seller1",
		Name:            "Guitar",
		StartPrice:      100,
		CurrentPrice:    100,
		MinBidIncrement: 10,
		StartTime:       now.Add(-2 * time.Hour),
		EndTime:         now.Add(-time.Hour),
		Status:          models.StatusSold,
		IsApproved:      true,
		CreatedAt:       now,
	}
	for _, b := range bids {
		require.NoError(t, f.ledger.Append(ctx, b))
		if b.Amount > l.CurrentPrice {
			l.CurrentPrice = b.Amount
		}
	}
	require.NoError(t, f.listings.Create(ctx, &l))
}

func (f *fixture) expectLock(id string) {
	f.mock.ExpectSetNX("settle_lock:"+id, 1, settleLockTTL).SetVal(true)
	f.mock.ExpectDel("settle_lock:" + id).SetVal(1)
}

func TestSettle_CreatesOneOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := f.clk.Now()
	f.seedSold(t, "l1",
		models.Bid{ID: "b1", ListingID: "l1", BuyerID: "u1", Amount: 110, CreatedAt: now.Add(-30 * time.Minute)},
		models.Bid{ID: "b2", ListingID: "l1", BuyerID: "u2", Amount: 130, CreatedAt: now.Add(-20 * time.Minute)},
	)

	f.expectLock("l1")
	require.NoError(t, f.svc.Settle(ctx, "l1"))

	o, err := f.orders.GetByListing(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, "u2", o.BuyerID, "winner is the highest bidder")
	require.Equal(t, float64(130), o.TotalAmount)
	require.Equal(t, models.OrderPending, o.Status)

	// Buyer and seller each got an event.
	evs := f.sink.Events()
	require.Len(t, evs, 2)
	require.Equal(t, notify.EventAuctionWon, evs[0].Type)
	require.Equal(t, "u2", evs[0].UserID)
	require.Equal(t, notify.EventAuctionSold, evs[1].Type)
	require.Equal(t, "seller1", evs[1].UserID)

	// Second settle: lock acquired again, but the existing order short-circuits.
	f.expectLock("l1")
	require.NoError(t, f.svc.Settle(ctx, "l1"))

	mine, err := f.orders.ListByBuyer(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, mine, 1, "settling twice must not create a second order")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSettle_LockErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSold(t, "l1", models.Bid{ID: "b1", ListingID: "l1", BuyerID: "u1", Amount: 110, CreatedAt: f.clk.Now()})

	// A transient Redis failure must not look like "already being settled":
	// the caller needs the error so the listing gets re-driven.
	f.mock.ExpectSetNX("settle_lock:l1", 1, settleLockTTL).SetErr(errors.New("connection refused"))
	err := f.svc.Settle(ctx, "l1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "settle lock")

	_, err = f.orders.GetByListing(ctx, "l1")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)

	// Next attempt succeeds once Redis is back.
	f.expectLock("l1")
	require.NoError(t, f.svc.Settle(ctx, "l1"))

	o, err := f.orders.GetByListing(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, "u1", o.BuyerID)
}

func TestSettle_LockHeldElsewhereIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSold(t, "l1", models.Bid{ID: "b1", ListingID: "l1", BuyerID: "u1", Amount: 110, CreatedAt: f.clk.Now()})

	f.mock.ExpectSetNX("settle_lock:l1", 1, settleLockTTL).SetVal(false)
	require.NoError(t, f.svc.Settle(ctx, "l1"))

	_, err := f.orders.GetByListing(ctx, "l1")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
}

func TestSettle_NotSoldIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := f.clk.Now()
	l := models.Listing{
		ID: "l1", SellerID: "seller1", Name: "Lamp",
		StartPrice: 100, CurrentPrice: 100, MinBidIncrement: 10,
		StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-time.Hour),
		Status: models.StatusExpired, CreatedAt: now,
	}
	require.NoError(t, f.listings.Create(ctx, &l))

	f.mock.ExpectSetNX("settle_lock:l1", 1, settleLockTTL).SetVal(true)
	f.mock.ExpectDel("settle_lock:l1").SetVal(1)

	err := f.svc.Settle(ctx, "l1")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidTransition)

	_, err = f.orders.GetByListing(ctx, "l1")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound, "expired listing produces no order")
}

func seedOrder(t *testing.T, f *fixture, status models.OrderStatus) models.Order {
	t.Helper()
	o := models.Order{
		ID: "o1", ListingID: "l1", BuyerID: "u1", SellerID: "seller1",
		TotalAmount: 130, Status: status,
		CreatedAt: f.clk.Now(), UpdatedAt: f.clk.Now(),
	}
	require.NoError(t, f.orders.Create(context.Background(), &o))
	return o
}

func TestPay(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		seedOrder(t, f, models.OrderPending)

		o, err := f.svc.Pay(ctx, "o1", "CreditCard", "4111 1111 1111 1111")
		require.NoError(t, err)
		require.Equal(t, models.OrderPaid, o.Status)

		evs := f.sink.Events()
		require.Len(t, evs, 1)
		require.Equal(t, notify.EventOrderPaid, evs[0].Type)
	})

	t.Run("declined_card_leaves_order_pending", func(t *testing.T) {
		f := newFixture(t)
		seedOrder(t, f, models.OrderPending)

		_, err := f.svc.Pay(ctx, "o1", "CreditCard", "42")
		require.ErrorIs(t, err, auctionerrors.ErrPaymentRejected)

		o, err := f.orders.Get(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, models.OrderPending, o.Status)
	})

	t.Run("already_paid", func(t *testing.T) {
		f := newFixture(t)
		seedOrder(t, f, models.OrderPaid)

		_, err := f.svc.Pay(ctx, "o1", "CreditCard", "4111 1111 1111 1111")
		require.ErrorIs(t, err, auctionerrors.ErrInvalidTransition)
	})
}

func TestFulfilmentTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("pay_ship_deliver", func(t *testing.T) {
		f := newFixture(t)
		seedOrder(t, f, models.OrderPaid)

		o, err := f.svc.Ship(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, models.OrderShipped, o.Status)

		o, err = f.svc.Deliver(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, models.OrderDelivered, o.Status)
	})

	t.Run("cancel_only_from_pending", func(t *testing.T) {
		f := newFixture(t)
		seedOrder(t, f, models.OrderPending)

		o, err := f.svc.Cancel(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, models.OrderCancelled, o.Status)

		_, err = f.svc.Ship(ctx, "o1")
		require.ErrorIs(t, err, auctionerrors.ErrInvalidTransition)
	})

	t.Run("ship_before_pay", func(t *testing.T) {
		f := newFixture(t)
		seedOrder(t, f, models.OrderPending)

		_, err := f.svc.Ship(ctx, "o1")
		require.ErrorIs(t, err, auctionerrors.ErrInvalidTransition)
	})
}
