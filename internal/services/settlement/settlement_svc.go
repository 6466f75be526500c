// Package settlement converts a sold auction into a payable order and drives
// the order through its payment state machine. Card processing is delegated;
// only the outcome is recorded here.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/clock"
	"auctionhouse/internal/models"
	"auctionhouse/internal/notify"
	"auctionhouse/internal/payments"
	"auctionhouse/internal/store"
)

const settleLockTTL = 5 * time.Second

type ISettlementService interface {
	Settle(ctx context.Context, listingID string) error
	Pay(ctx context.Context, orderID, method, cardNumber string) (models.Order, error)
	Ship(ctx context.Context, orderID string) (models.Order, error)
	Deliver(ctx context.Context, orderID string) (models.Order, error)
	Cancel(ctx context.Context, orderID string) (models.Order, error)
	Get(ctx context.Context, orderID string) (models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
}

type settlementService struct {
	listings  store.ListingStore
	ledger    store.LedgerStore
	orders    store.OrderStore
	rdc       *redis.Client
	processor payments.Processor
	sink      notify.Sink
	clk       clock.Clock
}

func NewSettlementService(
	listings store.ListingStore,
	ledger store.LedgerStore,
	orders store.OrderStore,
	rdc *redis.Client,
	processor payments.Processor,
	sink notify.Sink,
	clk clock.Clock,
) ISettlementService {
	return &settlementService{
		listings:  listings,
		ledger:    ledger,
		orders:    orders,
		rdc:       rdc,
		processor: processor,
		sink:      sink,
		clk:       clk,
	}
}

// Settle creates the order for a sold listing. Idempotent twice over: a short
// distributed lock keeps concurrent instances out, and the order store's
// one-order-per-listing constraint catches anything the lock misses.
func (svc *settlementService) Settle(ctx context.Context, listingID string) error {
	lockKey := "settle_lock:" + listingID
	ok, err := svc.rdc.SetNX(ctx, lockKey, 1, settleLockTTL).Result()
	if err != nil {
		return fmt.Errorf("settle lock %s: %w", listingID, err)
	}
	if !ok {
		return nil // another instance is already settling this listing
	}
	defer svc.rdc.Del(ctx, lockKey)

	if _, err := svc.orders.GetByListing(ctx, listingID); err == nil {
		return nil // already settled
	}

	l, err := svc.listings.Get(ctx, listingID)
	if err != nil {
		return err
	}
	if l.Status != models.StatusSold {
		return fmt.Errorf("settle listing %s in %s: %w", listingID, l.Status, auctionerrors.ErrInvalidTransition)
	}

	win, err := svc.ledger.WinningBid(ctx, listingID)
	if err != nil {
		return fmt.Errorf("settle listing %s: %w", listingID, err)
	}

	now := svc.clk.Now()
	order := models.Order{
		ID:          uuid.New().String(),
		ListingID:   listingID,
		BuyerID:     win.BuyerID,
		SellerID:    l.SellerID,
		TotalAmount: l.CurrentPrice,
		Status:      models.OrderPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.orders.Create(ctx, &order); err != nil {
		// Lost a race with another settle; the first order stands.
		zap.L().Debug("settle.order_exists", zap.String("listing_id", listingID), zap.Error(err))
		return nil
	}

	zap.L().Info("auction settled",
		zap.String("listing_id", listingID),
		zap.String("order_id", order.ID),
		zap.String("buyer_id", order.BuyerID),
		zap.Float64("total", order.TotalAmount))

	svc.sink.Publish(ctx, notify.Event{
		Type:      notify.EventAuctionWon,
		ListingID: listingID,
		UserID:    order.BuyerID,
		Amount:    order.TotalAmount,
		OrderID:   order.ID,
	})
	svc.sink.Publish(ctx, notify.Event{
		Type:      notify.EventAuctionSold,
		ListingID: listingID,
		UserID:    l.SellerID,
		Amount:    order.TotalAmount,
		OrderID:   order.ID,
	})
	return nil
}

// Pay asks the payment collaborator to charge the buyer and records the
// result. A decline surfaces as ErrPaymentRejected and leaves the order
// Pending.
func (svc *settlementService) Pay(ctx context.Context, orderID, method, cardNumber string) (models.Order, error) {
	o, err := svc.orders.Get(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if o.Status != models.OrderPending {
		return models.Order{}, fmt.Errorf("pay order %s in %s: %w", orderID, o.Status, auctionerrors.ErrInvalidTransition)
	}

	if err := svc.processor.Charge(ctx, orderID, o.TotalAmount, method, cardNumber); err != nil {
		if errors.Is(err, payments.ErrDeclined) {
			return models.Order{}, fmt.Errorf("order %s: %w", orderID, auctionerrors.ErrPaymentRejected)
		}
		return models.Order{}, fmt.Errorf("charge order %s: %w", orderID, err)
	}

	updated, err := svc.transition(ctx, orderID, models.OrderPending, models.OrderPaid)
	if err != nil {
		return models.Order{}, err
	}
	svc.sink.Publish(ctx, notify.Event{
		Type:      notify.EventOrderPaid,
		ListingID: updated.ListingID,
		UserID:    updated.SellerID,
		Amount:    updated.TotalAmount,
		OrderID:   updated.ID,
	})
	return updated, nil
}

func (svc *settlementService) Ship(ctx context.Context, orderID string) (models.Order, error) {
	return svc.transition(ctx, orderID, models.OrderPaid, models.OrderShipped)
}

func (svc *settlementService) Deliver(ctx context.Context, orderID string) (models.Order, error) {
	return svc.transition(ctx, orderID, models.OrderShipped, models.OrderDelivered)
}

func (svc *settlementService) Cancel(ctx context.Context, orderID string) (models.Order, error) {
	return svc.transition(ctx, orderID, models.OrderPending, models.OrderCancelled)
}

func (svc *settlementService) Get(ctx context.Context, orderID string) (models.Order, error) {
	return svc.orders.Get(ctx, orderID)
}

func (svc *settlementService) ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	if buyerID == "" {
		return nil, fmt.Errorf("%w: missing buyer id", auctionerrors.ErrInvalidInput)
	}
	return svc.orders.ListByBuyer(ctx, buyerID)
}

func (svc *settlementService) transition(ctx context.Context, orderID string, from, to models.OrderStatus) (models.Order, error) {
	return svc.orders.Update(ctx, orderID, func(o *models.Order) error {
		if o.Status != from {
			return fmt.Errorf("order %s in %s, want %s: %w", orderID, o.Status, from, auctionerrors.ErrInvalidTransition)
		}
		o.Status = to
		o.UpdatedAt = svc.clk.Now()
		return nil
	})
}
