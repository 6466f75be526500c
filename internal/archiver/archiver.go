// Package archiver mirrors the in-memory hot state into Postgres: a periodic
// listing upsert plus an incremental tail of the bid ledger. Everything is
// written with ON CONFLICT guards, so replays after a crash are harmless.
package archiver

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"auctionhouse/internal/models"
	"auctionhouse/internal/store"
)

// Run mirrors listings, bids, and orders every interval until ctx is
// cancelled.
func Run(ctx context.Context, db *sql.DB, listings store.ListingStore, ledger *store.MemoryLedger, orders *store.MemoryOrders, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		var seq uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				syncListings(ctx, db, listings)
				seq = syncBids(ctx, db, ledger, seq)
				syncOrders(ctx, db, orders)
			}
		}
	}()
}

func syncListings(ctx context.Context, db *sql.DB, listings store.ListingStore) {
	all, err := listings.List(ctx, store.ListingFilter{})
	if err != nil {
		zap.L().Warn("archiver.list", zap.Error(err))
		return
	}
	if len(all) == 0 {
		return
	}
	if err := PersistListings(ctx, db, all); err != nil {
		zap.L().Error("archiver.listings", zap.Error(err))
	}
}

func syncBids(ctx context.Context, db *sql.DB, ledger *store.MemoryLedger, seq uint64) uint64 {
	tail, next := ledger.AppendedAfter(seq)
	if len(tail) == 0 {
		return seq
	}
	if err := PersistBids(ctx, db, tail); err != nil {
		zap.L().Error("archiver.bids", zap.Error(err))
		return seq // retry the same tail next tick
	}
	return next
}

// PersistListings bulk-upserts listing rows in one transaction.
func PersistListings(ctx context.Context, db *sql.DB, all []models.Listing) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsert = `
	INSERT INTO listings (id, seller_id, name, description, start_price,
	                      current_price, min_bid_increment, starts_at, ends_at,
	                      status, is_approved, reject_reason)
	     VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (id) DO UPDATE
	       SET current_price = EXCLUDED.current_price,
	           status        = EXCLUDED.status,
	           is_approved   = EXCLUDED.is_approved,
	           reject_reason = EXCLUDED.reject_reason`

	for _, l := range all {
		if _, err := tx.ExecContext(ctx, upsert,
			l.ID, l.SellerID, l.Name, l.Description, l.StartPrice,
			l.CurrentPrice, l.MinBidIncrement, l.StartTime, l.EndTime,
			string(l.Status), l.IsApproved, l.RejectReason); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PersistBids appends ledger rows; re-inserting an already archived bid is a
// no-op.
func PersistBids(ctx context.Context, db *sql.DB, bids []models.Bid) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const ins = `INSERT INTO bids (id, listing_id, buyer_id, amount, placed_at)
	             VALUES ($1, $2, $3, $4, $5)
	             ON CONFLICT DO NOTHING`
	for _, b := range bids {
		if _, err := tx.ExecContext(ctx, ins,
			b.ID, b.ListingID, b.BuyerID, b.Amount, b.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func syncOrders(ctx context.Context, db *sql.DB, orders *store.MemoryOrders) {
	for _, o := range orders.All() {
		if err := PersistOrder(ctx, db, o); err != nil {
			zap.L().Error("archiver.order", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
}

// PersistOrder upserts one order row, keyed by listing so the
// one-order-per-listing constraint holds in the archive too.
func PersistOrder(ctx context.Context, db *sql.DB, o models.Order) error {
	const upsert = `
	INSERT INTO orders (id, listing_id, buyer_id, seller_id, total_amount,
	                    status, created_at, updated_at)
	     VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	ON CONFLICT (listing_id) DO UPDATE
	       SET status     = EXCLUDED.status,
	           updated_at = EXCLUDED.updated_at`
	_, err := db.ExecContext(ctx, upsert,
		o.ID, o.ListingID, o.BuyerID, o.SellerID, o.TotalAmount,
		string(o.Status), o.CreatedAt, o.UpdatedAt)
	return err
}
