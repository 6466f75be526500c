package models

import "time"

// ListingStatus is the lifecycle state of an auction listing. Transitions are
// monotone: a listing never moves backwards.
type ListingStatus string

const (
	StatusPending   ListingStatus = "Pending"   // awaiting moderation
	StatusScheduled ListingStatus = "Scheduled" // approved, startTime in the future
	StatusActive    ListingStatus = "Active"    // open for bids
	StatusSold      ListingStatus = "Sold"      // closed with at least one bid
	StatusExpired   ListingStatus = "Expired"   // closed with zero bids
	StatusRejected  ListingStatus = "Rejected"  // moderation rejected
	StatusCancelled ListingStatus = "Cancelled" // force-deleted
)

// Terminal reports whether no further status transitions are possible.
func (s ListingStatus) Terminal() bool {
	switch s {
	case StatusSold, StatusExpired, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// OrderStatus is the payment/fulfilment state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderPaid      OrderStatus = "Paid"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

// Role of a user as claimed by the upstream identity collaborator.
type Role string

const (
	RoleBuyer  Role = "Buyer"
	RoleSeller Role = "Seller"
	RoleAdmin  Role = "Admin"
)

// ListingImage is an opaque reference into the external image store.
type ListingImage struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
}

// Listing is an item under auction.
type Listing struct {
	ID              string         `json:"id"`
	SellerID        string         `json:"sellerId"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	StartPrice      float64        `json:"startPrice"`
	CurrentPrice    float64        `json:"currentPrice"`
	MinBidIncrement float64        `json:"minBidIncrement"`
	StartTime       time.Time      `json:"startTime"`
	EndTime         time.Time      `json:"endTime"`
	Status          ListingStatus  `json:"status"`
	IsApproved      bool           `json:"isApproved"`
	RejectReason    string         `json:"rejectReason,omitempty"`
	Images          []ListingImage `json:"images"`
	CreatedAt       time.Time      `json:"createdAt"`
	DeletedAt       *time.Time     `json:"-"`
}

// Biddable reports whether a bid may be admitted at the given instant.
func (l *Listing) Biddable(now time.Time) bool {
	return l.IsApproved &&
		l.Status == StatusActive &&
		!now.Before(l.StartTime) &&
		now.Before(l.EndTime)
}

// Bid is a single admitted bid. Bids are immutable once appended.
type Bid struct {
	ID        string    `json:"id"`
	ListingID string    `json:"productId"`
	BuyerID   string    `json:"buyerId"`
	Amount    float64   `json:"bidAmount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order is created exactly once per sold listing.
type Order struct {
	ID          string      `json:"id"`
	ListingID   string      `json:"productId"`
	BuyerID     string      `json:"buyerId"`
	SellerID    string      `json:"sellerId"`
	TotalAmount float64     `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
