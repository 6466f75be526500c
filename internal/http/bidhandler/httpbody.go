package bidhandler

type PlaceBidBody struct {
	ProductID string  `json:"productId" binding:"required"`
	BuyerID   string  `json:"buyerId"   binding:"required"`
	BidAmount float64 `json:"bidAmount" binding:"required,gt=0"`
}

type ListBidsQuery struct {
	Limit int `form:"limit,default=20" binding:"gte=0,lte=100"`
}

type ListBuyerBidsQuery struct {
	Limit int `form:"limit,default=100" binding:"gte=0,lte=500"`
}
