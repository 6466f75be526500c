package producthandler

import "time"

type CreateListingBody struct {
	Name            string    `json:"name"            binding:"required"`
	Description     string    `json:"description"     binding:"required"`
	StartPrice      float64   `json:"startPrice"      binding:"required,gt=0"`
	MinBidIncrement float64   `json:"minBidIncrement" binding:"omitempty,gt=0"`
	StartTime       time.Time `json:"startTime"       binding:"required"`
	EndTime         time.Time `json:"endTime"         binding:"required"`
	ImageURLs       []string  `json:"imageUrls"       binding:"omitempty,max=8,dive,url"`
}

type ListActiveQuery struct {
	Search string `form:"search" binding:"omitempty,max=200"`
	Limit  int    `form:"limit,default=10"  binding:"gte=0,lte=100"`
	Offset int    `form:"offset,default=0"  binding:"gte=0"`
}
