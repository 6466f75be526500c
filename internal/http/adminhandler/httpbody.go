package adminhandler

type RejectBody struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type ForceDeleteBody struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
	Force  bool   `json:"force"`
}

type QueueQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=Pending Scheduled Active Sold Expired Rejected Cancelled"`
	Limit  int    `form:"limit,default=50"  binding:"gte=0,lte=200"`
	Offset int    `form:"offset,default=0"  binding:"gte=0"`
}
