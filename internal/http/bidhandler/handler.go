// Package bidhandler serves the bid resource: admission and the two bid
// history views.
package bidhandler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/http/httperr"
	"auctionhouse/internal/http/identity"
	"auctionhouse/internal/services/bidding"
)

type Handler struct {
	svc bidding.IBiddingService
}

func New(svc bidding.IBiddingService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/BidsApi")
	g.POST("", identity.Require(), h.place)
	g.GET("/product/:id", h.byProduct)
	g.GET("/buyer/:id", h.byBuyer)
}

func (h *Handler) place(c *gin.Context) {
	var body PlaceBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	// The authenticated caller must be the bidder they claim to be.
	if body.BuyerID != identity.UserID(c) {
		httperr.Respond(c, fmt.Errorf("buyer id does not match caller: %w", auctionerrors.ErrForbidden))
		return
	}

	bid, err := h.svc.PlaceBid(c.Request.Context(), body.ProductID, body.BuyerID, body.BidAmount)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

func (h *Handler) byProduct(c *gin.Context) {
	var q ListBidsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	bids, err := h.svc.BidsForListing(c.Request.Context(), c.Param("id"), q.Limit)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, bids)
}

func (h *Handler) byBuyer(c *gin.Context) {
	var q ListBuyerBidsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	bids, err := h.svc.BidsForBuyer(c.Request.Context(), c.Param("id"), q.Limit)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, bids)
}
