// Package orderhandler serves orders and the payment/fulfilment transitions.
// The engine trusts the gateway's identity claims, so every route checks the
// caller against the order's parties the way bid placement checks the bidder.
package orderhandler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/http/httperr"
	"auctionhouse/internal/http/identity"
	"auctionhouse/internal/models"
	"auctionhouse/internal/services/settlement"
)

type Handler struct {
	svc settlement.ISettlementService
}

func New(svc settlement.ISettlementService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRouter) {
	o := r.Group("/OrdersApi", identity.Require())
	o.GET("/buyer/:id", h.byBuyer)
	o.POST("/:id/ship", h.ship)
	o.POST("/:id/deliver", h.deliver)
	o.POST("/:id/cancel", h.cancel)

	r.POST("/PaymentsApi/process", identity.Require(), h.processPayment)
}

// callerIs reports whether the authenticated caller is one of the given
// users, or an admin.
func callerIs(c *gin.Context, userIDs ...string) bool {
	if identity.Role(c) == models.RoleAdmin {
		return true
	}
	caller := identity.UserID(c)
	for _, id := range userIDs {
		if caller == id {
			return true
		}
	}
	return false
}

func (h *Handler) byBuyer(c *gin.Context) {
	if !callerIs(c, c.Param("id")) {
		httperr.Respond(c, fmt.Errorf("orders belong to another buyer: %w", auctionerrors.ErrForbidden))
		return
	}
	orders, err := h.svc.ListByBuyer(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) processPayment(c *gin.Context) {
	var body ProcessPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	o, err := h.svc.Get(c.Request.Context(), body.OrderID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	// Only the buyer pays for their own order.
	if !callerIs(c, o.BuyerID) {
		httperr.Respond(c, fmt.Errorf("order %s belongs to another buyer: %w", o.ID, auctionerrors.ErrForbidden))
		return
	}
	order, err := h.svc.Pay(c.Request.Context(), body.OrderID, body.PaymentMethod, body.CardNumber)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ship(c *gin.Context) {
	o, ok := h.authorize(c, func(o models.Order) []string {
		return []string{o.SellerID} // shipping is the seller's move
	})
	if !ok {
		return
	}
	order, err := h.svc.Ship(c.Request.Context(), o.ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) deliver(c *gin.Context) {
	o, ok := h.authorize(c, func(o models.Order) []string {
		return []string{o.BuyerID} // the buyer confirms receipt
	})
	if !ok {
		return
	}
	order, err := h.svc.Deliver(c.Request.Context(), o.ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) cancel(c *gin.Context) {
	o, ok := h.authorize(c, func(o models.Order) []string {
		return []string{o.BuyerID, o.SellerID} // either side may back out while pending
	})
	if !ok {
		return
	}
	order, err := h.svc.Cancel(c.Request.Context(), o.ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// authorize loads the order from the :id param and checks the caller against
// the parties allowed to act on it. On failure the response is already
// written.
func (h *Handler) authorize(c *gin.Context, parties func(o models.Order) []string) (models.Order, bool) {
	o, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return models.Order{}, false
	}
	if !callerIs(c, parties(o)...) {
		httperr.Respond(c, fmt.Errorf("order %s: %w", o.ID, auctionerrors.ErrForbidden))
		return models.Order{}, false
	}
	return o, true
}
