// Package producthandler serves the listing resource the storefront browses
// and sellers manage.
package producthandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"auctionhouse/internal/http/httperr"
	"auctionhouse/internal/http/identity"
	"auctionhouse/internal/services/listing"
)

type Handler struct {
	svc listing.IListingService
}

func New(svc listing.IListingService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/ProductsApi")
	g.GET("/active", h.listActive)
	g.GET("/:id", h.get)
	g.POST("", identity.Require(), h.create)
	g.DELETE("/:id", identity.Require(), h.selfDelete)
}

func (h *Handler) listActive(c *gin.Context) {
	var q ListActiveQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	out, err := h.svc.ListActive(c.Request.Context(), q.Search, q.Limit, q.Offset)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) get(c *gin.Context) {
	l, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) create(c *gin.Context) {
	var body CreateListingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}

	created, err := h.svc.Create(c.Request.Context(), listing.CreateParams{
		SellerID:        identity.UserID(c),
		Name:            body.Name,
		Description:     body.Description,
		StartPrice:      body.StartPrice,
		MinBidIncrement: body.MinBidIncrement,
		StartTime:       body.StartTime,
		EndTime:         body.EndTime,
		ImageURLs:       body.ImageURLs,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) selfDelete(c *gin.Context) {
	if err := h.svc.SelfDelete(c.Request.Context(), c.Param("id"), identity.UserID(c)); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
