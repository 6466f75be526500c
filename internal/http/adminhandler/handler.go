// Package adminhandler serves the moderation gate. Every route requires the
// Admin role claim.
package adminhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"auctionhouse/internal/http/httperr"
	"auctionhouse/internal/http/identity"
	"auctionhouse/internal/models"
	"auctionhouse/internal/services/admin"
)

type Handler struct {
	svc admin.IAdminService
}

func New(svc admin.IAdminService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/AdminApi", identity.RequireRole(models.RoleAdmin))
	g.GET("/products", h.queue)
	g.PUT("/products/:id/approve", h.approve)
	g.PUT("/products/:id/reject", h.reject)
	g.DELETE("/products/:id/force-delete", h.forceDelete)
	g.GET("/dashboard/stats", h.stats)
}

func (h *Handler) queue(c *gin.Context) {
	var q QueueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	out, err := h.svc.Queue(c.Request.Context(), models.ListingStatus(q.Status), q.Limit, q.Offset)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) approve(c *gin.Context) {
	l, err := h.svc.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) reject(c *gin.Context) {
	var body RejectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	l, err := h.svc.Reject(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) forceDelete(c *gin.Context) {
	// DELETE with a body, the way the admin console sends it. An empty body
	// means an unforced delete.
	var body ForceDeleteBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			httperr.BadRequest(c, err)
			return
		}
	}
	if body.Reason == "" {
		body.Reason = "Administrative action"
	}
	res, err := h.svc.ForceDelete(c.Request.Context(), c.Param("id"), body.Reason, body.Force)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.svc.DashboardStats(c.Request.Context())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": st})
}
