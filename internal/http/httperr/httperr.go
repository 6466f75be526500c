// Package httperr maps the engine's error taxonomy onto HTTP responses.
package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"auctionhouse/internal/auctionerrors"
)

// ErrorResponse is the wire shape of every failure: a machine-readable kind
// plus a human message.
type ErrorResponse struct {
	Kind    auctionerrors.Kind `json:"kind"`
	Message string             `json:"message"`
}

func statusFor(kind auctionerrors.Kind) int {
	switch kind {
	case auctionerrors.KindValidation:
		return http.StatusBadRequest
	case auctionerrors.KindAuthorization:
		return http.StatusForbidden
	case auctionerrors.KindNotFound:
		return http.StatusNotFound
	case auctionerrors.KindConflict:
		return http.StatusConflict
	case auctionerrors.KindExternal:
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

// Respond writes err as a JSON error response. Internal errors are masked;
// everything else carries its message through.
func Respond(c *gin.Context, err error) {
	kind := auctionerrors.KindOf(err)
	msg := err.Error()
	if kind == auctionerrors.KindInternal {
		msg = "internal error"
	}
	c.JSON(statusFor(kind), ErrorResponse{Kind: kind, Message: msg})
}

// BadRequest writes a plain validation failure (malformed body or query).
func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Kind:    auctionerrors.KindValidation,
		Message: err.Error(),
	})
}
