package app

import (
	"log"
	"net/http"

	"wishlist/internal/service"
	"wishlist/internal/util"

	"github.com/gin-gonic/gin"
)

// statusFor maps a service error kind to an HTTP status
func statusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidState:
		return http.StatusConflict
	case service.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as the error envelope. Internal causes are logged
// and never sent to the client.
func respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	if kind == service.KindInternal {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	util.ErrorResponse(c, statusFor(kind), service.MessageOf(err), nil)
}
