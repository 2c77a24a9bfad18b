package app

import (
	"net/http"

	"wishlist/internal/middleware"
	"wishlist/internal/service"
	"wishlist/internal/util"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	friendshipService service.FriendshipService
}

func NewUserHandler(friendshipService service.FriendshipService) *UserHandler {
	return &UserHandler{friendshipService: friendshipService}
}

// SearchUsers finds users by name or email. Every result carries the
// caller's relationship with that user.
// GET /api/v1/users/search?q=
func (h *UserHandler) SearchUsers(c *gin.Context) {
	results, err := h.friendshipService.SearchUsers(c.Request.Context(), middleware.UserID(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Users retrieved successfully", gin.H{"users": results})
}
