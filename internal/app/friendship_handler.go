package app

import (
	"net/http"

	"wishlist/internal/middleware"
	"wishlist/internal/service"
	"wishlist/internal/util"

	"github.com/gin-gonic/gin"
)

type FriendshipHandler struct {
	friendshipService service.FriendshipService
	listService       service.ListService
}

func NewFriendshipHandler(friendshipService service.FriendshipService, listService service.ListService) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipService: friendshipService,
		listService:       listService,
	}
}

// SendFriendRequest handles sending a friend request
// POST /api/v1/friendships/request
func (h *FriendshipHandler) SendFriendRequest(c *gin.Context) {
	var req struct {
		ReceiverID string `json:"receiver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "receiver_id is required")
		return
	}

	friendship, err := h.friendshipService.SendFriendRequest(c.Request.Context(), middleware.UserID(c), req.ReceiverID)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Friend request sent successfully", gin.H{"friendship": friendship})
}

// AcceptFriendRequest handles accepting a friend request
// POST /api/v1/friendships/:id/accept
func (h *FriendshipHandler) AcceptFriendRequest(c *gin.Context) {
	friendship, err := h.friendshipService.AcceptFriendRequest(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend request accepted successfully", gin.H{"friendship": friendship})
}

// DeclineFriendRequest handles declining a friend request
// POST /api/v1/friendships/:id/decline
func (h *FriendshipHandler) DeclineFriendRequest(c *gin.Context) {
	friendship, err := h.friendshipService.DeclineFriendRequest(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend request declined", gin.H{"friendship": friendship})
}

// RemoveFriend handles removing a friend
// DELETE /api/v1/friendships/friends/:friendID
func (h *FriendshipHandler) RemoveFriend(c *gin.Context) {
	if err := h.friendshipService.RemoveFriend(c.Request.Context(), middleware.UserID(c), c.Param("friendID")); err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend removed successfully", nil)
}

// GetFriends lists the caller's friends
// GET /api/v1/friendships/friends
func (h *FriendshipHandler) GetFriends(c *gin.Context) {
	friends, err := h.friendshipService.ListFriends(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friends retrieved successfully", gin.H{"friends": friends})
}

// GetPendingRequests lists requests waiting on the caller
// GET /api/v1/friendships/pending
func (h *FriendshipHandler) GetPendingRequests(c *gin.Context) {
	requests, err := h.friendshipService.ListPendingRequests(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Pending requests retrieved successfully", gin.H{"requests": requests})
}

// GetFriendshipStatus
// GET /api/v1/friendships/status/:userID
func (h *FriendshipHandler) GetFriendshipStatus(c *gin.Context) {
	status, err := h.friendshipService.GetFriendshipStatus(c.Request.Context(), middleware.UserID(c), c.Param("userID"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friendship status retrieved successfully", status)
}

// GetFriend returns a friend's profile
// GET /api/v1/friends/:id
func (h *FriendshipHandler) GetFriend(c *gin.Context) {
	friend, err := h.friendshipService.GetFriend(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend retrieved successfully", friend)
}

// GetFriendLists returns a friend's public wishlists
// GET /api/v1/friends/:id/lists
func (h *FriendshipHandler) GetFriendLists(c *gin.Context) {
	lists, err := h.listService.GetFriendLists(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Lists retrieved successfully", gin.H{"lists": lists})
}

// GetFriendList returns one of a friend's public lists with its wishes
// GET /api/v1/friends/:id/lists/:listId
func (h *FriendshipHandler) GetFriendList(c *gin.Context) {
	list, err := h.listService.GetFriendList(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("listId"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "List retrieved successfully", list)
}
