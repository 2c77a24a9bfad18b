package app

import (
	"net/http"

	"wishlist/internal/middleware"
	"wishlist/internal/service"
	"wishlist/internal/util"

	"github.com/gin-gonic/gin"
)

type ListHandler struct {
	listService service.ListService
}

func NewListHandler(listService service.ListService) *ListHandler {
	return &ListHandler{listService: listService}
}

// CreateList
// POST /api/v1/lists
func (h *ListHandler) CreateList(c *gin.Context) {
	var req service.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "Invalid request body")
		return
	}

	list, err := h.listService.CreateList(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "List created successfully", list)
}

// GetMyLists returns the caller's lists, newest first
// GET /api/v1/lists
func (h *ListHandler) GetMyLists(c *gin.Context) {
	lists, err := h.listService.ListMyLists(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Lists retrieved successfully", gin.H{"lists": lists})
}

// GetList returns one of the caller's lists with its wishes
// GET /api/v1/lists/:id
func (h *ListHandler) GetList(c *gin.Context) {
	list, err := h.listService.GetList(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "List retrieved successfully", list)
}

// UpdateList
// PUT /api/v1/lists/:id
func (h *ListHandler) UpdateList(c *gin.Context) {
	var req service.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "Invalid request body")
		return
	}

	list, err := h.listService.UpdateList(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "List updated successfully", list)
}

// DeleteList removes the list and all of its wishes
// DELETE /api/v1/lists/:id
func (h *ListHandler) DeleteList(c *gin.Context) {
	if err := h.listService.DeleteList(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "List deleted successfully", nil)
}

// GetPublicList serves a shared link. No auth.
// GET /api/v1/public/lists/:id
func (h *ListHandler) GetPublicList(c *gin.Context) {
	list, err := h.listService.GetPublicList(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "List retrieved successfully", list)
}
