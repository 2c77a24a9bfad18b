package app

import (
	"net/http"

	"wishlist/internal/middleware"
	"wishlist/internal/service"
	"wishlist/internal/util"

	"github.com/gin-gonic/gin"
)

type WishHandler struct {
	wishService service.WishService
}

func NewWishHandler(wishService service.WishService) *WishHandler {
	return &WishHandler{wishService: wishService}
}

// CreateWish adds a wish to one of the caller's lists
// POST /api/v1/lists/:id/wishes
func (h *WishHandler) CreateWish(c *gin.Context) {
	var req service.WishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "Invalid request body")
		return
	}

	wish, err := h.wishService.CreateWish(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Wish created successfully", wish)
}

// UpdateWish
// PUT /api/v1/wishes/:id
func (h *WishHandler) UpdateWish(c *gin.Context) {
	var req service.WishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "Invalid request body")
		return
	}

	wish, err := h.wishService.UpdateWish(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Wish updated successfully", wish)
}

// DeleteWish
// DELETE /api/v1/wishes/:id
func (h *WishHandler) DeleteWish(c *gin.Context) {
	if err := h.wishService.DeleteWish(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Wish deleted successfully", nil)
}

// ToggleFulfilled flips the fulfilled flag
// POST /api/v1/wishes/:id/fulfilled
func (h *WishHandler) ToggleFulfilled(c *gin.Context) {
	wish, err := h.wishService.ToggleFulfilled(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Wish updated successfully", wish)
}

// UploadImage replaces the wish image
// POST /api/v1/wishes/:id/image (multipart field "image")
func (h *WishHandler) UploadImage(c *gin.Context) {
	data, filename, ok := readImage(c)
	if !ok {
		return
	}

	wish, err := h.wishService.UploadWishImage(c.Request.Context(), middleware.UserID(c), c.Param("id"), data, filename)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Wish image uploaded successfully", wish)
}
