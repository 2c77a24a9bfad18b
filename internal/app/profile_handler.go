package app

import (
	"io"
	"net/http"

	"wishlist/internal/middleware"
	"wishlist/internal/service"
	"wishlist/internal/util"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService service.ProfileService
}

func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpdateProfile changes the caller's name and email
// PUT /api/v1/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.profileService.UpdateProfile(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Profile updated successfully", user)
}

// UploadAvatar replaces the caller's avatar
// POST /api/v1/profile/avatar (multipart field "image")
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	data, filename, ok := readImage(c)
	if !ok {
		return
	}

	user, err := h.profileService.UploadAvatar(c.Request.Context(), middleware.UserID(c), data, filename)
	if err != nil {
		respondError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Avatar updated successfully", user)
}

// readImage reads the "image" multipart field, writing a 400 on failure
func readImage(c *gin.Context) ([]byte, string, bool) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		util.BadRequest(c, "Image file is required")
		return nil, "", false
	}
	if fileHeader.Size > util.MaxImageSize {
		util.BadRequest(c, "Image must be 5MB or smaller")
		return nil, "", false
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.BadRequest(c, "Failed to read image")
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, util.MaxImageSize+1))
	if err != nil {
		util.BadRequest(c, "Failed to read image")
		return nil, "", false
	}
	return data, fileHeader.Filename, true
}
