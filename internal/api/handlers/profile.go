package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"todohub/internal/models"
	"todohub/internal/platform"
	"todohub/internal/team"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 5 MB, enforced before the upload starts.
const maxAvatarSize = 5 << 20

// GetProfile godoc
// @Summary Get the caller's profile
// @Description Auto-creates the profile on first access
// @Tags profile
// @Produce json
// @Success 200 {object} object{id=string,display_name=string}
// @Security BearerAuth
// @Router /api/profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	profile, err := h.platform.GetProfile(c.Request.Context(), userID)
	if errors.Is(err, platform.ErrNotFound) {
		profile, err = h.platform.InsertProfile(c.Request.Context(), models.Profile{
			ID:          userID,
			DisplayName: defaultDisplayName(c.GetString("user_email")),
		})
	}
	if err != nil {
		h.respondStoreError(c, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

func defaultDisplayName(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// UpdateProfile godoc
// @Summary Update the caller's profile
// @Tags profile
// @Accept json
// @Produce json
// @Param profile body object{display_name=string,bio=string} true "Fields to update"
// @Success 200 {object} object{profile=object}
// @Security BearerAuth
// @Router /api/profile [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var patch platform.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.platform.UpdateProfile(c.Request.Context(), c.GetString("user_id"), patch)
	if err != nil {
		h.respondStoreError(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UploadAvatar godoc
// @Summary Upload the caller's avatar image
// @Description Max 5 MB, image content types only
// @Tags profile
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} object{avatar_url=string}
// @Failure 400 {object} object{error=string}
// @Security BearerAuth
// @Router /api/profile/avatar [post]
func (h *Handler) UploadAvatar(c *gin.Context) {
	userID := c.GetString("user_id")

	url, ok := h.uploadAvatarFile(c, "avatars", userID)
	if !ok {
		return
	}

	if _, err := h.platform.UpdateProfile(c.Request.Context(), userID, platform.ProfilePatch{AvatarURL: &url}); err != nil {
		// Upload succeeded but the profile row was not updated; a known
		// multi-step gap, surfaced rather than compensated.
		h.respondStoreError(c, err, "Avatar uploaded but profile update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

// UploadTeamAvatar godoc
// @Summary Upload a team's avatar image
// @Description Owner only; max 5 MB, image content types only
// @Tags teams
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Team id"
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} object{avatar_url=string}
// @Failure 403 {object} object{error=string}
// @Security BearerAuth
// @Router /api/teams/{id}/avatar [post]
func (h *Handler) UploadTeamAvatar(c *gin.Context) {
	teamID := c.Param("id")
	if !h.teams.Can(c.Request.Context(), teamID, c.GetString("user_id"), team.ActionEditTeam) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can change the team avatar"})
		return
	}

	url, ok := h.uploadAvatarFile(c, "team-avatars", teamID)
	if !ok {
		return
	}

	if _, err := h.teams.UpdateTeam(c.Request.Context(), teamID, platform.TeamPatch{AvatarURL: &url}); err != nil {
		h.respondStoreError(c, err, "Avatar uploaded but team update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

// uploadAvatarFile validates and streams the multipart avatar into object
// storage, returning its public URL. Writes the error response itself when
// validation fails.
func (h *Handler) uploadAvatarFile(c *gin.Context, bucket, keyPrefix string) (string, bool) {
	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar file is required"})
		return "", false
	}
	if file.Size > maxAvatarSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar must be 5MB or smaller"})
		return "", false
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar must be an image"})
		return "", false
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read avatar"})
		return "", false
	}
	defer src.Close()

	path := fmt.Sprintf("%s/%s%s", keyPrefix, uuid.NewString(), filepath.Ext(file.Filename))
	url, err := h.platform.UploadObject(c.Request.Context(), bucket, path, contentType, src)
	if err != nil {
		h.respondStoreError(c, err, "Avatar upload failed")
		return "", false
	}
	return url, true
}

// GetDarkMode godoc
// @Summary Read the dark-mode preference
// @Tags preferences
// @Produce json
// @Success 200 {object} object{dark_mode=bool}
// @Security BearerAuth
// @Router /api/preferences/darkmode [get]
func (h *Handler) GetDarkMode(c *gin.Context) {
	enabled, err := h.cache.DarkMode(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read preference"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dark_mode": enabled})
}

// SetDarkMode godoc
// @Summary Store the dark-mode preference
// @Tags preferences
// @Accept json
// @Produce json
// @Param preference body object{dark_mode=bool} true "Preference"
// @Success 200 {object} object{dark_mode=bool}
// @Security BearerAuth
// @Router /api/preferences/darkmode [put]
func (h *Handler) SetDarkMode(c *gin.Context) {
	var request struct {
		DarkMode bool `json:"dark_mode"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.cache.SetDarkMode(c.Request.Context(), c.GetString("user_id"), request.DarkMode); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store preference"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dark_mode": request.DarkMode})
}
