package handlers

import (
	"errors"
	"net/http"

	"todohub/internal/platform"
	"todohub/internal/team"

	"github.com/gin-gonic/gin"
)

// CreateTeam godoc
// @Summary Create a team
// @Description Creates the team and adds the creator as its owner
// @Tags teams
// @Accept json
// @Produce json
// @Param team body object{name=string,description=string,avatar_url=string} true "Team details"
// @Success 200 {object} object{message=string,team=object}
// @Failure 400 {object} object{error=string}
// @Security BearerAuth
// @Router /api/teams [post]
func (h *Handler) CreateTeam(c *gin.Context) {
	userID := c.GetString("user_id")

	var request team.CreateTeamInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.teams.CreateTeam(c.Request.Context(), userID, request)
	switch {
	case errors.Is(err, team.ErrNameRequired), errors.Is(err, team.ErrInvalidAvatarURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil && created.ID != "":
		// Team row exists but the owner membership insert failed; surfaced,
		// not compensated.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Team created but owner membership failed", "team": created})
	case err != nil:
		h.respondStoreError(c, err, "Failed to create team")
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Team created successfully", "team": created})
	}
}

// ListTeams godoc
// @Summary List the caller's teams
// @Description Partitions visible teams into owned, member and guest buckets
// @Tags teams
// @Produce json
// @Success 200 {object} object{owned_teams=[]object,member_teams=[]object,guest_teams=[]object}
// @Security BearerAuth
// @Router /api/teams [get]
func (h *Handler) ListTeams(c *gin.Context) {
	userTeams, err := h.teams.ListUserTeams(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		h.respondStoreError(c, err, "Failed to list teams")
		return
	}
	c.JSON(http.StatusOK, userTeams)
}

// GetTeam godoc
// @Summary Get team details with members
// @Tags teams
// @Produce json
// @Param id path string true "Team id"
// @Success 200 {object} object{id=string,name=string,members=[]object,member_count=int}
// @Failure 404 {object} object{error=string}
// @Security BearerAuth
// @Router /api/teams/{id} [get]
func (h *Handler) GetTeam(c *gin.Context) {
	details, err := h.teams.GetTeamDetails(c.Request.Context(), c.Param("id"), c.GetString("user_id"), c.GetString("user_email"))
	if err != nil {
		h.respondStoreError(c, err, "Failed to load team")
		return
	}
	c.JSON(http.StatusOK, details)
}

// UpdateTeam godoc
// @Summary Update team metadata
// @Description Owner only
// @Tags teams
// @Accept json
// @Produce json
// @Param id path string true "Team id"
// @Param team body object{name=string,description=string,avatar_url=string} true "Fields to update"
// @Success 200 {object} object{team=object}
// @Failure 403 {object} object{error=string}
// @Security BearerAuth
// @Router /api/teams/{id} [put]
func (h *Handler) UpdateTeam(c *gin.Context) {
	teamID := c.Param("id")
	if !h.teams.Can(c.Request.Context(), teamID, c.GetString("user_id"), team.ActionEditTeam) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can edit the team"})
		return
	}

	var patch platform.TeamPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.teams.UpdateTeam(c.Request.Context(), teamID, patch)
	switch {
	case errors.Is(err, team.ErrNameRequired), errors.Is(err, team.ErrInvalidAvatarURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.respondStoreError(c, err, "Failed to update team")
	default:
		c.JSON(http.StatusOK, gin.H{"team": updated})
	}
}

// DeleteTeam godoc
// @Summary Delete a team
// @Description Owner only; memberships and invitations cascade server-side
// @Tags teams
// @Produce json
// @Param id path string true "Team id"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} object{error=string}
// @Security BearerAuth
// @Router /api/teams/{id} [delete]
func (h *Handler) DeleteTeam(c *gin.Context) {
	teamID := c.Param("id")
	if !h.teams.Can(c.Request.Context(), teamID, c.GetString("user_id"), team.ActionDeleteTeam) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can delete the team"})
		return
	}

	if err := h.teams.DeleteTeam(c.Request.Context(), teamID); err != nil {
		h.respondStoreError(c, err, "Failed to delete team")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team deleted successfully"})
}

// RemoveMember godoc
// @Summary Remove a member from a team
// @Description Owner or admin; the owner is never a valid target
// @Tags teams
// @Produce json
// @Param id path string true "Team id"
// @Param user_id path string true "Member's user id"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} object{error=string}
// @Security BearerAuth
// @Router /api/teams/{id}/members/{user_id} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	teamID := c.Param("id")
	if !h.teams.Can(c.Request.Context(), teamID, c.GetString("user_id"), team.ActionRemoveMembers) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role to remove members"})
		return
	}

	err := h.teams.RemoveMember(c.Request.Context(), teamID, c.Param("user_id"))
	switch {
	case errors.Is(err, team.ErrOwnerImmutable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "The owner cannot be removed"})
	case err != nil:
		h.respondStoreError(c, err, "Failed to remove member")
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
	}
}

// UpdateMemberRole godoc
// @Summary Change a member's role
// @Description Owner only; ownership itself cannot be granted or revoked
// @Tags teams
// @Accept json
// @Produce json
// @Param id path string true "Team id"
// @Param user_id path string true "Member's user id"
// @Param role body object{role=string} true "New role"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} object{error=string}
// @Security BearerAuth
// @Router /api/teams/{id}/members/{user_id}/role [put]
func (h *Handler) UpdateMemberRole(c *gin.Context) {
	teamID := c.Param("id")
	if !h.teams.Can(c.Request.Context(), teamID, c.GetString("user_id"), team.ActionChangeMemberRoles) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can change roles"})
		return
	}

	var request struct {
		Role team.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.teams.UpdateMemberRole(c.Request.Context(), teamID, c.Param("user_id"), request.Role)
	switch {
	case errors.Is(err, team.ErrInvalidRole), errors.Is(err, team.ErrOwnerImmutable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.respondStoreError(c, err, "Failed to update role")
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully"})
	}
}

// respondStoreError maps platform errors onto transport-appropriate
// statuses; anything else is the platform being unreachable.
func (h *Handler) respondStoreError(c *gin.Context, err error, fallback string) {
	var re *platform.RequestError
	if errors.As(err, &re) {
		status := http.StatusBadGateway
		switch re.Status {
		case http.StatusNotFound:
			status = http.StatusNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Platform unreachable"})
}
