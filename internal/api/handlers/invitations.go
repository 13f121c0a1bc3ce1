package handlers

import (
	"errors"
	"net/http"

	"todohub/internal/team"

	"github.com/gin-gonic/gin"
)

// InviteMember godoc
// @Summary Invite someone to a team
// @Description Owner or admin; creates a 7-day invitation and returns its shareable link
// @Tags invitations
// @Accept json
// @Produce json
// @Param id path string true "Team id"
// @Param invite body object{email=string,role=string} true "Invitee email and role"
// @Success 200 {object} object{invitation=object,link=string}
// @Failure 400 {object} object{error=string}
// @Failure 403 {object} object{error=string}
// @Security BearerAuth
// @Router /api/teams/{id}/invitations [post]
func (h *Handler) InviteMember(c *gin.Context) {
	teamID := c.Param("id")
	userID := c.GetString("user_id")
	if !h.teams.Can(c.Request.Context(), teamID, userID, team.ActionInviteMembers) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role to invite members"})
		return
	}

	var request team.InviteInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invitation, err := h.teams.InviteMember(c.Request.Context(), teamID, userID, request)
	switch {
	case errors.Is(err, team.ErrInvalidEmail), errors.Is(err, team.ErrRoleNotInvitable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.respondStoreError(c, err, "Failed to create invitation")
	default:
		c.JSON(http.StatusOK, gin.H{"invitation": invitation.TeamInvitation, "link": invitation.Link})
	}
}

// ListInvitations godoc
// @Summary List a team's pending invitations
// @Description Expired invitations are filtered out, not deleted
// @Tags invitations
// @Produce json
// @Param id path string true "Team id"
// @Success 200 {object} object{invitations=[]object}
// @Failure 403 {object} object{error=string}
// @Security BearerAuth
// @Router /api/teams/{id}/invitations [get]
func (h *Handler) ListInvitations(c *gin.Context) {
	teamID := c.Param("id")
	if !h.teams.Can(c.Request.Context(), teamID, c.GetString("user_id"), team.ActionInviteMembers) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role to view invitations"})
		return
	}

	invitations, err := h.teams.ListInvitations(c.Request.Context(), teamID)
	if err != nil {
		h.respondStoreError(c, err, "Failed to list invitations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

// DeleteInvitation godoc
// @Summary Cancel an invitation
// @Tags invitations
// @Produce json
// @Param id path string true "Team id"
// @Param invitation_id path string true "Invitation id"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} object{error=string}
// @Security BearerAuth
// @Router /api/teams/{id}/invitations/{invitation_id} [delete]
func (h *Handler) DeleteInvitation(c *gin.Context) {
	teamID := c.Param("id")
	if !h.teams.Can(c.Request.Context(), teamID, c.GetString("user_id"), team.ActionInviteMembers) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role to cancel invitations"})
		return
	}

	if err := h.teams.DeleteInvitation(c.Request.Context(), c.Param("invitation_id")); err != nil {
		h.respondStoreError(c, err, "Failed to cancel invitation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation cancelled"})
}

// AcceptInvitation godoc
// @Summary Accept an invitation by token
// @Description Atomic server-side accept: a token succeeds at most once and never after expiry
// @Tags invitations
// @Accept json
// @Produce json
// @Param accept body object{token=string} true "Invitation token"
// @Success 200 {object} object{message=string}
// @Failure 410 {object} object{error=string,retryable=bool}
// @Security BearerAuth
// @Router /api/invitations/accept [post]
func (h *Handler) AcceptInvitation(c *gin.Context) {
	var request struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invitation token is required"})
		return
	}

	accepted, err := h.teams.AcceptInvitation(c.Request.Context(), request.Token)
	if err != nil {
		h.respondStoreError(c, err, "Failed to accept invitation")
		return
	}
	if !accepted {
		// Terminal for this token unless the underlying condition changes;
		// the client still gets a retry affordance.
		c.JSON(http.StatusGone, gin.H{"error": "Invalid or expired invitation", "retryable": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation accepted successfully"})
}
