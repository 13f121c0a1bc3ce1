package platform

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"todohub/internal/models"
)

type teamInsert struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	CreatedBy   string `json:"created_by"`
}

// TeamPatch carries the updatable team fields; nil fields are untouched.
type TeamPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

type memberInsert struct {
	TeamID    string `json:"team_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	InvitedBy string `json:"invited_by,omitempty"`
}

type invitationInsert struct {
	TeamID    string    `json:"team_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedBy string    `json:"created_by"`
}

func (c *Client) InsertTeam(ctx context.Context, t models.Team) (models.Team, error) {
	return insertRow[models.Team](ctx, c, "teams", teamInsert{
		Name:        t.Name,
		Description: t.Description,
		AvatarURL:   t.AvatarURL,
		CreatedBy:   t.CreatedBy,
	})
}

func (c *Client) GetTeam(ctx context.Context, teamID string) (models.Team, error) {
	q := url.Values{}
	q.Set("id", eq(teamID))
	return selectOne[models.Team](ctx, c, "teams", q)
}

// ListTeams returns every team visible to the caller; the platform's row
// policies decide visibility.
func (c *Client) ListTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := c.selectRows(ctx, "teams", url.Values{}, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (c *Client) UpdateTeam(ctx context.Context, teamID string, patch TeamPatch) (models.Team, error) {
	q := url.Values{}
	q.Set("id", eq(teamID))

	var rows []models.Team
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/teams", q, patch, &rows); err != nil {
		return models.Team{}, err
	}
	if len(rows) == 0 {
		return models.Team{}, ErrNotFound
	}
	return rows[0], nil
}

func (c *Client) DeleteTeam(ctx context.Context, teamID string) error {
	q := url.Values{}
	q.Set("id", eq(teamID))
	return c.do(ctx, http.MethodDelete, "/rest/v1/teams", q, nil, nil)
}

func (c *Client) InsertTeamMember(ctx context.Context, m models.TeamMember) (models.TeamMember, error) {
	return insertRow[models.TeamMember](ctx, c, "team_members", memberInsert{
		TeamID:    m.TeamID,
		UserID:    m.UserID,
		Role:      m.Role,
		InvitedBy: m.InvitedBy,
	})
}

func (c *Client) ListTeamMembers(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	q := url.Values{}
	q.Set("team_id", eq(teamID))

	var members []models.TeamMember
	if err := c.selectRows(ctx, "team_members", q, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// ListMemberships returns every membership row for one user across teams.
func (c *Client) ListMemberships(ctx context.Context, userID string) ([]models.TeamMember, error) {
	q := url.Values{}
	q.Set("user_id", eq(userID))

	var members []models.TeamMember
	if err := c.selectRows(ctx, "team_members", q, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Client) GetMembership(ctx context.Context, teamID, userID string) (models.TeamMember, error) {
	q := url.Values{}
	q.Set("team_id", eq(teamID))
	q.Set("user_id", eq(userID))
	return selectOne[models.TeamMember](ctx, c, "team_members", q)
}

func (c *Client) UpdateMemberRole(ctx context.Context, teamID, userID, role string) error {
	q := url.Values{}
	q.Set("team_id", eq(teamID))
	q.Set("user_id", eq(userID))
	return c.do(ctx, http.MethodPatch, "/rest/v1/team_members", q, map[string]string{"role": role}, nil)
}

func (c *Client) DeleteTeamMember(ctx context.Context, teamID, userID string) error {
	q := url.Values{}
	q.Set("team_id", eq(teamID))
	q.Set("user_id", eq(userID))
	return c.do(ctx, http.MethodDelete, "/rest/v1/team_members", q, nil, nil)
}

func (c *Client) InsertInvitation(ctx context.Context, inv models.TeamInvitation) (models.TeamInvitation, error) {
	return insertRow[models.TeamInvitation](ctx, c, "team_invitations", invitationInsert{
		TeamID:    inv.TeamID,
		Email:     inv.Email,
		Role:      inv.Role,
		Token:     inv.Token,
		ExpiresAt: inv.ExpiresAt,
		CreatedBy: inv.CreatedBy,
	})
}

// ListInvitations returns the invitations for a team that expire after the
// given instant; expired rows are filtered out at the store, not deleted.
func (c *Client) ListInvitations(ctx context.Context, teamID string, after time.Time) ([]models.TeamInvitation, error) {
	q := url.Values{}
	q.Set("team_id", eq(teamID))
	q.Set("expires_at", "gt."+after.UTC().Format(time.RFC3339))

	var invitations []models.TeamInvitation
	if err := c.selectRows(ctx, "team_invitations", q, &invitations); err != nil {
		return nil, err
	}
	return invitations, nil
}

func (c *Client) DeleteInvitation(ctx context.Context, invitationID string) error {
	q := url.Values{}
	q.Set("id", eq(invitationID))
	return c.do(ctx, http.MethodDelete, "/rest/v1/team_invitations", q, nil, nil)
}

// GenerateInvitationToken asks the platform for a unique unguessable token.
// Token generation stays server-side so its security properties live in a
// trusted environment.
func (c *Client) GenerateInvitationToken(ctx context.Context) (string, error) {
	var token string
	if err := c.rpc(ctx, "generate_invitation_token", map[string]string{}, &token); err != nil {
		return "", err
	}
	return token, nil
}

// AcceptInvitation runs the atomic server-side accept procedure: validate
// the token, check expiry, insert the membership and consume the invitation
// in one transaction. Returns false when the token is invalid, expired or
// already consumed.
func (c *Client) AcceptInvitation(ctx context.Context, token string) (bool, error) {
	var accepted bool
	args := map[string]string{"invitation_token": token}
	if err := c.rpc(ctx, "accept_team_invitation", args, &accepted); err != nil {
		return false, err
	}
	return accepted, nil
}
