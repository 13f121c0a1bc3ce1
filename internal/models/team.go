package models

import "time"

type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TeamMember struct {
	TeamID    string      `json:"team_id"`
	UserID    string      `json:"user_id"`
	Role      string      `json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`
	InvitedBy string      `json:"invited_by,omitempty"`
	User      *MemberUser `json:"user,omitempty"`
}

// MemberUser is the profile display data attached to a membership row when
// a team-with-members view is assembled.
type MemberUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type TeamInvitation struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
}

// Expired reports whether the invitation can no longer be accepted.
func (i TeamInvitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

type TeamWithMembers struct {
	Team
	Members            []TeamMember `json:"members"`
	MemberCount        int          `json:"member_count"`
	CurrentUserIsOwner bool         `json:"current_user_is_owner"`
	CurrentUserRole    string       `json:"current_user_role,omitempty"`
}

// UserTeams partitions the teams visible to an identity by its role in each.
type UserTeams struct {
	OwnedTeams  []Team `json:"owned_teams"`
	MemberTeams []Team `json:"member_teams"`
	GuestTeams  []Team `json:"guest_teams"`
}
