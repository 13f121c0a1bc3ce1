package team

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todohub/internal/models"
	"todohub/internal/platform"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	ErrNameRequired     = errors.New("team name is required")
	ErrInvalidAvatarURL = errors.New("avatar_url must be a well-formed URL")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrRoleNotInvitable = errors.New("role cannot be used on an invitation")
	ErrInvalidRole      = errors.New("invalid role")
	ErrOwnerImmutable   = errors.New("owner membership cannot be modified")
)

const invitationTTL = 7 * 24 * time.Hour

// Store is the remote surface for team, membership and invitation rows.
type Store interface {
	InsertTeam(ctx context.Context, t models.Team) (models.Team, error)
	GetTeam(ctx context.Context, teamID string) (models.Team, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	UpdateTeam(ctx context.Context, teamID string, patch platform.TeamPatch) (models.Team, error)
	DeleteTeam(ctx context.Context, teamID string) error

	InsertTeamMember(ctx context.Context, m models.TeamMember) (models.TeamMember, error)
	ListTeamMembers(ctx context.Context, teamID string) ([]models.TeamMember, error)
	ListMemberships(ctx context.Context, userID string) ([]models.TeamMember, error)
	GetMembership(ctx context.Context, teamID, userID string) (models.TeamMember, error)
	UpdateMemberRole(ctx context.Context, teamID, userID, role string) error
	DeleteTeamMember(ctx context.Context, teamID, userID string) error

	InsertInvitation(ctx context.Context, inv models.TeamInvitation) (models.TeamInvitation, error)
	ListInvitations(ctx context.Context, teamID string, after time.Time) ([]models.TeamInvitation, error)
	DeleteInvitation(ctx context.Context, invitationID string) error
	GenerateInvitationToken(ctx context.Context) (string, error)
	AcceptInvitation(ctx context.Context, token string) (bool, error)
}

// ProfileStore enriches membership rows with display data.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
}

// Mailer delivers invitation links. Optional; a nil mailer skips delivery.
type Mailer interface {
	SendInvitation(ctx context.Context, email, teamName, role, link string) error
}

type CreateTeamInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url" validate:"omitempty,url"`
}

type InviteInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role"`
}

type Invitation struct {
	models.TeamInvitation
	Link string `json:"link"`
}

type Service struct {
	store    Store
	profiles ProfileStore
	mailer   Mailer
	origin   string
	validate *validator.Validate
	log      *logrus.Entry
}

func NewService(store Store, profiles ProfileStore, mailer Mailer, origin string, log *logrus.Logger) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		mailer:   mailer,
		origin:   origin,
		validate: validator.New(),
		log:      log.WithField("component", "team"),
	}
}

// CreateTeam inserts the team row and then the creator's owner membership.
// The two calls are dependent but not transactional: when the membership
// insert fails the team is left ownerless. That gap is logged and surfaced,
// never silently compensated; closing it needs an atomic server-side
// procedure.
func (s *Service) CreateTeam(ctx context.Context, creatorID string, input CreateTeamInput) (models.Team, error) {
	if err := s.validate.Struct(input); err != nil {
		if input.Name == "" {
			return models.Team{}, ErrNameRequired
		}
		return models.Team{}, ErrInvalidAvatarURL
	}

	created, err := s.store.InsertTeam(ctx, models.Team{
		Name:        input.Name,
		Description: input.Description,
		AvatarURL:   input.AvatarURL,
		CreatedBy:   creatorID,
	})
	if err != nil {
		return models.Team{}, err
	}

	_, err = s.store.InsertTeamMember(ctx, models.TeamMember{
		TeamID: created.ID,
		UserID: creatorID,
		Role:   string(RoleOwner),
	})
	if err != nil {
		s.log.WithError(err).WithField("team_id", created.ID).
			Error("owner membership insert failed; team left without owner")
		return created, fmt.Errorf("team created but owner membership failed: %w", err)
	}

	return created, nil
}

// ListUserTeams partitions the teams visible to an identity into owned,
// member and guest buckets.
func (s *Service) ListUserTeams(ctx context.Context, userID string) (models.UserTeams, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return models.UserTeams{}, err
	}
	memberships, err := s.store.ListMemberships(ctx, userID)
	if err != nil {
		return models.UserTeams{}, err
	}

	roleByTeam := make(map[string]Role, len(memberships))
	for _, m := range memberships {
		roleByTeam[m.TeamID] = Role(m.Role)
	}

	out := models.UserTeams{
		OwnedTeams:  []models.Team{},
		MemberTeams: []models.Team{},
		GuestTeams:  []models.Team{},
	}
	for _, t := range teams {
		switch {
		case t.CreatedBy == userID || roleByTeam[t.ID] == RoleOwner:
			out.OwnedTeams = append(out.OwnedTeams, t)
		case roleByTeam[t.ID] == RoleAdmin || roleByTeam[t.ID] == RoleMember:
			out.MemberTeams = append(out.MemberTeams, t)
		case roleByTeam[t.ID] == RoleGuest:
			out.GuestTeams = append(out.GuestTeams, t)
		}
	}
	return out, nil
}

// GetTeamDetails assembles the team-with-members view: the team row, every
// membership, and per-member profile display data with a synthesized
// placeholder when no profile exists.
func (s *Service) GetTeamDetails(ctx context.Context, teamID, requesterID, requesterEmail string) (models.TeamWithMembers, error) {
	t, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return models.TeamWithMembers{}, err
	}
	members, err := s.store.ListTeamMembers(ctx, teamID)
	if err != nil {
		return models.TeamWithMembers{}, err
	}

	currentRole := ""
	for i := range members {
		m := &members[i]
		user := models.MemberUser{ID: m.UserID}

		profile, perr := s.profiles.GetProfile(ctx, m.UserID)
		if perr == nil {
			user.FullName = profile.DisplayName
			user.AvatarURL = profile.AvatarURL
		}

		switch {
		case m.UserID == requesterID && requesterEmail != "":
			user.Email = requesterEmail
		case user.FullName != "":
			user.Email = user.FullName
		default:
			user.Email = memberPlaceholder(m.UserID)
		}
		m.User = &user

		if m.UserID == requesterID {
			currentRole = m.Role
		}
	}

	return models.TeamWithMembers{
		Team:               t,
		Members:            members,
		MemberCount:        len(members),
		CurrentUserIsOwner: t.CreatedBy == requesterID,
		CurrentUserRole:    currentRole,
	}, nil
}

// memberPlaceholder synthesizes a display name from an id prefix when the
// member has no profile.
func memberPlaceholder(userID string) string {
	if len(userID) > 8 {
		userID = userID[:8]
	}
	return "メンバー-" + userID
}

func (s *Service) UpdateTeam(ctx context.Context, teamID string, patch platform.TeamPatch) (models.Team, error) {
	if patch.AvatarURL != nil && *patch.AvatarURL != "" {
		if err := s.validate.Var(*patch.AvatarURL, "url"); err != nil {
			return models.Team{}, ErrInvalidAvatarURL
		}
	}
	if patch.Name != nil && *patch.Name == "" {
		return models.Team{}, ErrNameRequired
	}
	return s.store.UpdateTeam(ctx, teamID, patch)
}

func (s *Service) DeleteTeam(ctx context.Context, teamID string) error {
	return s.store.DeleteTeam(ctx, teamID)
}

// InviteMember creates an invitation valid for seven days and returns it
// with its shareable link. The token comes from a server-side procedure so
// its entropy is generated in a trusted environment.
func (s *Service) InviteMember(ctx context.Context, teamID, inviterID string, input InviteInput) (Invitation, error) {
	if err := s.validate.Struct(input); err != nil {
		return Invitation{}, ErrInvalidEmail
	}
	if !input.Role.Invitable() {
		return Invitation{}, ErrRoleNotInvitable
	}

	token, err := s.store.GenerateInvitationToken(ctx)
	if err != nil {
		return Invitation{}, err
	}

	created, err := s.store.InsertInvitation(ctx, models.TeamInvitation{
		TeamID:    teamID,
		Email:     input.Email,
		Role:      string(input.Role),
		Token:     token,
		ExpiresAt: time.Now().Add(invitationTTL),
		CreatedBy: inviterID,
	})
	if err != nil {
		return Invitation{}, err
	}

	inv := Invitation{TeamInvitation: created, Link: s.InvitationLink(created.Token)}

	if s.mailer != nil {
		t, terr := s.store.GetTeam(ctx, teamID)
		teamName := teamID
		if terr == nil {
			teamName = t.Name
		}
		if merr := s.mailer.SendInvitation(ctx, created.Email, teamName, created.Role, inv.Link); merr != nil {
			// Delivery is best-effort; the link itself is the contract.
			s.log.WithError(merr).WithField("invitation_id", created.ID).Warn("invitation email delivery failed")
		}
	}

	return inv, nil
}

// InvitationLink builds the shareable acceptance URL.
func (s *Service) InvitationLink(token string) string {
	return s.origin + "/invite/" + token
}

// ListInvitations returns only invitations that have not expired yet.
func (s *Service) ListInvitations(ctx context.Context, teamID string) ([]models.TeamInvitation, error) {
	invitations, err := s.store.ListInvitations(ctx, teamID, time.Now())
	if err != nil {
		return nil, err
	}
	if invitations == nil {
		invitations = []models.TeamInvitation{}
	}
	return invitations, nil
}

func (s *Service) DeleteInvitation(ctx context.Context, invitationID string) error {
	return s.store.DeleteInvitation(ctx, invitationID)
}

// AcceptInvitation delegates the whole validate-expiry-insert-consume
// sequence to one atomic server-side procedure, so a token can never be
// consumed twice even under concurrent acceptance.
func (s *Service) AcceptInvitation(ctx context.Context, token string) (bool, error) {
	return s.store.AcceptInvitation(ctx, token)
}

// RemoveMember deletes a membership row. Owner rows are never a valid
// target; ownership only disappears with the team itself.
func (s *Service) RemoveMember(ctx context.Context, teamID, userID string) error {
	if m, err := s.store.GetMembership(ctx, teamID, userID); err == nil && Role(m.Role) == RoleOwner {
		return ErrOwnerImmutable
	}
	return s.store.DeleteTeamMember(ctx, teamID, userID)
}

// UpdateMemberRole changes a member's role. Owners cannot be demoted and
// ownership cannot be granted (transfer is not modeled).
func (s *Service) UpdateMemberRole(ctx context.Context, teamID, userID string, role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if role == RoleOwner {
		return ErrOwnerImmutable
	}
	if m, err := s.store.GetMembership(ctx, teamID, userID); err == nil && Role(m.Role) == RoleOwner {
		return ErrOwnerImmutable
	}
	return s.store.UpdateMemberRole(ctx, teamID, userID, string(role))
}

// Can is the advisory permission gate: the requester's membership role is
// looked up and checked against the allow-list. Missing membership denies.
func (s *Service) Can(ctx context.Context, teamID, userID string, action Action) bool {
	m, err := s.store.GetMembership(ctx, teamID, userID)
	if err != nil {
		return false
	}
	return IsAllowed(Role(m.Role), action)
}
