// Package team implements the role/permission model and the CRUD engine for
// teams, memberships and invitations. Permission checks here are advisory
// gates for the API surface; the platform's row-level policies re-validate
// every mutating call and remain the authoritative enforcement.
package team

// Role is the closed set of membership levels.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleGuest  Role = "guest"
)

// roleRank orders roles by authority. Unknown roles rank below guest.
var roleRank = map[Role]int{
	RoleOwner:  4,
	RoleAdmin:  3,
	RoleMember: 2,
	RoleGuest:  1,
}

func (r Role) Rank() int {
	return roleRank[r]
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Invitable reports whether the role may appear on an invitation. Ownership
// is never invitable; it exists only through team creation.
func (r Role) Invitable() bool {
	return r == RoleAdmin || r == RoleMember || r == RoleGuest
}

// Action is the closed set of gated team operations.
type Action string

const (
	ActionEditTeam          Action = "EDIT_TEAM"
	ActionDeleteTeam        Action = "DELETE_TEAM"
	ActionInviteMembers     Action = "INVITE_MEMBERS"
	ActionRemoveMembers     Action = "REMOVE_MEMBERS"
	ActionChangeMemberRoles Action = "CHANGE_MEMBER_ROLES"
	ActionCreateTasks       Action = "CREATE_TASKS"
	ActionEditTasks         Action = "EDIT_TASKS"
	ActionDeleteTasks       Action = "DELETE_TASKS"
	ActionViewTeam          Action = "VIEW_TEAM"
	ActionViewTasks         Action = "VIEW_TASKS"
)

// permissions is an explicit allow-list per action. It is intentionally not
// derived from role ranks: action requirements are not monotonic in the
// hierarchy (role changes are owner-only even though admins can invite).
var permissions = map[Action][]Role{
	ActionEditTeam:          {RoleOwner},
	ActionDeleteTeam:        {RoleOwner},
	ActionChangeMemberRoles: {RoleOwner},

	ActionInviteMembers: {RoleOwner, RoleAdmin},
	ActionRemoveMembers: {RoleOwner, RoleAdmin},

	ActionCreateTasks: {RoleOwner, RoleAdmin, RoleMember},
	ActionEditTasks:   {RoleOwner, RoleAdmin, RoleMember},
	ActionDeleteTasks: {RoleOwner, RoleAdmin, RoleMember},

	ActionViewTeam:  {RoleOwner, RoleAdmin, RoleMember, RoleGuest},
	ActionViewTasks: {RoleOwner, RoleAdmin, RoleMember, RoleGuest},
}

// IsAllowed reports whether a role may perform an action. Unknown roles and
// unknown actions are always denied.
func IsAllowed(role Role, action Action) bool {
	for _, allowed := range permissions[action] {
		if role == allowed {
			return true
		}
	}
	return false
}

// HasHigherRole reports whether a outranks b strictly. Used for comparative
// checks such as refusing to modify a peer of equal or greater rank, never
// for the allow-list lookups above.
func HasHigherRole(a, b Role) bool {
	return a.Rank() > b.Rank()
}
