package constants

const (
	// Rate limits (requests per minute)
	TaskMutationLimit = 120 // Task add/toggle/edit/delete
	TeamMutationLimit = 60  // Team/membership/invitation mutations
	AcceptInviteLimit = 30  // Invitation acceptance attempts
	AvatarUploadLimit = 10  // Avatar uploads
)
