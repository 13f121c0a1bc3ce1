// internal/api/docs.go
package api

import "time"

// These types are for Swagger documentation
type TaskResponse struct {
	ID        string    `json:"id" example:"b4f9c7aa-1c2d-4e0f-9a3b-7d8e5f6a1b2c"`
	Text      string    `json:"text" example:"Buy milk"`
	Completed bool      `json:"completed" example:"false"`
	Priority  string    `json:"priority" example:"high"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateTaskRequest struct {
	Text     string `json:"text" example:"Buy milk"`
	Priority string `json:"priority" example:"medium"`
}

type CreateTeamRequest struct {
	Name        string `json:"name" example:"Design team"`
	Description string `json:"description" example:"Everything visual"`
	AvatarURL   string `json:"avatar_url" example:"https://example.com/avatar.png"`
}

type InviteMemberRequest struct {
	Email string `json:"email" example:"user@example.com"`
	Role  string `json:"role" example:"member"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token" example:"3f9d2c1b8a7e6f5d4c3b2a1908f7e6d5"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"Error message"`
}
