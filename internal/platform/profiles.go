package platform

import (
	"context"
	"net/http"
	"net/url"

	"todohub/internal/models"
)

type profileInsert struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// ProfilePatch carries the updatable profile fields; nil fields are untouched.
type ProfilePatch struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

func (c *Client) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	q := url.Values{}
	q.Set("id", eq(userID))
	return selectOne[models.Profile](ctx, c, "profiles", q)
}

func (c *Client) InsertProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	return insertRow[models.Profile](ctx, c, "profiles", profileInsert{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
	})
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (models.Profile, error) {
	q := url.Values{}
	q.Set("id", eq(userID))

	var rows []models.Profile
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/profiles", q, patch, &rows); err != nil {
		return models.Profile{}, err
	}
	if len(rows) == 0 {
		return models.Profile{}, ErrNotFound
	}
	return rows[0], nil
}
