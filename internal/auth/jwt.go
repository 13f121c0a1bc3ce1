package auth

import (
	"errors"

	"todohub/internal/config"

	"github.com/golang-jwt/jwt/v4"
)

var jwtSecret []byte

// Identity is the authenticated principal extracted from a platform-issued
// access token. The service never issues tokens itself; sign-in belongs to
// the platform's auth provider.
type Identity struct {
	ID    string
	Email string
}

var ErrInvalidToken = errors.New("invalid token")

func InitJWT(cfg *config.Config) {
	jwtSecret = []byte(cfg.Platform.JWTSecret)
}

// ValidateToken parses a platform access token and returns the identity it
// carries. Tokens are HS256-signed with the platform's JWT secret; the
// subject claim holds the identity id.
func ValidateToken(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return jwtSecret, nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{}
	if sub, ok := claims["sub"].(string); ok {
		id.ID = sub
	} else if uid, ok := claims["user_id"].(string); ok {
		id.ID = uid
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if id.ID == "" {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}
