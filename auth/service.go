package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pkgz/auth/v2"
	"github.com/go-pkgz/auth/v2/avatar"
	"github.com/go-pkgz/auth/v2/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/krishkalaria12/snap-edit/config"
	"github.com/krishkalaria12/snap-edit/models"
)

const issuer = "snap-edit"

// Identity is the signed-in subject carried by a bearer token.
type Identity struct {
	Subject string
	Profile models.UserProfile
}

// Service verifies and issues JWTs through the go-pkgz token service.
type Service struct {
	auth     *auth.Service
	duration time.Duration
}

func NewService(cfg *config.Config) *Service {
	secret := cfg.JWTSecret
	opts := auth.Opts{
		SecretReader: token.SecretFunc(func(string) (string, error) {
			return secret, nil
		}),
		TokenDuration:  time.Hour * 24,
		CookieDuration: time.Hour * 24 * 7,
		Issuer:         issuer,
		URL:            cfg.AppURL,
		AvatarStore:    avatar.NewLocalFS(filepath.Join(os.TempDir(), "snap-edit-avatars")),
	}
	return &Service{auth: auth.NewService(opts), duration: opts.TokenDuration}
}

// Parse validates tokenStr and extracts the identity it carries.
func (s *Service) Parse(tokenStr string) (*Identity, error) {
	claims, err := s.auth.TokenService().Parse(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	// the token service lets expired tokens through for refresh
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("invalid token: expired at %s", claims.ExpiresAt.Format(time.RFC3339))
	}
	if claims.User == nil || claims.User.ID == "" {
		return nil, fmt.Errorf("invalid token: no subject")
	}

	u := claims.User
	return &Identity{
		Subject: u.ID,
		Profile: models.UserProfile{
			Email:     u.Email,
			Username:  u.Name,
			Photo:     u.Picture,
			FirstName: u.StrAttr("first_name"),
			LastName:  u.StrAttr("last_name"),
		},
	}, nil
}

// Issue signs a token for subject. Used by tooling and tests; production
// tokens come from the identity provider.
func (s *Service) Issue(subject string, profile models.UserProfile) (string, error) {
	u := &token.User{
		ID:      subject,
		Name:    profile.Username,
		Email:   profile.Email,
		Picture: profile.Photo,
	}
	u.SetStrAttr("first_name", profile.FirstName)
	u.SetStrAttr("last_name", profile.LastName)

	now := time.Now()
	claims := token.Claims{
		User: u,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        subject,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	}
	return s.auth.TokenService().Token(claims)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
