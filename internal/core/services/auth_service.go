package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrNoSecret     = errors.New("token secret is not configured")
)

// AuthService binds a caller identity to a signed HS256 token. The subject
// claim carries the account address.
type AuthService struct {
	secret []byte
}

func NewAuthService(secret string) ports.AuthService {
	return &AuthService{secret: []byte(secret)}
}

func (s *AuthService) IssueToken(identity domain.Identity, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	if identity.IsZero() {
		return "", domain.ErrMissingIdentity
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": identity.String(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *AuthService) ParseToken(tokenString string) (domain.Identity, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return domain.NewIdentity(sub), nil
}
