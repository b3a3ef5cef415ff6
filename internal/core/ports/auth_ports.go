package ports

import (
	"time"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
)

type AuthService interface {
	IssueToken(identity domain.Identity, ttl time.Duration) (string, error)
	ParseToken(token string) (domain.Identity, error)
}
