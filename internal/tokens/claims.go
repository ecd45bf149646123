package tokens

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/mwegrzyn/movieclub/internal/models"
)

// AccessClaims carry the identity presented on every protected request.
// Role is a snapshot from login time; the auth guard re-checks the stored
// role on each request, so a stale claim cannot grant elevated access.
type AccessClaims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the subject. Everything else about a refresh
// token lives in its database row.
type RefreshClaims struct {
	jwt.RegisteredClaims
}
