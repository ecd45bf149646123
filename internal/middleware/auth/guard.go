package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mwegrzyn/movieclub/internal/httpx"
	"github.com/mwegrzyn/movieclub/internal/models"
	"github.com/mwegrzyn/movieclub/internal/tokens"
)

const identityKey = "identity"

// Identity is the caller attached to the request context by RequireAuth.
type Identity struct {
	ID       string
	Username string
	Role     models.Role
}

type Guard struct {
	DB    *gorm.DB
	Codec *tokens.Codec
}

// RequireAuth validates the bearer access token and re-fetches the user row,
// so a role change applies on the very next request even while the old token
// string is still cryptographically valid.
func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return httpx.Error(c, http.StatusUnauthorized, "missing_token")
		}

		claims, err := g.Codec.VerifyAccess(token)
		if err != nil {
			return httpx.Error(c, http.StatusUnauthorized, "invalid_or_expired_token")
		}

		var user models.User
		if err := g.DB.Where("id = ?", claims.Subject).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpx.Error(c, http.StatusUnauthorized, "user_missing")
			}
			return httpx.Internal(c, err)
		}

		c.Set(identityKey, &Identity{ID: user.ID, Username: user.Username, Role: user.Role})
		return next(c)
	}
}

// RequireAdmin layers an exact admin check on top of RequireAuth.
func (g *Guard) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return g.RequireAuth(func(c echo.Context) error {
		ident := CurrentUser(c)
		if ident == nil || ident.Role != models.RoleAdmin {
			return httpx.Error(c, http.StatusForbidden, httpx.CodeForbidden)
		}
		return next(c)
	})
}

func CurrentUser(c echo.Context) *Identity {
	if v, ok := c.Get(identityKey).(*Identity); ok {
		return v
	}
	return nil
}

// CanModify is the resource-owners rule shared by every mutating handler:
// the owner may act, and so may moderators and admins.
func CanModify(ident *Identity, ownerID string) bool {
	if ident == nil {
		return false
	}
	return ident.ID == ownerID || ident.Role.Elevated()
}

func bearerToken(c echo.Context) string {
	hdr := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(hdr, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(hdr, "Bearer "))
}
