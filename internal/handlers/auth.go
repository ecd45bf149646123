package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mwegrzyn/movieclub/internal/events"
	"github.com/mwegrzyn/movieclub/internal/hash"
	"github.com/mwegrzyn/movieclub/internal/httpx"
	"github.com/mwegrzyn/movieclub/internal/logging"
	authmw "github.com/mwegrzyn/movieclub/internal/middleware/auth"
	"github.com/mwegrzyn/movieclub/internal/models"
	"github.com/mwegrzyn/movieclub/internal/tokens"
)

type AuthHandler struct {
	DB       *gorm.DB
	Codec    *tokens.Codec
	Producer *events.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func validUsername(u string) bool {
	return len(u) >= 3 && len(u) <= 32
}

// POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}

	username := strings.TrimSpace(req.Username)
	if !validUsername(username) {
		return httpx.Error(c, http.StatusBadRequest, httpx.CodeUsernameLength)
	}
	if len(req.Password) < 6 {
		return httpx.Error(c, http.StatusBadRequest, httpx.CodePasswordMin)
	}

	var existing models.User
	err := h.DB.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return httpx.Error(c, http.StatusConflict, httpx.CodeUsernameTaken)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return httpx.Internal(c, err)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return httpx.Internal(c, err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return httpx.Internal(c, err)
	}

	h.publish(c, user.ID, map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"id":       user.ID,
		"username": user.Username,
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}

	// One error shape for both unknown user and bad password, so the
	// response does not reveal which check failed.
	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusUnauthorized, "invalid_credentials")
		}
		return httpx.Internal(c, err)
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return httpx.Error(c, http.StatusUnauthorized, "invalid_credentials")
	}

	accessToken, err := h.Codec.SignAccess(&user)
	if err != nil {
		return httpx.Internal(c, err)
	}
	refreshToken, err := h.Codec.SignRefresh(&user)
	if err != nil {
		return httpx.Internal(c, err)
	}

	// One row per issued token: concurrent sessions stay independent.
	row := models.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(h.Codec.RefreshTTL),
	}
	if err := h.DB.Create(&row).Error; err != nil {
		return httpx.Internal(c, err)
	}

	h.publish(c, user.ID, map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

// POST /api/auth/refresh
//
// Revocation is enforced by the stored row, expiry by the signature; the two
// checks are independent and both must pass.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return httpx.Error(c, http.StatusBadRequest, "missing_refresh")
	}

	var row models.RefreshToken
	if err := h.DB.Where("token = ?", req.RefreshToken).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusUnauthorized, "refresh_invalid")
		}
		return httpx.Internal(c, err)
	}
	if row.RevokedAt != nil {
		return httpx.Error(c, http.StatusUnauthorized, "refresh_invalid")
	}

	claims, err := h.Codec.VerifyRefresh(req.RefreshToken)
	if err != nil {
		return httpx.Error(c, http.StatusUnauthorized, "refresh_expired")
	}

	var user models.User
	if err := h.DB.Where("id = ?", claims.Subject).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusUnauthorized, "user_missing")
		}
		return httpx.Internal(c, err)
	}

	// No rotation: the refresh token is reused until logout or expiry.
	accessToken, err := h.Codec.SignAccess(&user)
	if err != nil {
		return httpx.Internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": accessToken})
}

// POST /api/auth/logout
//
// Idempotent: revoking an unknown or already-revoked token still returns
// 204, so callers cannot probe which tokens exist.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return httpx.Error(c, http.StatusBadRequest, "missing_refresh")
	}

	now := time.Now()
	if err := h.DB.Model(&models.RefreshToken{}).
		Where("token = ?", req.RefreshToken).
		Update("revoked_at", now).Error; err != nil {
		return httpx.Internal(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	if ident == nil {
		return httpx.Error(c, http.StatusUnauthorized, "missing_token")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":       ident.ID,
		"username": ident.Username,
		"role":     ident.Role,
	})
}

// PATCH /api/auth/me
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	if ident == nil {
		return httpx.Error(c, http.StatusUnauthorized, "missing_token")
	}

	var req struct {
		Username        *string `json:"username"`
		CurrentPassword *string `json:"currentPassword"`
		NewPassword     *string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}

	var user models.User
	if err := h.DB.Where("id = ?", ident.ID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, "user_not_found")
		}
		return httpx.Internal(c, err)
	}

	changed := false

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if !validUsername(username) {
			return httpx.Error(c, http.StatusBadRequest, httpx.CodeUsernameLength)
		}
		if username != user.Username {
			var existing models.User
			err := h.DB.Where("username = ?", username).First(&existing).Error
			if err == nil {
				return httpx.Error(c, http.StatusConflict, httpx.CodeUsernameTaken)
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return httpx.Internal(c, err)
			}
			user.Username = username
			changed = true
		}
	}

	if req.NewPassword != nil {
		if len(*req.NewPassword) < 6 {
			return httpx.Error(c, http.StatusBadRequest, httpx.CodePasswordMin)
		}
		if req.CurrentPassword == nil || *req.CurrentPassword == "" {
			return httpx.Error(c, http.StatusBadRequest, "current_password_required")
		}
		if !hash.CheckPassword(user.PasswordHash, *req.CurrentPassword) {
			return httpx.Error(c, http.StatusUnauthorized, "invalid_current_password")
		}
		pwHash, err := hash.HashPassword(*req.NewPassword)
		if err != nil {
			return httpx.Internal(c, err)
		}
		user.PasswordHash = pwHash
		changed = true
	}

	if !changed {
		return httpx.Error(c, http.StatusBadRequest, httpx.CodeNothingToUpdate)
	}

	if err := h.DB.Save(&user).Error; err != nil {
		return httpx.Internal(c, err)
	}

	// Claims may now be stale (username), so hand back a fresh token.
	accessToken, err := h.Codec.SignAccess(&user)
	if err != nil {
		return httpx.Internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":          user.ID,
		"username":    user.Username,
		"role":        user.Role,
		"accessToken": accessToken,
	})
}
