package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mwegrzyn/movieclub/internal/httpx"
	authmw "github.com/mwegrzyn/movieclub/internal/middleware/auth"
	"github.com/mwegrzyn/movieclub/internal/models"
)

// UserHandler covers the admin-only user administration surface.
type UserHandler struct {
	DB *gorm.DB
}

func userJSON(u models.User) echo.Map {
	return echo.Map{
		"id":         u.ID,
		"username":   u.Username,
		"role":       u.Role,
		"bio":        u.Bio,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

// GET /api/users
func (h *UserHandler) GetUsers(c echo.Context) error {
	var users []models.User
	if err := h.DB.Order("created_at ASC").Find(&users).Error; err != nil {
		return httpx.Internal(c, err)
	}

	items := make([]echo.Map, 0, len(users))
	for _, u := range users {
		items = append(items, userJSON(u))
	}
	return c.JSON(http.StatusOK, items)
}

// PATCH /api/users/:id
func (h *UserHandler) PatchUser(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	id := c.Param("id")

	var req struct {
		Username *string `json:"username"`
		Role     *string `json:"role"`
		Bio      *string `json:"bio"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}

	var user models.User
	if err := h.DB.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
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

	if req.Role != nil {
		// An admin demoting themselves would lock the last admin out.
		if ident.ID == id {
			return httpx.Error(c, http.StatusBadRequest, "cannot_change_own_role")
		}
		role := models.Role(*req.Role)
		if !role.Valid() {
			return httpx.Error(c, http.StatusBadRequest, "invalid_role")
		}
		if user.Role != role {
			user.Role = role
			changed = true
		}
	}

	if req.Bio != nil {
		if user.Bio == nil || *user.Bio != *req.Bio {
			user.Bio = req.Bio
			changed = true
		}
	}

	if !changed {
		return httpx.Error(c, http.StatusBadRequest, httpx.CodeNothingToUpdate)
	}
	if err := h.DB.Save(&user).Error; err != nil {
		return httpx.Internal(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
		"bio":      user.Bio,
	})
}

// DELETE /api/users/:id
//
// Removes the user together with everything they own: authored posts (and
// those posts' comments, likes and movie links), then their own comments,
// ratings, likes and refresh tokens.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	id := c.Param("id")

	if ident.ID == id {
		return httpx.Error(c, http.StatusBadRequest, "cannot_delete_self")
	}

	var user models.User
	if err := h.DB.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	var posts []models.Post
	if err := h.DB.Where("author_id = ?", id).Find(&posts).Error; err != nil {
		return httpx.Internal(c, err)
	}
	if len(posts) > 0 {
		postIDs := make([]string, 0, len(posts))
		for _, p := range posts {
			postIDs = append(postIDs, p.ID)
		}
		if err := h.DB.Where("post_id IN ?", postIDs).Delete(&models.Comment{}).Error; err != nil {
			return httpx.Internal(c, err)
		}
		if err := h.DB.Where("post_id IN ?", postIDs).Delete(&models.PostLike{}).Error; err != nil {
			return httpx.Internal(c, err)
		}
		if err := h.DB.Where("post_id IN ?", postIDs).Delete(&models.PostMovie{}).Error; err != nil {
			return httpx.Internal(c, err)
		}
		if err := h.DB.Where("id IN ?", postIDs).Delete(&models.Post{}).Error; err != nil {
			return httpx.Internal(c, err)
		}
	}

	if err := h.DB.Where("user_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
		return httpx.Internal(c, err)
	}
	if err := h.DB.Where("user_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
		return httpx.Internal(c, err)
	}
	if err := h.DB.Where("user_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
		return httpx.Internal(c, err)
	}
	if err := h.DB.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
		return httpx.Internal(c, err)
	}

	if err := h.DB.Delete(&user).Error; err != nil {
		return httpx.Internal(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
