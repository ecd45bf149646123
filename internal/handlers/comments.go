package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mwegrzyn/movieclub/internal/httpx"
	authmw "github.com/mwegrzyn/movieclub/internal/middleware/auth"
	"github.com/mwegrzyn/movieclub/internal/models"
)

// POST /api/movies/:id/rating
//
// One rating row per (user, movie); re-rating replaces the old value.
func (h *MovieHandler) Rate(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	movieID := c.Param("id")

	var req struct {
		Value int `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}
	if req.Value < 1 || req.Value > 10 {
		return httpx.Error(c, http.StatusBadRequest, "rating_range_1_10")
	}

	var movie models.Movie
	if err := h.DB.Where("id = ?", movieID).First(&movie).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	var rating models.Rating
	err := h.DB.Where("user_id = ? AND movie_id = ?", ident.ID, movieID).First(&rating).Error
	switch {
	case err == nil:
		rating.Value = req.Value
		if err := h.DB.Save(&rating).Error; err != nil {
			return httpx.Internal(c, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		rating = models.Rating{
			ID:      uuid.NewString(),
			UserID:  ident.ID,
			MovieID: movieID,
			Value:   req.Value,
		}
		if err := h.DB.Create(&rating).Error; err != nil {
			return httpx.Internal(c, err)
		}
	default:
		return httpx.Internal(c, err)
	}

	avg, err := h.averageRating(movieID)
	if err != nil {
		return httpx.Internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"averageRating": roundRating(avg)})
}

// POST /api/movies/:id/comments
func (h *MovieHandler) CreateComment(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	movieID := c.Param("id")

	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return httpx.Error(c, http.StatusBadRequest, "body_required")
	}

	var movie models.Movie
	if err := h.DB.Where("id = ?", movieID).First(&movie).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	comment := models.Comment{
		ID:      uuid.NewString(),
		UserID:  ident.ID,
		MovieID: &movieID,
		Body:    body,
	}
	if err := h.DB.Create(&comment).Error; err != nil {
		return httpx.Internal(c, err)
	}

	return c.JSON(http.StatusCreated, commentJSON(comment, &models.User{
		ID:       ident.ID,
		Username: ident.Username,
	}))
}

// PUT /api/movies/:id/comments/:commentId
func (h *MovieHandler) UpdateComment(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	movieID := c.Param("id")
	commentID := c.Param("commentId")

	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return httpx.Error(c, http.StatusBadRequest, "body_required")
	}

	var comment models.Comment
	if err := h.DB.Where("id = ? AND movie_id = ?", commentID, movieID).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}
	if !authmw.CanModify(ident, comment.UserID) {
		return httpx.Error(c, http.StatusForbidden, httpx.CodeForbidden)
	}

	comment.Body = body
	if err := h.DB.Save(&comment).Error; err != nil {
		return httpx.Internal(c, err)
	}

	var author models.User
	if err := h.DB.Where("id = ?", comment.UserID).First(&author).Error; err != nil {
		return c.JSON(http.StatusOK, commentJSON(comment, nil))
	}
	return c.JSON(http.StatusOK, commentJSON(comment, &author))
}

// DELETE /api/movies/:id/comments/:commentId
func (h *MovieHandler) DeleteComment(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	movieID := c.Param("id")
	commentID := c.Param("commentId")

	var comment models.Comment
	if err := h.DB.Where("id = ? AND movie_id = ?", commentID, movieID).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}
	if !authmw.CanModify(ident, comment.UserID) {
		return httpx.Error(c, http.StatusForbidden, httpx.CodeForbidden)
	}

	if err := h.DB.Delete(&comment).Error; err != nil {
		return httpx.Internal(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
