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
	"github.com/mwegrzyn/movieclub/internal/httpx"
	"github.com/mwegrzyn/movieclub/internal/logging"
	authmw "github.com/mwegrzyn/movieclub/internal/middleware/auth"
	"github.com/mwegrzyn/movieclub/internal/models"
)

type PostHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *PostHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicPostEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *PostHandler) postJSON(post models.Post) (echo.Map, error) {
	var author models.User
	authorField := any(nil)
	if err := h.DB.Where("id = ?", post.AuthorID).First(&author).Error; err == nil {
		authorField = echo.Map{"id": author.ID, "username": author.Username}
	}

	var likes int64
	if err := h.DB.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&likes).Error; err != nil {
		return nil, err
	}

	var links []models.PostMovie
	if err := h.DB.Where("post_id = ?", post.ID).Find(&links).Error; err != nil {
		return nil, err
	}
	movieIDs := make([]string, 0, len(links))
	for _, l := range links {
		movieIDs = append(movieIDs, l.MovieID)
	}

	return echo.Map{
		"id":          post.ID,
		"title":       post.Title,
		"body":        post.Body,
		"author":      authorField,
		"movie_ids":   movieIDs,
		"likes_count": likes,
		"created_at":  post.CreatedAt,
		"updated_at":  post.UpdatedAt,
	}, nil
}

// GET /api/posts
func (h *PostHandler) GetPosts(c echo.Context) error {
	var posts []models.Post
	if err := h.DB.Order("created_at DESC").Find(&posts).Error; err != nil {
		return httpx.Internal(c, err)
	}

	items := make([]echo.Map, 0, len(posts))
	for _, p := range posts {
		item, err := h.postJSON(p)
		if err != nil {
			return httpx.Internal(c, err)
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, items)
}

// GET /api/posts/:id
func (h *PostHandler) GetPost(c echo.Context) error {
	var post models.Post
	if err := h.DB.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	item, err := h.postJSON(post)
	if err != nil {
		return httpx.Internal(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// POST /api/posts
func (h *PostHandler) CreatePost(c echo.Context) error {
	ident := authmw.CurrentUser(c)

	var req struct {
		Title    string   `json:"title"`
		Body     string   `json:"body"`
		MovieIDs []string `json:"movieIds"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}
	if strings.TrimSpace(req.Title) == "" {
		return httpx.Error(c, http.StatusBadRequest, "title_required")
	}
	if strings.TrimSpace(req.Body) == "" {
		return httpx.Error(c, http.StatusBadRequest, "body_required")
	}

	for _, movieID := range req.MovieIDs {
		var movie models.Movie
		if err := h.DB.Where("id = ?", movieID).First(&movie).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
			}
			return httpx.Internal(c, err)
		}
	}

	post := models.Post{
		ID:       uuid.NewString(),
		AuthorID: ident.ID,
		Title:    req.Title,
		Body:     req.Body,
	}
	if err := h.DB.Create(&post).Error; err != nil {
		return httpx.Internal(c, err)
	}
	for _, movieID := range req.MovieIDs {
		link := models.PostMovie{ID: uuid.NewString(), PostID: post.ID, MovieID: movieID}
		if err := h.DB.Create(&link).Error; err != nil {
			return httpx.Internal(c, err)
		}
	}

	h.publish(c, post.ID, map[string]any{
		"type":     "post_created",
		"postID":   post.ID,
		"authorID": post.AuthorID,
	})

	item, err := h.postJSON(post)
	if err != nil {
		return httpx.Internal(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// PUT /api/posts/:id
func (h *PostHandler) UpdatePost(c echo.Context) error {
	ident := authmw.CurrentUser(c)

	var req struct {
		Title *string `json:"title"`
		Body  *string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}

	var post models.Post
	if err := h.DB.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}
	if !authmw.CanModify(ident, post.AuthorID) {
		return httpx.Error(c, http.StatusForbidden, httpx.CodeForbidden)
	}

	changed := false
	if req.Title != nil && *req.Title != post.Title {
		if strings.TrimSpace(*req.Title) == "" {
			return httpx.Error(c, http.StatusBadRequest, "title_required")
		}
		post.Title = *req.Title
		changed = true
	}
	if req.Body != nil && *req.Body != post.Body {
		if strings.TrimSpace(*req.Body) == "" {
			return httpx.Error(c, http.StatusBadRequest, "body_required")
		}
		post.Body = *req.Body
		changed = true
	}
	if !changed {
		return httpx.Error(c, http.StatusBadRequest, httpx.CodeNothingToUpdate)
	}

	if err := h.DB.Save(&post).Error; err != nil {
		return httpx.Internal(c, err)
	}

	item, err := h.postJSON(post)
	if err != nil {
		return httpx.Internal(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// DELETE /api/posts/:id
func (h *PostHandler) DeletePost(c echo.Context) error {
	ident := authmw.CurrentUser(c)

	var post models.Post
	if err := h.DB.Where("id = ?", c.Param("id")).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}
	if !authmw.CanModify(ident, post.AuthorID) {
		return httpx.Error(c, http.StatusForbidden, httpx.CodeForbidden)
	}

	if err := h.DB.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
		return httpx.Internal(c, err)
	}
	if err := h.DB.Where("post_id = ?", post.ID).Delete(&models.PostLike{}).Error; err != nil {
		return httpx.Internal(c, err)
	}
	if err := h.DB.Where("post_id = ?", post.ID).Delete(&models.PostMovie{}).Error; err != nil {
		return httpx.Internal(c, err)
	}
	if err := h.DB.Delete(&post).Error; err != nil {
		return httpx.Internal(c, err)
	}

	h.publish(c, post.ID, map[string]any{
		"type":   "post_deleted",
		"postID": post.ID,
	})

	return c.NoContent(http.StatusNoContent)
}

// POST /api/posts/:id/like
//
// Liking twice is a no-op, not an error.
func (h *PostHandler) LikePost(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	postID := c.Param("id")

	var post models.Post
	if err := h.DB.Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	var like models.PostLike
	err := h.DB.Where("user_id = ? AND post_id = ?", ident.ID, postID).First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		like = models.PostLike{ID: uuid.NewString(), UserID: ident.ID, PostID: postID}
		if err := h.DB.Create(&like).Error; err != nil {
			return httpx.Internal(c, err)
		}
	} else if err != nil {
		return httpx.Internal(c, err)
	}

	return h.likeCount(c, postID, true)
}

// DELETE /api/posts/:id/like
func (h *PostHandler) UnlikePost(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	postID := c.Param("id")

	var post models.Post
	if err := h.DB.Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	if err := h.DB.Where("user_id = ? AND post_id = ?", ident.ID, postID).
		Delete(&models.PostLike{}).Error; err != nil {
		return httpx.Internal(c, err)
	}

	return h.likeCount(c, postID, false)
}

func (h *PostHandler) likeCount(c echo.Context, postID string, liked bool) error {
	var likes int64
	if err := h.DB.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&likes).Error; err != nil {
		return httpx.Internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"likes_count": likes, "liked": liked})
}

// GET /api/posts/:id/comments
func (h *PostHandler) GetComments(c echo.Context) error {
	postID := c.Param("id")

	var post models.Post
	if err := h.DB.Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	var comments []models.Comment
	if err := h.DB.Where("post_id = ?", postID).Order("created_at DESC").Find(&comments).Error; err != nil {
		return httpx.Internal(c, err)
	}
	items, err := commentsWithAuthors(h.DB, comments)
	if err != nil {
		return httpx.Internal(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// POST /api/posts/:id/comments
func (h *PostHandler) CreateComment(c echo.Context) error {
	ident := authmw.CurrentUser(c)
	postID := c.Param("id")

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

	var post models.Post
	if err := h.DB.Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	comment := models.Comment{
		ID:     uuid.NewString(),
		UserID: ident.ID,
		PostID: &postID,
		Body:   body,
	}
	if err := h.DB.Create(&comment).Error; err != nil {
		return httpx.Internal(c, err)
	}

	return c.JSON(http.StatusCreated, commentJSON(comment, &models.User{
		ID:       ident.ID,
		Username: ident.Username,
	}))
}
