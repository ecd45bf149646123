package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mwegrzyn/movieclub/internal/events"
	"github.com/mwegrzyn/movieclub/internal/httpx"
	"github.com/mwegrzyn/movieclub/internal/logging"
	"github.com/mwegrzyn/movieclub/internal/models"
	"github.com/mwegrzyn/movieclub/internal/util"
)

const maxCoverBytes = 5 << 20

var coverExtByType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type MovieHandler struct {
	DB        *gorm.DB
	Producer  *events.Producer
	UploadDir string
}

func (h *MovieHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicMovieEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

type movieRow struct {
	models.Movie
	AverageRating *float64 `json:"averageRating"`
}

func roundRating(avg *float64) *float64 {
	if avg == nil {
		return nil
	}
	r := math.Round(*avg*10) / 10
	return &r
}

func movieItem(m movieRow) echo.Map {
	return echo.Map{
		"id":            m.ID,
		"title":         m.Title,
		"year":          m.Year,
		"director":      m.Director,
		"description":   m.Description,
		"coverUrl":      m.CoverURL,
		"averageRating": roundRating(m.AverageRating),
	}
}

func (h *MovieHandler) listMovies(c echo.Context, order string) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Movie{}).Count(&total).Error; err != nil {
		return httpx.Internal(c, err)
	}

	var rows []movieRow
	if err := h.DB.Model(&models.Movie{}).
		Select("movies.*, AVG(ratings.value) AS average_rating").
		Joins("LEFT JOIN ratings ON ratings.movie_id = movies.id").
		Group("movies.id").
		Order(order).
		Offset(offset).Limit(limit).
		Find(&rows).Error; err != nil {
		return httpx.Internal(c, err)
	}

	items := make([]echo.Map, 0, len(rows))
	for _, r := range rows {
		items = append(items, movieItem(r))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":      items,
		"page":       page,
		"total":      total,
		"totalPages": util.TotalPages(total, limit),
	})
}

// GET /api/movies
func (h *MovieHandler) GetMovies(c echo.Context) error {
	return h.listMovies(c, "movies.year DESC")
}

// GET /api/movies/top
func (h *MovieHandler) GetTopMovies(c echo.Context) error {
	// SQLite and Postgres both sort NULL averages (unrated movies) last here.
	return h.listMovies(c, "average_rating DESC NULLS LAST")
}

// GET /api/movies/:id
func (h *MovieHandler) GetMovie(c echo.Context) error {
	id := c.Param("id")

	var movie models.Movie
	if err := h.DB.Where("id = ?", id).First(&movie).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	avg, err := h.averageRating(id)
	if err != nil {
		return httpx.Internal(c, err)
	}

	var comments []models.Comment
	if err := h.DB.Where("movie_id = ?", id).Order("created_at DESC").Find(&comments).Error; err != nil {
		return httpx.Internal(c, err)
	}
	commentItems, err := commentsWithAuthors(h.DB, comments)
	if err != nil {
		return httpx.Internal(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":            movie.ID,
		"title":         movie.Title,
		"year":          movie.Year,
		"director":      movie.Director,
		"description":   movie.Description,
		"coverUrl":      movie.CoverURL,
		"averageRating": roundRating(avg),
		"comments":      commentItems,
	})
}

// POST /api/movies (admin)
func (h *MovieHandler) CreateMovie(c echo.Context) error {
	var req struct {
		Title       string  `json:"title"`
		Year        *int    `json:"year"`
		Director    *string `json:"director"`
		Description *string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}
	if req.Title == "" {
		return httpx.Error(c, http.StatusBadRequest, "title_required")
	}
	if req.Year != nil && (*req.Year < 1888 || *req.Year > 2100) {
		return httpx.Error(c, http.StatusBadRequest, "invalid_year")
	}

	movie := models.Movie{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Year:        req.Year,
		Director:    req.Director,
		Description: req.Description,
	}
	if err := h.DB.Create(&movie).Error; err != nil {
		return httpx.Internal(c, err)
	}

	h.publish(c, movie.ID, map[string]any{
		"type":    "movie_created",
		"movieID": movie.ID,
		"title":   movie.Title,
	})

	return c.JSON(http.StatusCreated, movie)
}

// PATCH /api/movies/:id (admin)
func (h *MovieHandler) PatchMovie(c echo.Context) error {
	id := c.Param("id")

	var req struct {
		Title       *string `json:"title"`
		Year        *int    `json:"year"`
		Director    *string `json:"director"`
		Description *string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.Error(c, http.StatusBadRequest, "invalid_payload")
	}

	var movie models.Movie
	if err := h.DB.Where("id = ?", id).First(&movie).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	changed := false
	if req.Title != nil && *req.Title != movie.Title {
		if *req.Title == "" {
			return httpx.Error(c, http.StatusBadRequest, "title_required")
		}
		movie.Title = *req.Title
		changed = true
	}
	if req.Year != nil {
		if *req.Year < 1888 || *req.Year > 2100 {
			return httpx.Error(c, http.StatusBadRequest, "invalid_year")
		}
		movie.Year = req.Year
		changed = true
	}
	if req.Director != nil {
		movie.Director = req.Director
		changed = true
	}
	if req.Description != nil {
		movie.Description = req.Description
		changed = true
	}
	if !changed {
		return httpx.Error(c, http.StatusBadRequest, httpx.CodeNothingToUpdate)
	}

	if err := h.DB.Save(&movie).Error; err != nil {
		return httpx.Internal(c, err)
	}

	h.publish(c, movie.ID, map[string]any{
		"type":    "movie_updated",
		"movieID": movie.ID,
		"title":   movie.Title,
	})

	return c.JSON(http.StatusOK, movie)
}

// DELETE /api/movies/:id (admin)
//
// Related rows go first; without multi-statement transactions a crash can
// leave partial state, mirroring the rest of the cascade handling here.
func (h *MovieHandler) DeleteMovie(c echo.Context) error {
	id := c.Param("id")

	var movie models.Movie
	if err := h.DB.Where("id = ?", id).First(&movie).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	if err := h.DB.Where("movie_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
		return httpx.Internal(c, err)
	}
	if err := h.DB.Where("movie_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
		return httpx.Internal(c, err)
	}
	if err := h.DB.Where("movie_id = ?", id).Delete(&models.PostMovie{}).Error; err != nil {
		return httpx.Internal(c, err)
	}
	if err := h.DB.Delete(&movie).Error; err != nil {
		return httpx.Internal(c, err)
	}

	h.publish(c, id, map[string]any{
		"type":    "movie_deleted",
		"movieID": id,
	})

	return c.NoContent(http.StatusNoContent)
}

// POST /api/movies/:id/cover (admin)
func (h *MovieHandler) UploadCover(c echo.Context) error {
	id := c.Param("id")

	var movie models.Movie
	if err := h.DB.Where("id = ?", id).First(&movie).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(c, http.StatusNotFound, httpx.CodeNotFound)
		}
		return httpx.Internal(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httpx.Error(c, http.StatusBadRequest, "file_required")
	}
	if fileHeader.Size > maxCoverBytes {
		return httpx.Error(c, http.StatusBadRequest, "file_too_large")
	}
	ext, ok := coverExtByType[fileHeader.Header.Get(echo.HeaderContentType)]
	if !ok {
		return httpx.Error(c, http.StatusBadRequest, "unsupported_media_type")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return httpx.Internal(c, err)
	}
	defer src.Close()

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return httpx.Internal(c, err)
	}
	name := fmt.Sprintf("%s%s", movie.ID, ext)
	dst, err := os.Create(filepath.Join(h.UploadDir, name))
	if err != nil {
		return httpx.Internal(c, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return httpx.Internal(c, err)
	}

	coverURL := "/uploads/" + name
	movie.CoverURL = &coverURL
	if err := h.DB.Save(&movie).Error; err != nil {
		return httpx.Internal(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"coverUrl": coverURL})
}

func (h *MovieHandler) averageRating(movieID string) (*float64, error) {
	var avg sql.NullFloat64
	err := h.DB.Model(&models.Rating{}).
		Select("AVG(value)").
		Where("movie_id = ?", movieID).
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}
