package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mwegrzyn/movieclub/internal/models"
)

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func commentJSON(cm models.Comment, author *models.User) echo.Map {
	out := echo.Map{
		"id":         cm.ID,
		"body":       cm.Body,
		"created_at": cm.CreatedAt,
		"updated_at": cm.UpdatedAt,
	}
	if author != nil {
		out["author"] = echo.Map{"id": author.ID, "username": author.Username}
	} else {
		out["author"] = nil
	}
	return out
}

// commentsWithAuthors resolves authors in one query instead of one per row.
func commentsWithAuthors(db *gorm.DB, comments []models.Comment) ([]echo.Map, error) {
	if len(comments) == 0 {
		return []echo.Map{}, nil
	}

	ids := make([]string, 0, len(comments))
	seen := make(map[string]struct{}, len(comments))
	for _, cm := range comments {
		if _, ok := seen[cm.UserID]; !ok {
			seen[cm.UserID] = struct{}{}
			ids = append(ids, cm.UserID)
		}
	}

	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	out := make([]echo.Map, 0, len(comments))
	for _, cm := range comments {
		out = append(out, commentJSON(cm, byID[cm.UserID]))
	}
	return out, nil
}
