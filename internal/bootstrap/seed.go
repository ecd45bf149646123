package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mwegrzyn/movieclub/internal/config"
	"github.com/mwegrzyn/movieclub/internal/hash"
	"github.com/mwegrzyn/movieclub/internal/models"
)

type seedMovie struct {
	Title       string  `json:"title"`
	Year        *int    `json:"year"`
	Director    *string `json:"director"`
	Description *string `json:"description"`
	CoverURL    *string `json:"coverUrl"`
}

// Seed ensures an admin account exists and, when enabled, imports sample
// movies into an empty catalog. Safe to run on every boot.
func Seed(db *gorm.DB, cfg *config.Config, l *slog.Logger) error {
	if !cfg.SeedOnBoot {
		return nil
	}

	if err := ensureAdmin(db, cfg, l); err != nil {
		return err
	}

	if cfg.SeedSampleData {
		if err := importMovies(db, cfg.SeedMoviesFile, l); err != nil {
			return err
		}
	}
	return nil
}

func ensureAdmin(db *gorm.DB, cfg *config.Config, l *slog.Logger) error {
	var admin models.User
	err := db.Where("username = ?", cfg.SeedAdminUser).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		pwHash, err := hash.HashPassword(cfg.SeedAdminPass)
		if err != nil {
			return fmt.Errorf("seed: hash admin password: %w", err)
		}
		admin = models.User{
			ID:           uuid.NewString(),
			Username:     cfg.SeedAdminUser,
			PasswordHash: pwHash,
			Role:         models.RoleAdmin,
		}
		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("seed: create admin: %w", err)
		}
		l.Info("seed: created admin", "username", admin.Username)
	case err != nil:
		return fmt.Errorf("seed: lookup admin: %w", err)
	case admin.Role != models.RoleAdmin:
		admin.Role = models.RoleAdmin
		if err := db.Save(&admin).Error; err != nil {
			return fmt.Errorf("seed: upgrade admin: %w", err)
		}
		l.Info("seed: upgraded user to admin", "username", admin.Username)
	}
	return nil
}

func importMovies(db *gorm.DB, file string, l *slog.Logger) error {
	var count int64
	if err := db.Model(&models.Movie{}).Count(&count).Error; err != nil {
		return fmt.Errorf("seed: count movies: %w", err)
	}
	if count > 0 {
		return nil
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			l.Warn("seed: movies file missing, skipping sample data", "file", file)
			return nil
		}
		return fmt.Errorf("seed: read movies file: %w", err)
	}

	var seedMovies []seedMovie
	if err := json.Unmarshal(raw, &seedMovies); err != nil {
		return fmt.Errorf("seed: parse movies file: %w", err)
	}

	for _, sm := range seedMovies {
		movie := models.Movie{
			ID:          uuid.NewString(),
			Title:       sm.Title,
			Year:        sm.Year,
			Director:    sm.Director,
			Description: sm.Description,
			CoverURL:    sm.CoverURL,
		}
		if err := db.Create(&movie).Error; err != nil {
			return fmt.Errorf("seed: create movie %q: %w", sm.Title, err)
		}
	}
	l.Info("seed: imported sample movies", "count", len(seedMovies))
	return nil
}
