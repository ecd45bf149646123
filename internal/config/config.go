package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       int
	CorsOrigin string

	DBPath      string
	DatabaseURL string

	JWTSecret        []byte
	JWTRefreshSecret []byte
	AccessTTLSec     int
	RefreshTTLSec    int

	UploadDir string
	LogLevel  string

	KafkaBrokers []string

	SeedOnBoot     bool
	SeedSampleData bool
	SeedAdminUser  string
	SeedAdminPass  string
	SeedMoviesFile string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		Port:       EnvIntDefault("PORT", 3001),
		CorsOrigin: EnvDefault("CORS_ORIGIN", "*"),

		DBPath:      EnvDefault("DB_PATH", "./data/app.sqlite"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:        []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTTLSec:     EnvIntDefault("JWT_ACCESS_TTL", 900),
		RefreshTTLSec:    EnvIntDefault("JWT_REFRESH_TTL", 1209600),

		UploadDir: EnvDefault("UPLOAD_DIR", "./uploads"),
		LogLevel:  EnvDefault("LOG_LEVEL", "info"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		SeedOnBoot:     EnvBoolDefault("SEED_ON_BOOT", false),
		SeedSampleData: EnvBoolDefault("SEED_SAMPLE_DATA", false),
		SeedAdminUser:  EnvDefault("SEED_ADMIN_USER", "admin"),
		SeedAdminPass:  EnvDefault("SEED_ADMIN_PASS", "admin"),
		SeedMoviesFile: EnvDefault("SEED_MOVIES_FILE", "./data/top100_movies.json"),
	}

	return cfg, nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
