package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbpkg "github.com/mwegrzyn/movieclub/internal/db"
	"github.com/mwegrzyn/movieclub/internal/handlers"
	"github.com/mwegrzyn/movieclub/internal/hash"
	authmw "github.com/mwegrzyn/movieclub/internal/middleware/auth"
	"github.com/mwegrzyn/movieclub/internal/models"
	"github.com/mwegrzyn/movieclub/internal/tokens"
	httpserver "github.com/mwegrzyn/movieclub/internal/transport/http"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to connect to in-memory db")

	// One connection keeps the in-memory database alive across queries.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, dbpkg.Migrate(db), "failed to migrate tables")
	return db
}

type testEnv struct {
	E     *echo.Echo
	DB    *gorm.DB
	Codec *tokens.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := initTestDB(t)
	codec := tokens.New([]byte("test-access-secret"), []byte("test-refresh-secret"), 900, 1209600)
	guard := &authmw.Guard{DB: db, Codec: codec}

	e := echo.New()
	uploadDir := t.TempDir()
	httpserver.Register(e, &httpserver.Deps{
		DB:           db,
		Guard:        guard,
		AuthHandler:  &handlers.AuthHandler{DB: db, Codec: codec},
		MovieHandler: &handlers.MovieHandler{DB: db, UploadDir: uploadDir},
		PostHandler:  &handlers.PostHandler{DB: db},
		UserHandler:  &handlers.UserHandler{DB: db},
		UploadDir:    uploadDir,
	})

	return &testEnv{E: e, DB: db, Codec: codec}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	code, _ := decodeBody(t, rec)["error"].(string)
	return code
}

func createUser(t *testing.T, db *gorm.DB, username, password string, role models.Role) models.User {
	t.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: pwHash,
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func (env *testEnv) login(t *testing.T, username, password string) (access, refresh string) {
	t.Helper()

	rec := env.do(t, "POST", "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, 200, rec.Code, "login failed: %s", rec.Body.String())
	body := decodeBody(t, rec)
	access, _ = body["accessToken"].(string)
	refresh, _ = body["refreshToken"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

func createMovie(t *testing.T, db *gorm.DB, title string, year int) models.Movie {
	t.Helper()

	movie := models.Movie{ID: uuid.NewString(), Title: title, Year: &year}
	require.NoError(t, db.Create(&movie).Error)
	return movie
}
