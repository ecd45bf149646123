package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mwegrzyn/movieclub/internal/models"
)

func TestUsersAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	createUser(t, env.DB, "admin_user", "password", models.RoleAdmin)
	createUser(t, env.DB, "mod_user", "password", models.RoleModerator)
	adminAccess, _ := env.login(t, "admin_user", "password")
	modAccess, _ := env.login(t, "mod_user", "password")

	// user administration is admin-exact, moderators are not enough
	rec := env.do(t, "GET", "/api/users", modAccess, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", errorCode(t, rec))

	rec = env.do(t, "GET", "/api/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, "GET", "/api/users", adminAccess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	require.NotContains(t, first, "password_hash")
}

func TestPatchUser(t *testing.T) {
	env := newTestEnv(t)
	admin := createUser(t, env.DB, "admin_user", "password", models.RoleAdmin)
	target := createUser(t, env.DB, "target", "password", models.RoleUser)
	adminAccess, _ := env.login(t, "admin_user", "password")

	rec := env.do(t, "PATCH", "/api/users/"+target.ID, adminAccess, map[string]any{"role": "moderator"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "moderator", decodeBody(t, rec)["role"])

	rec = env.do(t, "PATCH", "/api/users/"+target.ID, adminAccess, map[string]any{"role": "overlord"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_role", errorCode(t, rec))

	rec = env.do(t, "PATCH", "/api/users/"+target.ID, adminAccess, map[string]any{"bio": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello", decodeBody(t, rec)["bio"])

	rec = env.do(t, "PATCH", "/api/users/"+target.ID, adminAccess, map[string]any{"username": "ab"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "username_length_3_32", errorCode(t, rec))

	rec = env.do(t, "PATCH", "/api/users/"+target.ID, adminAccess, map[string]any{"username": "admin_user"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "username_taken", errorCode(t, rec))

	rec = env.do(t, "PATCH", "/api/users/"+target.ID, adminAccess, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "nothing_to_update", errorCode(t, rec))

	rec = env.do(t, "PATCH", "/api/users/"+uuid.NewString(), adminAccess, map[string]any{"bio": "x"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	// an admin cannot change their own role, even to admin
	rec = env.do(t, "PATCH", "/api/users/"+admin.ID, adminAccess, map[string]any{"role": "user"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "cannot_change_own_role", errorCode(t, rec))
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	admin := createUser(t, env.DB, "admin_user", "password", models.RoleAdmin)
	target := createUser(t, env.DB, "target", "password", models.RoleUser)
	adminAccess, _ := env.login(t, "admin_user", "password")
	targetAccess, targetRefresh := env.login(t, "target", "password")

	rec := env.do(t, "DELETE", "/api/users/"+admin.ID, adminAccess, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "cannot_delete_self", errorCode(t, rec))

	// give the target some owned data across the schema
	movie := createMovie(t, env.DB, "Heat", 1995)
	rec = env.do(t, "POST", "/api/movies/"+movie.ID+"/rating", targetAccess, map[string]any{"value": 7})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, "POST", "/api/movies/"+movie.ID+"/comments", targetAccess, map[string]any{"body": "mine"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, "POST", "/api/posts", targetAccess, map[string]any{
		"title":    "my post",
		"body":     "text",
		"movieIds": []string{movie.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	postID, _ := decodeBody(t, rec)["id"].(string)
	rec = env.do(t, "POST", "/api/posts/"+postID+"/like", targetAccess, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "DELETE", "/api/users/"+target.ID, adminAccess, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, probe := range []struct {
		name  string
		model any
		where string
	}{
		{"posts", &models.Post{}, "author_id = ?"},
		{"comments", &models.Comment{}, "user_id = ?"},
		{"ratings", &models.Rating{}, "user_id = ?"},
		{"likes", &models.PostLike{}, "user_id = ?"},
		{"refresh tokens", &models.RefreshToken{}, "user_id = ?"},
	} {
		var n int64
		require.NoError(t, env.DB.Model(probe.model).Where(probe.where, target.ID).Count(&n).Error)
		require.Zero(t, n, "leftover %s after delete", probe.name)
	}

	// their session dies with them
	rec = env.do(t, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": targetRefresh})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "refresh_invalid", errorCode(t, rec))

	rec = env.do(t, "DELETE", "/api/users/"+uuid.NewString(), adminAccess, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
