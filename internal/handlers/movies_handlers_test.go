package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mwegrzyn/movieclub/internal/models"
)

func TestMovieAdminCRUD(t *testing.T) {
	env := newTestEnv(t)
	createUser(t, env.DB, "admin_user", "password", models.RoleAdmin)
	createUser(t, env.DB, "plain_user", "password", models.RoleUser)
	adminAccess, _ := env.login(t, "admin_user", "password")
	userAccess, _ := env.login(t, "plain_user", "password")

	// movie catalog changes are admin-exact, moderators included out
	rec := env.do(t, "POST", "/api/movies", userAccess, map[string]any{"title": "Heat"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", errorCode(t, rec))

	rec = env.do(t, "POST", "/api/movies", adminAccess, map[string]any{
		"title": "Heat",
		"year":  1995,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	movieID, _ := decodeBody(t, rec)["id"].(string)
	require.NotEmpty(t, movieID)

	rec = env.do(t, "POST", "/api/movies", adminAccess, map[string]any{"title": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "title_required", errorCode(t, rec))

	rec = env.do(t, "POST", "/api/movies", adminAccess, map[string]any{"title": "Old", "year": 1500})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_year", errorCode(t, rec))

	rec = env.do(t, "PATCH", "/api/movies/"+movieID, adminAccess, map[string]any{"director": "Michael Mann"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "PATCH", "/api/movies/"+movieID, adminAccess, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "nothing_to_update", errorCode(t, rec))

	rec = env.do(t, "DELETE", "/api/movies/"+movieID, adminAccess, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, "GET", "/api/movies/"+movieID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMovieDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	createUser(t, env.DB, "admin_user", "password", models.RoleAdmin)
	createUser(t, env.DB, "viewer", "password", models.RoleUser)
	adminAccess, _ := env.login(t, "admin_user", "password")
	viewerAccess, _ := env.login(t, "viewer", "password")

	movie := createMovie(t, env.DB, "Heat", 1995)

	rec := env.do(t, "POST", fmt.Sprintf("/api/movies/%s/rating", movie.ID), viewerAccess, map[string]any{"value": 9})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, "POST", fmt.Sprintf("/api/movies/%s/comments", movie.ID), viewerAccess, map[string]any{"body": "classic"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, "DELETE", "/api/movies/"+movie.ID, adminAccess, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var ratings, comments int64
	require.NoError(t, env.DB.Model(&models.Rating{}).Where("movie_id = ?", movie.ID).Count(&ratings).Error)
	require.NoError(t, env.DB.Model(&models.Comment{}).Where("movie_id = ?", movie.ID).Count(&comments).Error)
	require.Zero(t, ratings)
	require.Zero(t, comments)
}

func TestRatingUpsertAndAverage(t *testing.T) {
	env := newTestEnv(t)
	createUser(t, env.DB, "rater_one", "password", models.RoleUser)
	createUser(t, env.DB, "rater_two", "password", models.RoleUser)
	one, _ := env.login(t, "rater_one", "password")
	two, _ := env.login(t, "rater_two", "password")

	movie := createMovie(t, env.DB, "Heat", 1995)
	path := fmt.Sprintf("/api/movies/%s/rating", movie.ID)

	rec := env.do(t, "POST", path, one, map[string]any{"value": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 4, decodeBody(t, rec)["averageRating"])

	rec = env.do(t, "POST", path, two, map[string]any{"value": 8})
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 6, decodeBody(t, rec)["averageRating"])

	// re-rating replaces, it does not add a second row
	rec = env.do(t, "POST", path, one, map[string]any{"value": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 9, decodeBody(t, rec)["averageRating"])

	var count int64
	require.NoError(t, env.DB.Model(&models.Rating{}).Where("movie_id = ?", movie.ID).Count(&count).Error)
	require.EqualValues(t, 2, count)

	rec = env.do(t, "POST", path, one, map[string]any{"value": 11})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "rating_range_1_10", errorCode(t, rec))

	rec = env.do(t, "POST", path, "", map[string]any{"value": 5})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMovieComments(t *testing.T) {
	env := newTestEnv(t)
	createUser(t, env.DB, "author", "password", models.RoleUser)
	createUser(t, env.DB, "stranger", "password", models.RoleUser)
	createUser(t, env.DB, "mod_user", "password", models.RoleModerator)
	authorAccess, _ := env.login(t, "author", "password")
	strangerAccess, _ := env.login(t, "stranger", "password")
	modAccess, _ := env.login(t, "mod_user", "password")

	movie := createMovie(t, env.DB, "Heat", 1995)
	base := fmt.Sprintf("/api/movies/%s/comments", movie.ID)

	rec := env.do(t, "POST", base, authorAccess, map[string]any{"body": "  great movie  "})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	require.Equal(t, "great movie", created["body"])
	author, ok := created["author"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "author", author["username"])
	commentID, _ := created["id"].(string)

	rec = env.do(t, "POST", base, authorAccess, map[string]any{"body": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "body_required", errorCode(t, rec))

	// owner may edit
	rec = env.do(t, "PUT", base+"/"+commentID, authorAccess, map[string]any{"body": "edited"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "edited", decodeBody(t, rec)["body"])

	// a non-owner without an elevated role may not
	rec = env.do(t, "PUT", base+"/"+commentID, strangerAccess, map[string]any{"body": "hijack"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", errorCode(t, rec))

	// a moderator may
	rec = env.do(t, "PUT", base+"/"+commentID, modAccess, map[string]any{"body": "moderated"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "DELETE", base+"/"+commentID, strangerAccess, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "DELETE", base+"/"+commentID, modAccess, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// comments appear on the movie details
	rec = env.do(t, "POST", base, authorAccess, map[string]any{"body": "another"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, "GET", "/api/movies/"+movie.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decodeBody(t, rec)
	comments, ok := details["comments"].([]any)
	require.True(t, ok)
	require.Len(t, comments, 1)
}

func TestMoviesPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 25; i++ {
		createMovie(t, env.DB, fmt.Sprintf("Movie %02d", i), 1990+i)
	}

	rec := env.do(t, "GET", "/api/movies?page=2&size=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 10)
	require.EqualValues(t, 2, body["page"])
	require.EqualValues(t, 25, body["total"])
	require.EqualValues(t, 3, body["totalPages"])

	// out-of-range page values clamp to the first page
	rec = env.do(t, "GET", "/api/movies?page=-1&size=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, decodeBody(t, rec)["page"])
}

func TestTopMoviesOrdering(t *testing.T) {
	env := newTestEnv(t)
	createUser(t, env.DB, "rater", "password", models.RoleUser)
	access, _ := env.login(t, "rater", "password")

	low := createMovie(t, env.DB, "Low", 2000)
	high := createMovie(t, env.DB, "High", 2001)
	createMovie(t, env.DB, "Unrated", 2002)

	rec := env.do(t, "POST", fmt.Sprintf("/api/movies/%s/rating", low.ID), access, map[string]any{"value": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, "POST", fmt.Sprintf("/api/movies/%s/rating", high.ID), access, map[string]any{"value": 9})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/movies/top", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, ok := decodeBody(t, rec)["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 3)

	first := items[0].(map[string]any)
	second := items[1].(map[string]any)
	third := items[2].(map[string]any)
	require.Equal(t, "High", first["title"])
	require.Equal(t, "Low", second["title"])
	require.Equal(t, "Unrated", third["title"])
	require.Nil(t, third["averageRating"])
}
