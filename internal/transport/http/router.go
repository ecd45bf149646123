package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mwegrzyn/movieclub/internal/handlers"
	authmw "github.com/mwegrzyn/movieclub/internal/middleware/auth"
)

type Deps struct {
	DB           *gorm.DB
	Guard        *authmw.Guard
	AuthHandler  *handlers.AuthHandler
	MovieHandler *handlers.MovieHandler
	PostHandler  *handlers.PostHandler
	UserHandler  *handlers.UserHandler
	UploadDir    string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/api/health", func(c echo.Context) error { return c.JSON(200, echo.Map{"ok": true}) })
	e.Static("/uploads", d.UploadDir)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.GET("/me", d.AuthHandler.Me, d.Guard.RequireAuth)
	auth.PATCH("/me", d.AuthHandler.UpdateMe, d.Guard.RequireAuth)

	movies := api.Group("/movies")
	movies.GET("", d.MovieHandler.GetMovies)
	movies.GET("/top", d.MovieHandler.GetTopMovies)
	movies.GET("/:id", d.MovieHandler.GetMovie)
	movies.POST("", d.MovieHandler.CreateMovie, d.Guard.RequireAdmin)
	movies.PATCH("/:id", d.MovieHandler.PatchMovie, d.Guard.RequireAdmin)
	movies.DELETE("/:id", d.MovieHandler.DeleteMovie, d.Guard.RequireAdmin)
	movies.POST("/:id/cover", d.MovieHandler.UploadCover, d.Guard.RequireAdmin)
	movies.POST("/:id/rating", d.MovieHandler.Rate, d.Guard.RequireAuth)
	movies.POST("/:id/comments", d.MovieHandler.CreateComment, d.Guard.RequireAuth)
	movies.PUT("/:id/comments/:commentId", d.MovieHandler.UpdateComment, d.Guard.RequireAuth)
	movies.DELETE("/:id/comments/:commentId", d.MovieHandler.DeleteComment, d.Guard.RequireAuth)

	posts := api.Group("/posts")
	posts.GET("", d.PostHandler.GetPosts)
	posts.GET("/:id", d.PostHandler.GetPost)
	posts.GET("/:id/comments", d.PostHandler.GetComments)
	posts.POST("", d.PostHandler.CreatePost, d.Guard.RequireAuth)
	posts.PUT("/:id", d.PostHandler.UpdatePost, d.Guard.RequireAuth)
	posts.DELETE("/:id", d.PostHandler.DeletePost, d.Guard.RequireAuth)
	posts.POST("/:id/like", d.PostHandler.LikePost, d.Guard.RequireAuth)
	posts.DELETE("/:id/like", d.PostHandler.UnlikePost, d.Guard.RequireAuth)
	posts.POST("/:id/comments", d.PostHandler.CreateComment, d.Guard.RequireAuth)

	users := api.Group("/users", d.Guard.RequireAdmin)
	users.GET("", d.UserHandler.GetUsers)
	users.PATCH("/:id", d.UserHandler.PatchUser)
	users.DELETE("/:id", d.UserHandler.DeleteUser)
}
