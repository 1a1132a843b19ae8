package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adarshn/notebox/internal/logging"
	"github.com/adarshn/notebox/internal/server/config"
	"github.com/adarshn/notebox/internal/server/services"
)

// Server holds the REST surface and its collaborators.
type Server struct {
	router *gin.Engine
	log    logging.Logger
	users  *services.UserService
	notes  *services.NoteService
	cfg    *config.Config
}

// NewServer builds the gin router with all routes registered.
func NewServer(log logging.Logger, users *services.UserService, notes *services.NoteService, cfg *config.Config) *Server {
	s := &Server{
		log:   log,
		users: users,
		notes: notes,
		cfg:   cfg,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.Use(s.cors())

	userRoutes := router.Group("/users")
	{
		userRoutes.POST("/register", s.handleRegister)
		userRoutes.GET("/verify-email/:token", s.handleVerifyEmail)
		userRoutes.POST("/login", s.handleLogin)
		userRoutes.POST("/refresh-token", s.handleRefreshToken)

		authed := userRoutes.Group("", s.requireAuth())
		{
			authed.POST("/logout", s.handleLogout)
			authed.POST("/change-password", s.handleChangePassword)
			authed.GET("/profile", s.handleProfile)
			authed.PATCH("/update-account", s.handleUpdateAccount)
			authed.PUT("/update-avatar/:userId", s.handleUpdateAvatar)
		}
	}

	noteRoutes := router.Group("/notes", s.requireAuth())
	{
		noteRoutes.POST("/add-note", s.handleAddNote)
		noteRoutes.PUT("/update-note/:noteId", s.handleUpdateNote)
		noteRoutes.DELETE("/delete-note/:noteId", s.handleDeleteNote)
		noteRoutes.PATCH("/update-pinned/:noteId", s.handleUpdatePinned)
		noteRoutes.GET("/get-notes", s.handleGetNotes)
		noteRoutes.GET("/search-notes", s.handleSearchNotes)
		noteRoutes.GET("/get-note/:noteId", s.handleGetNote)
	}

	s.router = router
	return s
}

// Handler exposes the router for the HTTP server and for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
