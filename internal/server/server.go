package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/models"
	"kanban/internal/service"
)

// ActorHeader carries the id of the acting user.
const ActorHeader = "X-User-ID"

// Server provides HTTP handlers for the Kanban board backend.
type Server struct {
	engine    *gin.Engine
	svc       *service.Service
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(svc *service.Service, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:    router,
		svc:       svc,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.Use(actorFromHeader)
	{
		api.GET("/healthz", s.handleHealth)

		auth := api.Group("/auth")
		{
			auth.POST("/register", s.handleRegister)
			auth.POST("/login", s.handleLogin)
		}

		authed := api.Group("", requireActor)

		users := authed.Group("/users")
		{
			users.GET("", s.handleListUsers)
			users.GET("/me", s.handleGetMe)
			users.PATCH("/me", s.handleUpdateMe)
		}

		projects := authed.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.POST("/join", s.handleJoinProject)
			projects.DELETE("/:id", s.handleDeleteProject)
			projects.GET("/:id/board", s.handleGetBoard)
			projects.GET("/:id/members", s.handleListMembers)
			projects.PUT("/:id/members/:userId", s.handleUpdateMemberRole)

			tasks := projects.Group("/:id/tasks")
			{
				tasks.POST("", s.handleCreateTask)
				tasks.PUT("/:taskId", s.handleUpdateTask)
				tasks.DELETE("/:taskId", s.handleDeleteTask)
				tasks.POST("/:taskId/move", s.handleMoveTask)
				tasks.POST("/:taskId/comments", s.handleAddComment)
				tasks.POST("/:taskId/subtasks", s.handleAddSubtask)
				tasks.PATCH("/:taskId/subtasks/:subtaskId", s.handleUpdateSubtask)
				tasks.DELETE("/:taskId/subtasks/:subtaskId", s.handleDeleteSubtask)
				tasks.POST("/:taskId/attachments", s.handleAddAttachment)
				tasks.DELETE("/:taskId/attachments/:attachmentId", s.handleDeleteAttachment)
			}
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// actorFromHeader attributes the request to the user named in ActorHeader.
func actorFromHeader(c *gin.Context) {
	if id := c.GetHeader(ActorHeader); id != "" {
		c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), id))
	}
	c.Next()
}

// requireActor rejects requests that carry no actor.
func requireActor(c *gin.Context) {
	if _, ok := service.ActorFrom(c.Request.Context()); !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": models.ErrUnauthenticated.Error()})
		return
	}
	c.Next()
}

// actorID returns the acting user id set by actorFromHeader.
func actorID(c *gin.Context) string {
	id, _ := service.ActorFrom(c.Request.Context())
	return id
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidCode), errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// fail responds with the status matching err.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
