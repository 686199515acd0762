package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/challenge-lobby/internal/middleware"
)

// NewRouter wires every route. Gin's mode is left to the caller.
func NewRouter(h *Handler, tokens middleware.TokenParser, allowedOrigins []string, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	// Global CORS middleware (runs before routing)
	router.Use(middleware.OriginFilter(allowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(middleware.JWTAuth(tokens))
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.PUT("/users/settings", h.UpdateSettings)

		api.GET("/rooms", h.ListRooms)
		api.POST("/rooms", h.CreateRoom)
		api.GET("/rooms/:code", h.GetRoom)
		api.DELETE("/rooms/:code", h.DeleteRoom)
		api.GET("/rooms/:code/qr", h.RoomQR)
		api.POST("/rooms/:code/join", h.JoinRoom)
		api.POST("/rooms/:code/start", h.StartRoom)
		api.POST("/rooms/:code/ready", h.SetReady)
		api.POST("/rooms/:code/challenge", h.IssueChallenge)
		api.POST("/rooms/:code/vote", h.Vote)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/rooms/:code/join", h.AdminJoinRoom)
		admin.POST("/rooms/:code/start", h.AdminStartRoom)
		admin.POST("/rooms/:code/stop", h.AdminStopRoom)
		admin.DELETE("/rooms/:code", h.AdminDeleteRoom)
		admin.GET("/users", middleware.RequireToken(), h.ListUsers)
	}

	return router
}
