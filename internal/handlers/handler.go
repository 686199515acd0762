// Package handlers exposes the lobby over HTTP with gin.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/challenge-lobby/internal/middleware"
	"github.com/mossy-p/challenge-lobby/internal/service"
)

// Handler serves the room, admin and account routes
type Handler struct {
	rooms  *service.RoomService
	users  *service.UserService
	logger *slog.Logger
}

func New(rooms *service.RoomService, users *service.UserService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{rooms: rooms, users: users, logger: logger}
}

func roomCode(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("code")))
}

// bindOptional decodes a JSON body when one was sent. An empty body is
// allowed for routes where the bearer token alone identifies the caller.
func bindOptional(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// actor resolves the caller. A verified token wins over the username in
// the body; admin rights always come from the user repository.
func (h *Handler) actor(c *gin.Context, bodyUsername string) (service.Actor, error) {
	username := caller(c, bodyUsername)
	admin, err := h.users.IsAdmin(c.Request.Context(), username)
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{Username: username, Admin: admin}, nil
}

// caller returns the token username, falling back to the body
func caller(c *gin.Context, bodyUsername string) string {
	if u := c.GetString(middleware.UsernameKey); u != "" {
		return u
	}
	return strings.TrimSpace(bodyUsername)
}
