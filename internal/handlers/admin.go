package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/challenge-lobby/internal/models"
	"github.com/mossy-p/challenge-lobby/internal/service"
)

// admin resolves the caller and rejects non-admins. It writes the
// response itself when it returns false.
func (h *Handler) admin(c *gin.Context) (service.Actor, bool) {
	var req models.UsernameRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, "Invalid request body")
		return service.Actor{}, false
	}

	actor, err := h.actor(c, req.Username)
	if err != nil {
		h.writeError(c, err, "Error checking admin status")
		return service.Actor{}, false
	}
	if !actor.Admin {
		c.JSON(http.StatusForbidden, gin.H{"message": "Admin access required"})
		return service.Actor{}, false
	}
	return actor, true
}

// AdminJoinRoom seats the admin regardless of capacity or phase
func (h *Handler) AdminJoinRoom(c *gin.Context) {
	actor, ok := h.admin(c)
	if !ok {
		return
	}

	res, err := h.rooms.JoinRoom(c.Request.Context(), roomCode(c), actor)
	if err != nil {
		h.writeError(c, err, "Error joining room")
		return
	}
	c.JSON(http.StatusOK, models.JoinRoomResponse{
		Message:     "Joined room successfully",
		GameStarted: res.GameStarted,
		Room:        res.Room,
	})
}

func (h *Handler) AdminStartRoom(c *gin.Context) {
	actor, ok := h.admin(c)
	if !ok {
		return
	}

	room, err := h.rooms.StartRoom(c.Request.Context(), roomCode(c), actor)
	if err != nil {
		h.writeError(c, err, "Error starting game")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Game force started by admin", "room": room})
}

func (h *Handler) AdminStopRoom(c *gin.Context) {
	actor, ok := h.admin(c)
	if !ok {
		return
	}

	room, err := h.rooms.StopRoom(c.Request.Context(), roomCode(c), actor)
	if err != nil {
		h.writeError(c, err, "Error stopping game")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Game stopped by admin", "room": room})
}

func (h *Handler) AdminDeleteRoom(c *gin.Context) {
	actor, ok := h.admin(c)
	if !ok {
		return
	}

	if err := h.rooms.DeleteRoom(c.Request.Context(), roomCode(c), actor); err != nil {
		h.writeError(c, err, "Error deleting room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

// ListUsers is token-only; the router puts RequireToken in front of it
func (h *Handler) ListUsers(c *gin.Context) {
	actor, err := h.actor(c, "")
	if err != nil {
		h.writeError(c, err, "Error checking admin status")
		return
	}
	if !actor.Admin {
		c.JSON(http.StatusForbidden, gin.H{"message": "Admin access required"})
		return
	}

	list, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Error fetching users")
		return
	}
	c.JSON(http.StatusOK, list)
}
