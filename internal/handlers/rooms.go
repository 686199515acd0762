package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/challenge-lobby/internal/models"
	"github.com/mossy-p/challenge-lobby/internal/service"
)

// ListRooms returns the rooms still waiting for players
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListWaitingRooms(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Error fetching rooms")
		return
	}
	if rooms == nil {
		rooms = []*models.Room{}
	}
	c.JSON(http.StatusOK, rooms)
}

// CreateRoom creates a room with the creator seated as its first player
func (h *Handler) CreateRoom(c *gin.Context) {
	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing required fields")
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), service.CreateRoomInput{
		Name:          req.Name,
		MaxPlayers:    req.MaxPlayers,
		Creator:       caller(c, req.Creator),
		AutoStartTime: req.StartTimer,
		MaxHealth:     req.MaxHealth,
		MinDamage:     req.MinDamage,
		MaxDamage:     req.MaxDamage,
	})
	if err != nil {
		h.writeError(c, err, "Error creating room")
		return
	}

	c.JSON(http.StatusCreated, models.CreateRoomResponse{
		Code: room.Code,
		Room: room,
	})
}

// GetRoom gets room information by code (public)
func (h *Handler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), roomCode(c))
	if err != nil {
		h.writeError(c, err, "Error getting room")
		return
	}
	c.JSON(http.StatusOK, room)
}

// JoinRoom seats the caller in the room. Joining never grants admin
// bypass here; that is the admin route's job.
func (h *Handler) JoinRoom(c *gin.Context) {
	var req models.UsernameRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	res, err := h.rooms.JoinRoom(c.Request.Context(), roomCode(c), service.Actor{Username: caller(c, req.Username)})
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

// DeleteRoom deletes a room (creator or admin only)
func (h *Handler) DeleteRoom(c *gin.Context) {
	var req models.UsernameRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	actor, err := h.actor(c, req.Username)
	if err != nil {
		h.writeError(c, err, "Error deleting room")
		return
	}
	if err := h.rooms.DeleteRoom(c.Request.Context(), roomCode(c), actor); err != nil {
		h.writeError(c, err, "Error deleting room")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

// StartRoom lets a member start a waiting room
func (h *Handler) StartRoom(c *gin.Context) {
	var req models.UsernameRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	actor, err := h.actor(c, req.Username)
	if err != nil {
		h.writeError(c, err, "Error starting game")
		return
	}
	room, err := h.rooms.StartRoom(c.Request.Context(), roomCode(c), actor)
	if err != nil {
		h.writeError(c, err, "Error starting game")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Game started", "room": room})
}

func (h *Handler) SetReady(c *gin.Context) {
	var req models.ReadyRequest
	if err := bindOptional(c, &req); err != nil || req.Ready == nil {
		badRequest(c, "ready is required")
		return
	}

	room, err := h.rooms.SetReady(c.Request.Context(), roomCode(c), caller(c, req.Username), *req.Ready)
	if err != nil {
		h.writeError(c, err, "Error updating ready state")
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// IssueChallenge accepts the target as either "to" or "target"
func (h *Handler) IssueChallenge(c *gin.Context) {
	var req models.ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text and points are required")
		return
	}
	to := req.To
	if to == "" {
		to = req.Target
	}

	room, err := h.rooms.IssueChallenge(c.Request.Context(), roomCode(c), service.ChallengeInput{
		From:   caller(c, req.From),
		To:     to,
		Text:   req.Text,
		Points: req.Points,
	})
	if err != nil {
		h.writeError(c, err, "Error issuing challenge")
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *Handler) Vote(c *gin.Context) {
	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "challengeId and vote are required")
		return
	}

	room, err := h.rooms.Vote(c.Request.Context(), roomCode(c), caller(c, req.Username), req.ChallengeID, *req.Vote)
	if err != nil {
		h.writeError(c, err, "Error recording vote")
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}
