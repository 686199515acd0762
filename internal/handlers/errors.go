package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/challenge-lobby/internal/game"
	"github.com/mossy-p/challenge-lobby/internal/service"
	"github.com/mossy-p/challenge-lobby/internal/store"
)

// writeError maps service, game and store failures to a status and a
// client-safe message. Anything unrecognized is logged and reported as 500.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	var (
		conflict *service.ConflictError
		svcErr   *service.Error
		rule     *game.RuleError
	)

	switch {
	case errors.As(err, &conflict):
		body := gin.H{"message": conflict.Error()}
		if conflict.RoomFull {
			body["roomFull"] = true
		} else {
			body["gameStarted"] = true
		}
		c.JSON(http.StatusForbidden, body)
	case errors.As(err, &svcErr):
		c.JSON(statusFor(svcErr.Kind), gin.H{"message": svcErr.Msg})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid username or password"})
	case errors.As(err, &rule):
		c.JSON(http.StatusConflict, gin.H{"message": rule.Reason})
	case errors.Is(err, store.ErrContention):
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Room is busy, try again"})
	case errors.Is(err, service.ErrCodesExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Could not allocate a room code, try again"})
	default:
		_ = c.Error(err)
		h.logger.Error(fallback,
			slog.String("path", c.FullPath()),
			slog.String("code", c.Param("code")),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"message": fallback})
	}
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, service.ErrValidation), errors.Is(kind, service.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
