package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// RoomQR renders the room's join link as a PNG QR code
func (h *Handler) RoomQR(c *gin.Context) {
	link, err := h.rooms.RoomJoinLink(c.Request.Context(), roomCode(c))
	if err != nil {
		h.writeError(c, err, "Error generating QR code")
		return
	}

	// Without a configured public URL the link is relative to this host.
	if strings.HasPrefix(link, "/") {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		link = scheme + "://" + c.Request.Host + link
	}

	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		h.writeError(c, err, "Error generating QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
