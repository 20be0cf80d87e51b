package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// FeedServer attaches a websocket client to the live reservation feed.
type FeedServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

type FeedHandler struct {
	feed FeedServer
}

func NewFeedHandler(feed FeedServer) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// @Summary Live reservation feed
// @Description Websocket stream of reservation events for lounge terminals
// @Tags feed
// @Success 101 "Switching Protocols"
// @Failure 403 "Origin not allowed"
// @Router /ws/reservations [get]
func (h *FeedHandler) Subscribe(c *gin.Context) {
	// the upgrader has already written the failure response
	if err := h.feed.ServeWS(c.Writer, c.Request); err != nil {
		slog.Warn("feed subscription failed", "error", err, "client_ip", c.ClientIP())
	}
}
