package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/internal/utils"
	"github.com/taskhive/backend/pkg/logger"
	"github.com/taskhive/backend/pkg/response"
)

// SSEHandler streams submission status changes. Admins see every event,
// other users only events for their own submissions.
type SSEHandler struct {
	hub *services.SSEHub
}

func NewSSEHandler(hub *services.SSEHub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// EventSource cannot set headers, so the token may also come as ?token=.
func streamToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// StreamSubmissionEvents
// GET /api/events/submissions
func (h *SSEHandler) StreamSubmissionEvents(c *gin.Context) {
	token := streamToken(c)
	if token == "" {
		response.Unauthorized(c, "Unauthorized")
		return
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := h.hub.Subscribe(clientID)
	defer h.hub.Unsubscribe(clientID)

	isAdmin := claims.Role == models.RoleAdmin
	logger.Info().Str("client_id", clientID).Uint("user_id", claims.UserID).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			if !isAdmin && event.UserID != claims.UserID {
				return true
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("SSE marshal error")
				return true
			}
			fmt.Fprintf(w, "event: submission\ndata: %s\n\n", data)
			c.Writer.Flush()
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
