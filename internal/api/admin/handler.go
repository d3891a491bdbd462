package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/docuchat/internal/domain"
	"github.com/liliang-cn/docuchat/internal/notify"
	"github.com/liliang-cn/docuchat/internal/service"
)

// Handler handles admin API requests
type Handler struct {
	adminService *service.AdminService
	hub          *notify.Hub
}

// NewHandler creates a new admin handler
func NewHandler(adminService *service.AdminService, hub *notify.Hub) *Handler {
	return &Handler{
		adminService: adminService,
		hub:          hub,
	}
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.GetStats)
	r.GET("/events", h.ListEvents)
	r.GET("/events/stream", h.StreamEvents)
	r.GET("/sessions/:id", h.GetSession)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.adminService.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListEvents(c *gin.Context) {
	filter := domain.EventFilter{
		SessionID: c.Query("session_id"),
		Level:     domain.EventLevel(c.Query("level")),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = n
	}
	switch filter.Level {
	case "", domain.EventSuccess, domain.EventError:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid level"})
		return
	}

	events, err := h.adminService.ListEvents(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// StreamEvents pushes the events of every session over a WebSocket
func (h *Handler) StreamEvents(c *gin.Context) {
	_ = h.hub.Serve(c.Writer, c.Request, "")
}

func (h *Handler) GetSession(c *gin.Context) {
	record, err := h.adminService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}
