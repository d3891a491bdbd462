package session

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liliang-cn/docuchat/internal/config"
	"github.com/liliang-cn/docuchat/internal/domain"
	"github.com/liliang-cn/docuchat/internal/notify"
	"github.com/liliang-cn/docuchat/internal/service"
)

// multipartOverhead is the slack allowed on top of the file size for the
// rest of the multipart body.
const multipartOverhead = 1 << 20

// ClientConfig tells a front end what the server accepts
type ClientConfig struct {
	Provider          string   `json:"provider"`
	MaxUploadBytes    int64    `json:"max_upload_bytes"`
	AllowedTypes      []string `json:"allowed_types"`
	MinQuestionLength int      `json:"min_question_length"`
	BaseURL           string   `json:"base_url"`
}

// Handler handles the public session API
type Handler struct {
	chat   *service.ChatService
	hub    *notify.Hub
	upload config.UploadConfig
	client ClientConfig
	logger *zap.Logger
}

// NewHandler creates a new session handler
func NewHandler(chat *service.ChatService, hub *notify.Hub, cfg *config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := cfg.Upload.AllowedTypes
	if allowed == nil {
		allowed = []string{}
	}
	return &Handler{
		chat:   chat,
		hub:    hub,
		upload: cfg.Upload,
		client: ClientConfig{
			Provider:          cfg.LLM.Provider,
			MaxUploadBytes:    cfg.Upload.MaxBytes,
			AllowedTypes:      allowed,
			MinQuestionLength: service.MinQuestionLength,
			BaseURL:           cfg.Server.BaseURL,
		},
		logger: logger,
	}
}

// RegisterRoutes registers session routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/config", h.GetConfig)

	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.Create)
		sessions.GET("/:id", h.Get)
		sessions.DELETE("/:id", h.Delete)
		sessions.POST("/:id/document", h.UploadDocument)
		sessions.POST("/:id/suggestions", h.RefreshSuggestions)
		sessions.POST("/:id/questions", h.AskQuestion)
		sessions.PUT("/:id/draft", h.SetDraft)
		sessions.POST("/:id/dismiss", h.Dismiss)
		sessions.POST("/:id/summary", h.Summarize)
		sessions.GET("/:id/events", h.Events)
	}
}

// GetConfig returns the client configuration
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.client)
}

// Create starts a new session
func (h *Handler) Create(c *gin.Context) {
	snap, err := h.chat.CreateSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// Get returns the snapshot of a session
func (h *Handler) Get(c *gin.Context) {
	snap, err := h.chat.GetSnapshot(c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Delete ends a session
func (h *Handler) Delete(c *gin.Context) {
	if err := h.chat.EndSession(c.Param("id")); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadDocument replaces the document of a session with the uploaded file
func (h *Handler) UploadDocument(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.chat.Get(id); err != nil {
		h.fail(c, err, nil)
		return
	}

	if h.upload.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.upload.MaxBytes+multipartOverhead)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if h.upload.MaxBytes > 0 && file.Size > h.upload.MaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds the %d byte limit", h.upload.MaxBytes),
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.fail(c, &domain.LoadError{Kind: domain.ErrReadFailure, Err: err}, nil)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		h.fail(c, &domain.LoadError{Kind: domain.ErrReadFailure, Err: err}, nil)
		return
	}

	mimeType := service.NormalizeMIMEType(file.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == domain.DefaultMIMEType {
		mimeType = service.DetectMIMEType(file.Filename, data)
	}
	if len(h.upload.AllowedTypes) > 0 && !slices.Contains(h.upload.AllowedTypes, mimeType) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": fmt.Sprintf("unsupported file type: %s", mimeType)})
		return
	}

	snap, err := h.chat.UploadDocument(c.Request.Context(), id, file.Filename, data, mimeType)
	if err != nil {
		h.fail(c, err, &snap)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// RefreshSuggestions regenerates the suggestions of a session
func (h *Handler) RefreshSuggestions(c *gin.Context) {
	snap, err := h.chat.RefreshSuggestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, &snap)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// AskQuestion submits a question
func (h *Handler) AskQuestion(c *gin.Context) {
	var req domain.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.chat.AskQuestion(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		var snap *domain.Snapshot
		if resp != nil {
			snap = &resp.Snapshot
		}
		h.fail(c, err, snap)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetDraft places a question, usually a selected suggestion, in the draft
func (h *Handler) SetDraft(c *gin.Context) {
	var req domain.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.chat.SelectSuggestion(c.Param("id"), req.Question)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Dismiss clears an error status
func (h *Handler) Dismiss(c *gin.Context) {
	snap, err := h.chat.Dismiss(c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Summarize summarizes the document of a session
func (h *Handler) Summarize(c *gin.Context) {
	result, err := h.chat.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Events streams the status events of a session over a WebSocket
func (h *Handler) Events(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.chat.Get(id); err != nil {
		h.fail(c, err, nil)
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request, id); err != nil {
		// The upgrader has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.String("session_id", id), zap.Error(err))
	}
}

func (h *Handler) fail(c *gin.Context, err error, snap *domain.Snapshot) {
	status := StatusFor(err)
	body := gin.H{"error": err.Error()}
	if snap != nil && snap.SessionID != "" {
		body["session"] = snap
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, body)
}

// StatusFor maps an error to an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoDocument),
		errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTooShort),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrReadFailure),
		errors.Is(err, domain.ErrEmptyExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstreamFailure):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
