package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docochat/src/core/chat"
	"docochat/src/core/ingest"
	"docochat/src/core/user"
	"docochat/src/extract"
	"docochat/src/infrastructure/job"
	"docochat/src/storage/minioctrl"
)

type Handler struct {
	userService   *user.Service
	chatService   *chat.Service
	ingestService *ingest.Service
	jobService    *job.JobService
	minioService  *minioctrl.MinioService
	health        HealthCheckers
}

// NewHandler wires the API surface. jobService and minioService may be
// nil, in which case uploads are ingested synchronously instead of
// being queued for the worker.
func NewHandler(
	userService *user.Service,
	chatService *chat.Service,
	ingestService *ingest.Service,
	jobService *job.JobService,
	minioService *minioctrl.MinioService,
	health HealthCheckers,
) *Handler {
	return &Handler{
		userService:   userService,
		chatService:   chatService,
		ingestService: ingestService,
		jobService:    jobService,
		minioService:  minioService,
		health:        health,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	// User routes
	api.POST("/users", h.CreateUser)
	api.GET("/users/:id", h.GetUser)

	// Document routes
	api.POST("/documents", h.UploadDocument)
	api.GET("/documents", h.ListDocuments)

	// Chat routes
	api.POST("/chat/messages", h.SendMessage)
	api.GET("/chat/history", h.GetChatHistory)

	// System routes
	api.GET("/health", h.CheckHealth)
}

type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	switch {
	case errors.Is(err, user.ErrNotFound) || errors.Is(err, chat.ErrUnknownUser):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, user.ErrFileQuotaExhausted):
		code = "FILE_QUOTA_EXHAUSTED"
		status = http.StatusForbidden
	case errors.Is(err, user.ErrInvalidUsername) || errors.Is(err, chat.ErrEmptyMessage):
		code = "VALIDATION_ERROR"
		status = http.StatusBadRequest
	case errors.Is(err, extract.ErrUnsupportedType):
		code = "UNSUPPORTED_FILE_TYPE"
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, ingest.ErrEmptyDocument):
		code = "EMPTY_DOCUMENT"
		status = http.StatusBadRequest
	default:
		switch chat.KindOf(err) {
		case chat.KindValidation:
			code = "VALIDATION_ERROR"
			status = http.StatusBadRequest
		case chat.KindEmbedding:
			code = "EMBEDDING_FAILED"
			status = http.StatusBadGateway
		case chat.KindRetrieval:
			code = "RETRIEVAL_FAILED"
			status = http.StatusInternalServerError
		case chat.KindCompletion:
			code = "COMPLETION_FAILED"
			status = http.StatusBadGateway
		default:
			code = "INTERNAL_ERROR"
			status = http.StatusInternalServerError
		}
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
