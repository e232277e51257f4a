package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docochat/src/core/ingest"
	"docochat/src/extract"
	"docochat/src/jobctrl"
	"docochat/src/storage/minioctrl"
)

type uploadResponse struct {
	FileName string `json:"file_name"`
	Status   string `json:"status"`
	Chunks   int    `json:"chunks,omitempty"`
	JobID    int    `json:"job_id,omitempty"`
}

// UploadDocument godoc
// @Summary Upload a document for ingestion
// @Tags documents
// @Accept multipart/form-data
// @Param user_id formData string true "Owning user ID"
// @Param file formData file true "Document file"
// @Produce json
// @Success 201 {object} uploadResponse
// @Success 202 {object} uploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Router /documents [post]
func (h *Handler) UploadDocument(c *gin.Context) {
	userID := c.PostForm("user_id")
	if userID == "" {
		sendError(c, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("file upload required: %w", err))
		return
	}
	defer file.Close()

	mimeType := declaredMIME(header.Header.Get("Content-Type"), header.Filename)
	if _, ok := extract.TypeForMIME(mimeType); !ok {
		sendError(c, http.StatusUnsupportedMediaType, fmt.Errorf("%w: %s", extract.ErrUnsupportedType, mimeType))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to read file: %w", err))
		return
	}

	// With the queue wired, uploads are archived to object storage and
	// processed by the worker; otherwise ingestion runs inline.
	if h.jobService != nil && h.minioService != nil {
		h.enqueueUpload(c, userID, header.Filename, mimeType, data)
		return
	}

	summary, err := h.ingestService.Ingest(c.Request.Context(), ingest.Document{
		UserID:   userID,
		FileName: header.Filename,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusCreated, uploadResponse{
		FileName: summary.FileName,
		Status:   "ingested",
		Chunks:   summary.Chunks,
	})
}

func (h *Handler) enqueueUpload(c *gin.Context, userID, fileName, mimeType string, data []byte) {
	ctx := c.Request.Context()

	if err := h.minioService.EnsureBucketExists(ctx, minioctrl.UploadsBucket); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	objectName := fmt.Sprintf("%s/%s_%s", userID, uuid.New().String(), fileName)
	if err := h.minioService.PutObject(ctx, minioctrl.UploadsBucket, objectName, data, mimeType); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	payload, err := json.Marshal(jobctrl.IngestionPayload{
		UserID:   userID,
		FileName: fileName,
		MIMEType: mimeType,
		FileSize: int64(len(data)),
		MinioURL: fmt.Sprintf("%s/%s", minioctrl.UploadsBucket, objectName),
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	j, err := h.jobService.EnqueueJob(ctx, jobctrl.TaskTypeIngestion, payload)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusAccepted, uploadResponse{
		FileName: fileName,
		Status:   "queued",
		JobID:    j.ID,
	})
}

// ListDocuments godoc
// @Summary List a user's ingested files
// @Tags documents
// @Param user_id query string true "User ID"
// @Produce json
// @Success 200 {array} ingest.FileInfo
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents [get]
func (h *Handler) ListDocuments(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		sendError(c, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}

	files, err := h.ingestService.Files(c.Request.Context(), userID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if files == nil {
		files = []ingest.FileInfo{}
	}

	sendJSON(c, http.StatusOK, files)
}

// declaredMIME normalizes the upload's Content-Type, falling back to
// the file extension when the browser sent nothing useful.
func declaredMIME(contentType, fileName string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(contentType)

	if contentType == "" || contentType == "application/octet-stream" {
		ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
		if mime, ok := extract.MIMEForExt(strings.ToLower(ext)); ok {
			return mime
		}
	}
	return contentType
}
