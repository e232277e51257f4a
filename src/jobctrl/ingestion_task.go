package jobctrl

import (
	"context"
	"encoding/json"
	"fmt"

	"docochat/src/core/ingest"
	"docochat/src/storage/minioctrl"
)

const TaskTypeIngestion = "document_ingestion"

// IngestionPayload identifies one uploaded file waiting in object
// storage for processing.
type IngestionPayload struct {
	UserID   string `json:"user_id"`
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
	MinioURL string `json:"minio_url"` // bucket name + object name
}

// IngestionTask fetches an uploaded file from object storage and runs
// it through the ingestion pipeline. The original object stays in the
// bucket as an archive of what was uploaded.
type IngestionTask struct {
	ingestService *ingest.Service
	minioService  *minioctrl.MinioService
}

func NewIngestionTask(ingestService *ingest.Service, minioService *minioctrl.MinioService) *IngestionTask {
	return &IngestionTask{
		ingestService: ingestService,
		minioService:  minioService,
	}
}

func (task *IngestionTask) HandleIngestionTask(ctx context.Context, payload json.RawMessage) error {
	var ingestionPayload IngestionPayload
	if err := json.Unmarshal(payload, &ingestionPayload); err != nil {
		return fmt.Errorf("failed to unmarshal ingestion payload: %w", err)
	}

	bucket, objectName := task.minioService.GetBucketAndObjectFromURL(ingestionPayload.MinioURL)
	if bucket == "" || objectName == "" {
		return fmt.Errorf("invalid minio URL: %s", ingestionPayload.MinioURL)
	}

	data, err := task.minioService.GetObject(ctx, bucket, objectName)
	if err != nil {
		return fmt.Errorf("failed to get uploaded object: %w", err)
	}

	_, err = task.ingestService.Ingest(ctx, ingest.Document{
		UserID:   ingestionPayload.UserID,
		FileName: ingestionPayload.FileName,
		MIMEType: ingestionPayload.MIMEType,
		Size:     ingestionPayload.FileSize,
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("failed to ingest document: %w", err)
	}

	return nil
}
