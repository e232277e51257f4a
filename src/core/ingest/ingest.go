package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docochat/src/core/user"
	"docochat/src/extract"
	"docochat/src/infrastructure/log"
)

var (
	ErrEmptyDocument = errors.New("document contains no extractable text")
)

// Document is one uploaded file handed to the pipeline.
type Document struct {
	UserID   string
	FileName string
	MIMEType string
	Size     int64
	Data     []byte
}

// ChunkRow is one persisted, retrievable unit of a document. The full
// original text is denormalized onto every row.
type ChunkRow struct {
	UserID      string
	FileName    string
	FileType    string
	FileSize    int64
	FileContent string
	Content     string
	Vector      []float32
}

// FileInfo summarizes one ingested file for listings.
type FileInfo struct {
	FileName  string    `json:"file_name"`
	FileType  string    `json:"file_type"`
	FileSize  int64     `json:"file_size"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

// BatchEmbedder embeds all chunks of a document in one call.
type BatchEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore persists chunk rows. InsertChunks is all-or-nothing: a
// failed batch leaves no rows behind.
type ChunkStore interface {
	InsertChunks(ctx context.Context, rows []ChunkRow) error
	ListFiles(ctx context.Context, userID string) ([]FileInfo, error)
}

// QuotaKeeper is the slice of the user repository the pipeline needs.
type QuotaKeeper interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	ConsumeFileQuota(ctx context.Context, id string) error
}

// Summary reports what one ingestion run produced.
type Summary struct {
	FileName string `json:"file_name"`
	Chunks   int    `json:"chunks"`
}

// Service turns one uploaded file into persisted, retrievable chunks:
// extract, chunk, embed in one batch, write one row per chunk,
// decrement the owner's file quota.
type Service struct {
	chunker  *Chunker
	embedder BatchEmbedder
	store    ChunkStore
	users    QuotaKeeper
}

func NewService(chunker *Chunker, embedder BatchEmbedder, store ChunkStore, users QuotaKeeper) *Service {
	return &Service{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		users:    users,
	}
}

// Ingest runs the pipeline for one document. Unsupported MIME types
// and exhausted quotas are rejected before any extraction work.
func (s *Service) Ingest(ctx context.Context, doc Document) (*Summary, error) {
	ft, ok := extract.TypeForMIME(doc.MIMEType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedType, doc.MIMEType)
	}

	u, err := s.users.GetByID(ctx, doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if u == nil {
		return nil, user.ErrNotFound
	}
	if u.FilesAvailable <= 0 {
		return nil, user.ErrFileQuotaExhausted
	}

	text, err := extract.Text(doc.Data, doc.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	if text == "" {
		return nil, ErrEmptyDocument
	}

	chunks, err := s.chunker.Split(text)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk text: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}

	rows := make([]ChunkRow, len(chunks))
	for i, chunk := range chunks {
		rows[i] = ChunkRow{
			UserID:      doc.UserID,
			FileName:    doc.FileName,
			FileType:    ft.Ext,
			FileSize:    doc.Size,
			FileContent: text,
			Content:     chunk,
			Vector:      vectors[i],
		}
	}

	if err := s.store.InsertChunks(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to persist chunks: %w", err)
	}

	if err := s.users.ConsumeFileQuota(ctx, doc.UserID); err != nil {
		// the chunks are already retrievable; a failed decrement only
		// leaves the counter stale
		log.Error(err, "failed to consume file quota", "user_id", doc.UserID)
	}

	log.Info("document ingested",
		"user_id", doc.UserID,
		"file_name", doc.FileName,
		"chunks", len(chunks))

	return &Summary{FileName: doc.FileName, Chunks: len(chunks)}, nil
}

// Files lists the user's ingested files.
func (s *Service) Files(ctx context.Context, userID string) ([]FileInfo, error) {
	return s.store.ListFiles(ctx, userID)
}
