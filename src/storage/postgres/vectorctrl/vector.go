package vectorctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"docochat/src/core/chat"
	"docochat/src/core/ingest"
)

type DocumentChunk struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	UserID      string          `gorm:"not null;index;type:uuid" json:"user_id"`
	FileName    string          `gorm:"not null" json:"file_name"`
	FileType    string          `gorm:"not null" json:"file_type"`
	FileSize    int64           `gorm:"not null" json:"file_size"`
	FileContent string          `gorm:"not null;type:text" json:"file_content"`
	Content     string          `gorm:"not null;type:text" json:"content"`
	Vectors     pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (DocumentChunk) TableName() string {
	return "vector_store"
}

// VectorService is the pgvector-backed chunk store and searcher.
type VectorService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewVectorService(db *gorm.DB) (*VectorService, error) {
	node, err := snowflake.NewNode(2) // Node number 2 for chunks
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &VectorService{
		db:        db,
		snowflake: node,
	}, nil
}

// InsertChunks writes all rows of one document in a single transaction,
// so a failed ingestion leaves nothing behind.
func (s *VectorService) InsertChunks(ctx context.Context, rows []ingest.ChunkRow) error {
	records := make([]DocumentChunk, len(rows))
	for i, r := range rows {
		records[i] = DocumentChunk{
			ID:          s.snowflake.Generate().Int64(),
			UserID:      r.UserID,
			FileName:    r.FileName,
			FileType:    r.FileType,
			FileSize:    r.FileSize,
			FileContent: r.FileContent,
			Content:     r.Content,
			Vectors:     pgvector.NewVector(r.Vector),
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert chunks: %v", err)
	}
	return nil
}

// MatchChunks runs the cosine-similarity query for one user, returning
// rows at or above the threshold, most similar first.
func (s *VectorService) MatchChunks(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]chat.ScoredChunk, error) {
	vec := pgvector.NewVector(query)

	var matches []chat.ScoredChunk
	result := s.db.WithContext(ctx).Raw(`
		SELECT content, file_name, 1 - (vectors <=> ?) AS similarity
		FROM vector_store
		WHERE user_id = ? AND 1 - (vectors <=> ?) >= ?
		ORDER BY vectors <=> ?
		LIMIT ?`,
		vec, userID, vec, threshold, vec, limit,
	).Scan(&matches)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to match chunks: %v", result.Error)
	}
	return matches, nil
}

// CheckHealth reports whether the chunk table is reachable.
func (s *VectorService) CheckHealth(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("vector store unreachable: %v", err)
	}
	return nil
}

// ListFiles aggregates the stored chunks back into per-file summaries.
func (s *VectorService) ListFiles(ctx context.Context, userID string) ([]ingest.FileInfo, error) {
	var files []ingest.FileInfo
	result := s.db.WithContext(ctx).Raw(`
		SELECT file_name, file_type, file_size, COUNT(*) AS chunks, MIN(created_at) AS created_at
		FROM vector_store
		WHERE user_id = ?
		GROUP BY file_name, file_type, file_size
		ORDER BY MIN(created_at)`,
		userID,
	).Scan(&files)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list files: %v", result.Error)
	}
	return files, nil
}
