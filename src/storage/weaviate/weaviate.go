package weaviate

import (
	"context"
	"fmt"
	"time"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"docochat/src/core/chat"
	"docochat/src/core/ingest"
)

const (
	ClassName = "DocumentChunk"

	listLimit = 10000
)

// ChunkStore is the Weaviate-backed chunk store and searcher, an
// alternative to the pgvector backend. Vectors are supplied by the
// embedding client, so the class uses no vectorizer.
type ChunkStore struct {
	client *weaviate.Client
}

func NewChunkStore(client *weaviate.Client) *ChunkStore {
	return &ChunkStore{client: client}
}

// EnsureSchema creates the chunk class if it does not exist yet.
func (s *ChunkStore) EnsureSchema(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %v", err)
	}
	for _, class := range schema.Classes {
		if class.Class == ClassName {
			return nil
		}
	}

	class := &models.Class{
		Class:      ClassName,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "userId", DataType: []string{"text"}},
			{Name: "fileName", DataType: []string{"text"}},
			{Name: "fileType", DataType: []string{"text"}},
			{Name: "fileSize", DataType: []string{"int"}},
			{Name: "fileContent", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
		},
	}

	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create Weaviate class: %v", err)
	}
	return nil
}

// CheckHealth reports whether the Weaviate instance is reachable.
func (s *ChunkStore) CheckHealth(ctx context.Context) error {
	if _, err := s.client.Schema().Getter().Do(ctx); err != nil {
		return fmt.Errorf("weaviate unreachable: %v", err)
	}
	return nil
}

// InsertChunks adds all rows of one document in a single batch.
func (s *ChunkStore) InsertChunks(ctx context.Context, rows []ingest.ChunkRow) error {
	objs := make([]*models.Object, len(rows))
	for i, r := range rows {
		objs[i] = &models.Object{
			Class: ClassName,
			Properties: map[string]interface{}{
				"userId":      r.UserID,
				"fileName":    r.FileName,
				"fileType":    r.FileType,
				"fileSize":    r.FileSize,
				"fileContent": r.FileContent,
				"content":     r.Content,
			},
			Vector: r.Vector,
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch add chunks: %v", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("batch operation returned no results")
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch operation failed: %s", obj.Result.Errors.Error[0].Message)
		}
	}

	return nil
}

// MatchChunks performs near-vector search scoped to one user. Weaviate
// reports cosine distance; similarity is 1 - distance, and the distance
// cutoff is derived from the similarity threshold.
func (s *ChunkStore) MatchChunks(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]chat.ScoredChunk, error) {
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "fileName"},
		{Name: "_additional { distance }"},
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(query).
		WithDistance(float32(1 - threshold))

	where := filters.Where().
		WithPath([]string{"userId"}).
		WithOperator(filters.Equal).
		WithValueText(userID)

	result, err := s.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}

	var matches []chat.ScoredChunk
	if data, ok := result.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[ClassName].([]interface{}); ok {
			for _, obj := range objects {
				objMap, ok := obj.(map[string]interface{})
				if !ok {
					continue
				}
				additional, _ := objMap["_additional"].(map[string]interface{})
				distance, _ := additional["distance"].(float64)
				content, _ := objMap["content"].(string)
				fileName, _ := objMap["fileName"].(string)

				matches = append(matches, chat.ScoredChunk{
					Content:    content,
					FileName:   fileName,
					Similarity: 1 - distance,
				})
			}
		}
	}

	return matches, nil
}

// ListFiles fetches the user's chunks and folds them into per-file
// summaries; Weaviate has no grouped aggregation over filtered sets.
func (s *ChunkStore) ListFiles(ctx context.Context, userID string) ([]ingest.FileInfo, error) {
	fields := []graphql.Field{
		{Name: "fileName"},
		{Name: "fileType"},
		{Name: "fileSize"},
		{Name: "_additional { creationTimeUnix }"},
	}

	where := filters.Where().
		WithPath([]string{"userId"}).
		WithOperator(filters.Equal).
		WithValueText(userID)

	result, err := s.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(fields...).
		WithWhere(where).
		WithLimit(listLimit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %v", err)
	}

	byName := make(map[string]*ingest.FileInfo)
	var order []string
	if data, ok := result.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[ClassName].([]interface{}); ok {
			for _, obj := range objects {
				objMap, ok := obj.(map[string]interface{})
				if !ok {
					continue
				}
				fileName, _ := objMap["fileName"].(string)
				info, seen := byName[fileName]
				if !seen {
					fileType, _ := objMap["fileType"].(string)
					fileSize, _ := objMap["fileSize"].(float64)
					info = &ingest.FileInfo{
						FileName:  fileName,
						FileType:  fileType,
						FileSize:  int64(fileSize),
						CreatedAt: creationTime(objMap),
					}
					byName[fileName] = info
					order = append(order, fileName)
				}
				info.Chunks++
				if t := creationTime(objMap); !t.IsZero() && t.Before(info.CreatedAt) {
					info.CreatedAt = t
				}
			}
		}
	}

	files := make([]ingest.FileInfo, 0, len(order))
	for _, name := range order {
		files = append(files, *byName[name])
	}
	return files, nil
}

func creationTime(objMap map[string]interface{}) time.Time {
	additional, _ := objMap["_additional"].(map[string]interface{})
	unixMillis, ok := additional["creationTimeUnix"].(string)
	if !ok {
		return time.Time{}
	}
	var ms int64
	if _, err := fmt.Sscan(unixMillis, &ms); err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
