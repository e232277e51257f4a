package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docochat/src/core/user"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrUnknownUser  = errors.New("unknown user")
)

// Turn is one message in a user's conversation. Turns are append-only
// and ordered by creation time.
type Turn struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a role/content pair in the completion client's format.
type Message struct {
	Role    string
	Content string
}

// ScoredChunk is one retrieved grounding chunk with its similarity to
// the query, highest first.
type ScoredChunk struct {
	Content    string  `json:"content"`
	FileName   string  `json:"file_name"`
	Similarity float64 `json:"similarity"`
}

// QueryEmbedder turns a user message into a query vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher is the ranked-similarity query against the vector
// store. Results are scoped to the owning user, ordered by descending
// similarity, at most limit long, and include only rows at or above
// the threshold.
type ChunkSearcher interface {
	MatchChunks(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]ScoredChunk, error)
}

// Completer generates the assistant reply from a system instruction
// and the ordered conversation.
type Completer interface {
	Complete(ctx context.Context, system string, msgs []Message) (string, error)
}

// TurnStore persists the conversation log.
type TurnStore interface {
	// AppendExchange records the user message and the assistant reply
	// as a single logical write.
	AppendExchange(ctx context.Context, userID, userMessage, reply string) error
	ListByUser(ctx context.Context, userID string) ([]Turn, error)
}

// UserDirectory is the slice of the user repository the pipeline needs:
// existence checks and the credit usage counter.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	AddCreditsUsed(ctx context.Context, id string, n int) error
}

// ErrorKind classifies a pipeline failure by the step that produced it.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindEmbedding   ErrorKind = "embedding"
	KindRetrieval   ErrorKind = "retrieval"
	KindCompletion  ErrorKind = "completion"
	KindPersistence ErrorKind = "persistence"
)

// PipelineError carries the failing step alongside the cause so the
// HTTP boundary can map it to a status code.
type PipelineError struct {
	Kind ErrorKind
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func pipelineErr(kind ErrorKind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Err: err}
}

// KindOf extracts the error kind from a pipeline failure, or "" for
// any other error.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
