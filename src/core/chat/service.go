package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"docochat/src/infrastructure/log"
)

// Config holds the retrieval and history tuning knobs. The similarity
// threshold trades recall against irrelevant-context inclusion; it is
// configuration, not a fixed contract. A threshold of zero is honored
// and includes every chunk; a negative threshold selects the default.
// MatchLimit and HistoryWindow fall back to their defaults when zero
// or negative, since neither has a useful degenerate value.
type Config struct {
	SimilarityThreshold float64
	MatchLimit          int
	HistoryWindow       int
}

const (
	DefaultSimilarityThreshold = 0.5
	DefaultMatchLimit          = 10
	DefaultHistoryWindow       = 20
)

func (c Config) withDefaults() Config {
	if c.SimilarityThreshold < 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.MatchLimit <= 0 {
		c.MatchLimit = DefaultMatchLimit
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = DefaultHistoryWindow
	}
	return c
}

// Result is the outcome of a successful pipeline run. PersistenceErr
// is set when the reply was generated but the exchange could not be
// recorded; the reply is still usable, the history is just incomplete.
type Result struct {
	Reply          string
	PersistenceErr error
}

// Service runs the RAG chat pipeline: embed the query, retrieve
// grounding chunks, build the instruction, generate a reply and record
// the exchange.
type Service struct {
	embedder QueryEmbedder
	searcher ChunkSearcher
	complete Completer
	turns    TurnStore
	users    UserDirectory
	cfg      Config

	// one mutex per user so concurrent sends from the same user
	// cannot read each other's in-flight history
	locks sync.Map
}

func NewService(embedder QueryEmbedder, searcher ChunkSearcher, completer Completer, turns TurnStore, users UserDirectory, cfg Config) *Service {
	return &Service{
		embedder: embedder,
		searcher: searcher,
		complete: completer,
		turns:    turns,
		users:    users,
		cfg:      cfg.withDefaults(),
	}
}

// Send runs one pipeline invocation for the given user message.
// Validation happens before any external call; a failed step aborts
// the run with a PipelineError and no turns are persisted unless a
// reply was generated.
func (s *Service) Send(ctx context.Context, userID, message string) (*Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, pipelineErr(KindValidation, ErrEmptyMessage)
	}
	if userID == "" {
		return nil, pipelineErr(KindValidation, ErrUnknownUser)
	}

	// a store failure during lookup is an infrastructure fault, not a
	// bad request
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, pipelineErr(KindRetrieval, fmt.Errorf("failed to look up user: %w", err))
	}
	if u == nil {
		return nil, pipelineErr(KindValidation, ErrUnknownUser)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	vector, err := s.embedder.EmbedQuery(ctx, message)
	if err != nil {
		return nil, pipelineErr(KindEmbedding, fmt.Errorf("failed to embed query: %w", err))
	}
	if len(vector) == 0 {
		return nil, pipelineErr(KindEmbedding, errors.New("embedding client returned no vector"))
	}

	chunks, err := s.searcher.MatchChunks(ctx, userID, vector, s.cfg.SimilarityThreshold, s.cfg.MatchLimit)
	if err != nil {
		return nil, pipelineErr(KindRetrieval, fmt.Errorf("failed to retrieve chunks: %w", err))
	}

	// zero retrieved chunks is a valid state, not an error; the reply
	// is simply generated ungrounded
	system := systemInstruction(buildContext(chunks))

	msgs, err := s.assembleConversation(ctx, userID, message)
	if err != nil {
		return nil, pipelineErr(KindRetrieval, err)
	}

	reply, err := s.complete.Complete(ctx, system, msgs)
	if err != nil {
		// nothing is persisted here: a user turn must never be
		// recorded without its paired assistant reply
		return nil, pipelineErr(KindCompletion, fmt.Errorf("failed to generate reply: %w", err))
	}

	if err := s.users.AddCreditsUsed(ctx, userID, 1); err != nil {
		log.Error(err, "failed to record credit usage", "user_id", userID)
	}

	res := &Result{Reply: reply}
	if err := s.turns.AppendExchange(ctx, userID, message, reply); err != nil {
		log.Error(err, "failed to persist chat exchange", "user_id", userID)
		res.PersistenceErr = pipelineErr(KindPersistence, err)
	}

	return res, nil
}

// History returns the user's full conversation, oldest first.
func (s *Service) History(ctx context.Context, userID string) ([]Turn, error) {
	if userID == "" {
		return nil, pipelineErr(KindValidation, ErrUnknownUser)
	}
	return s.turns.ListByUser(ctx, userID)
}

// assembleConversation loads prior turns, keeps the most recent
// HistoryWindow of them, and appends the new user message.
func (s *Service) assembleConversation(ctx context.Context, userID, message string) ([]Message, error) {
	history, err := s.turns.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	if len(history) > s.cfg.HistoryWindow {
		history = history[len(history)-s.cfg.HistoryWindow:]
	}

	msgs := make([]Message, 0, len(history)+1)
	for _, t := range history {
		msgs = append(msgs, Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: message})

	return msgs, nil
}

func (s *Service) lockUser(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
