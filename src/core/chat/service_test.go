package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"docochat/src/core/chat"
	"docochat/src/core/user"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

type fakeSearcher struct {
	chunks       []chat.ScoredChunk
	err          error
	calls        int
	gotUserID    string
	gotThreshold float64
	gotLimit     int
}

func (f *fakeSearcher) MatchChunks(ctx context.Context, userID string, query []float32, threshold float64, limit int) ([]chat.ScoredChunk, error) {
	f.calls++
	f.gotUserID = userID
	f.gotThreshold = threshold
	f.gotLimit = limit
	return f.chunks, f.err
}

type fakeCompleter struct {
	reply     string
	err       error
	calls     int
	gotSystem string
	gotMsgs   []chat.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, msgs []chat.Message) (string, error) {
	f.calls++
	f.gotSystem = system
	f.gotMsgs = msgs
	return f.reply, f.err
}

type fakeTurnStore struct {
	turns     []chat.Turn
	appendErr error
	listErr   error
	appends   int
}

func (f *fakeTurnStore) AppendExchange(ctx context.Context, userID, userMessage, reply string) error {
	f.appends++
	if f.appendErr != nil {
		return f.appendErr
	}
	now := time.Now()
	f.turns = append(f.turns,
		chat.Turn{UserID: userID, Role: chat.RoleUser, Content: userMessage, CreatedAt: now},
		chat.Turn{UserID: userID, Role: chat.RoleAssistant, Content: reply, CreatedAt: now},
	)
	return nil
}

func (f *fakeTurnStore) ListByUser(ctx context.Context, userID string) ([]chat.Turn, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []chat.Turn
	for _, t := range f.turns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeUsers struct {
	users       map[string]*user.User
	err         error
	creditsUsed int
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func (f *fakeUsers) AddCreditsUsed(ctx context.Context, id string, n int) error {
	f.creditsUsed += n
	return nil
}

type pipelineFixture struct {
	embedder  *fakeEmbedder
	searcher  *fakeSearcher
	completer *fakeCompleter
	turns     *fakeTurnStore
	users     *fakeUsers
	svc       *chat.Service
}

func newFixture(cfg chat.Config) *pipelineFixture {
	f := &pipelineFixture{
		embedder:  &fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}},
		searcher:  &fakeSearcher{},
		completer: &fakeCompleter{reply: "the document covers shipping routes"},
		turns:     &fakeTurnStore{},
		users: &fakeUsers{users: map[string]*user.User{
			"u1": {ID: "u1", Username: "alice"},
		}},
	}
	f.svc = chat.NewService(f.embedder, f.searcher, f.completer, f.turns, f.users, cfg)
	return f
}

func TestSendSuccessAppendsExchange(t *testing.T) {
	f := newFixture(chat.Config{})
	f.searcher.chunks = []chat.ScoredChunk{
		{Content: "routes through the strait", Similarity: 0.9},
	}

	res, err := f.svc.Send(context.Background(), "u1", "what is this about?")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Reply == "" {
		t.Error("Send() returned empty reply")
	}
	if res.PersistenceErr != nil {
		t.Errorf("Send() persistence error = %v", res.PersistenceErr)
	}

	if len(f.turns.turns) != 2 {
		t.Fatalf("persisted %d turns, want 2", len(f.turns.turns))
	}
	if f.turns.turns[0].Role != chat.RoleUser || f.turns.turns[1].Role != chat.RoleAssistant {
		t.Errorf("turn roles = %q,%q, want user,assistant", f.turns.turns[0].Role, f.turns.turns[1].Role)
	}
	if f.users.creditsUsed != 1 {
		t.Errorf("credits used = %d, want 1", f.users.creditsUsed)
	}
}

func TestSendValidation(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		message string
	}{
		{name: "empty message", userID: "u1", message: ""},
		{name: "whitespace message", userID: "u1", message: "   \n\t"},
		{name: "missing user id", userID: "", message: "hello"},
		{name: "unknown user", userID: "nobody", message: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(chat.Config{})

			_, err := f.svc.Send(context.Background(), tt.userID, tt.message)
			if chat.KindOf(err) != chat.KindValidation {
				t.Fatalf("Send() error kind = %q, want validation (err=%v)", chat.KindOf(err), err)
			}

			// fail fast: no external call, no side effect
			if f.embedder.calls != 0 || f.searcher.calls != 0 || f.completer.calls != 0 {
				t.Errorf("external calls made: embed=%d search=%d complete=%d, want none",
					f.embedder.calls, f.searcher.calls, f.completer.calls)
			}
			if f.turns.appends != 0 {
				t.Errorf("turns appended = %d, want 0", f.turns.appends)
			}
		})
	}
}

func TestSendEmptyRetrievalFallsBackUngrounded(t *testing.T) {
	f := newFixture(chat.Config{})
	f.searcher.chunks = nil

	res, err := f.svc.Send(context.Background(), "u1", "what is this document about?")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Reply == "" {
		t.Error("Send() returned empty reply")
	}
	if strings.Contains(strings.ToLower(f.completer.gotSystem), "excerpt") {
		t.Errorf("system instruction makes a grounding claim with empty retrieval: %q", f.completer.gotSystem)
	}
}

func TestSendGroundedInstructionContainsChunks(t *testing.T) {
	f := newFixture(chat.Config{})
	f.searcher.chunks = []chat.ScoredChunk{
		{Content: "first and most similar", Similarity: 0.95},
		{Content: "second best match", Similarity: 0.7},
	}

	if _, err := f.svc.Send(context.Background(), "u1", "summarize"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	sys := f.completer.gotSystem
	i := strings.Index(sys, "first and most similar")
	j := strings.Index(sys, "second best match")
	if i < 0 || j < 0 {
		t.Fatalf("system instruction missing chunk content: %q", sys)
	}
	if i > j {
		t.Error("chunks are not ordered most-similar first in the instruction")
	}
}

func TestSendStepFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*pipelineFixture)
		wantKind chat.ErrorKind
	}{
		{
			name:     "embedding client error",
			mutate:   func(f *pipelineFixture) { f.embedder.err = errors.New("boom") },
			wantKind: chat.KindEmbedding,
		},
		{
			name:     "embedding client returns no vector",
			mutate:   func(f *pipelineFixture) { f.embedder.vec = nil },
			wantKind: chat.KindEmbedding,
		},
		{
			name:     "vector store error",
			mutate:   func(f *pipelineFixture) { f.searcher.err = errors.New("down") },
			wantKind: chat.KindRetrieval,
		},
		{
			name:     "user directory error",
			mutate:   func(f *pipelineFixture) { f.users.err = errors.New("connection refused") },
			wantKind: chat.KindRetrieval,
		},
		{
			name:     "completion provider error",
			mutate:   func(f *pipelineFixture) { f.completer.err = errors.New("quota") },
			wantKind: chat.KindCompletion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(chat.Config{})
			tt.mutate(f)

			_, err := f.svc.Send(context.Background(), "u1", "hello")
			if chat.KindOf(err) != tt.wantKind {
				t.Fatalf("Send() error kind = %q, want %q (err=%v)", chat.KindOf(err), tt.wantKind, err)
			}

			// no step failure may leave an orphaned user turn behind
			if f.turns.appends != 0 {
				t.Errorf("turns appended = %d, want 0", f.turns.appends)
			}
		})
	}
}

func TestSendPersistenceFailureStillReturnsReply(t *testing.T) {
	f := newFixture(chat.Config{})
	f.turns.appendErr = errors.New("connection reset")

	res, err := f.svc.Send(context.Background(), "u1", "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Reply != f.completer.reply {
		t.Errorf("reply = %q, want %q", res.Reply, f.completer.reply)
	}
	if chat.KindOf(res.PersistenceErr) != chat.KindPersistence {
		t.Errorf("persistence error kind = %q, want persistence", chat.KindOf(res.PersistenceErr))
	}
}

func TestSendUsesConfiguredRetrievalParameters(t *testing.T) {
	f := newFixture(chat.Config{SimilarityThreshold: 0.6, MatchLimit: 5})

	if _, err := f.svc.Send(context.Background(), "u1", "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if f.searcher.gotUserID != "u1" {
		t.Errorf("search user id = %q, want u1", f.searcher.gotUserID)
	}
	if f.searcher.gotThreshold != 0.6 || f.searcher.gotLimit != 5 {
		t.Errorf("search params = (%v, %d), want (0.6, 5)", f.searcher.gotThreshold, f.searcher.gotLimit)
	}
}

func TestSendZeroThresholdIncludesEverything(t *testing.T) {
	f := newFixture(chat.Config{SimilarityThreshold: 0, MatchLimit: 5})

	if _, err := f.svc.Send(context.Background(), "u1", "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	// an explicit zero threshold is a valid setting, not an unset one
	if f.searcher.gotThreshold != 0 {
		t.Errorf("search threshold = %v, want 0", f.searcher.gotThreshold)
	}
}

func TestSendNegativeConfigFallsBackToDefaults(t *testing.T) {
	f := newFixture(chat.Config{SimilarityThreshold: -1, MatchLimit: -1})

	if _, err := f.svc.Send(context.Background(), "u1", "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if f.searcher.gotThreshold != chat.DefaultSimilarityThreshold {
		t.Errorf("search threshold = %v, want default %v", f.searcher.gotThreshold, chat.DefaultSimilarityThreshold)
	}
	if f.searcher.gotLimit != chat.DefaultMatchLimit {
		t.Errorf("search limit = %d, want default %d", f.searcher.gotLimit, chat.DefaultMatchLimit)
	}
}

func TestSendHistoryWindow(t *testing.T) {
	f := newFixture(chat.Config{HistoryWindow: 4})
	for i := 0; i < 5; i++ {
		f.turns.AppendExchange(context.Background(), "u1", "older question", "older answer")
	}

	if _, err := f.svc.Send(context.Background(), "u1", "newest question"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// 4 windowed history turns plus the new user message
	if len(f.completer.gotMsgs) != 5 {
		t.Fatalf("completion got %d messages, want 5", len(f.completer.gotMsgs))
	}
	last := f.completer.gotMsgs[len(f.completer.gotMsgs)-1]
	if last.Role != chat.RoleUser || last.Content != "newest question" {
		t.Errorf("last message = %+v, want the new user turn", last)
	}
}

func TestSequentialSendsShareHistory(t *testing.T) {
	f := newFixture(chat.Config{})

	if _, err := f.svc.Send(context.Background(), "u1", "first message"); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	if _, err := f.svc.Send(context.Background(), "u1", "second message"); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}

	// second invocation sees both turns of the first exchange plus its
	// own new message
	if len(f.completer.gotMsgs) != 3 {
		t.Fatalf("completion got %d messages, want 3", len(f.completer.gotMsgs))
	}
	if f.completer.gotMsgs[0].Content != "first message" {
		t.Errorf("history[0] = %q, want the first user message", f.completer.gotMsgs[0].Content)
	}
	if f.completer.gotMsgs[1].Role != chat.RoleAssistant {
		t.Errorf("history[1] role = %q, want assistant", f.completer.gotMsgs[1].Role)
	}
}

// gateCompleter records the conversation length of every call and
// blocks until the gate opens, keeping sends in flight on demand.
type gateCompleter struct {
	gate chan struct{}

	mu      sync.Mutex
	msgLens []int
}

func (g *gateCompleter) Complete(ctx context.Context, system string, msgs []chat.Message) (string, error) {
	g.mu.Lock()
	g.msgLens = append(g.msgLens, len(msgs))
	g.mu.Unlock()
	<-g.gate
	return "gated reply", nil
}

func TestConcurrentSendsSerializedPerUser(t *testing.T) {
	f := newFixture(chat.Config{})
	completer := &gateCompleter{gate: make(chan struct{})}
	svc := chat.NewService(f.embedder, f.searcher, completer, f.turns, f.users, chat.Config{})

	var wg sync.WaitGroup
	wg.Add(2)
	for _, msg := range []string{"first in flight", "second in flight"} {
		go func(msg string) {
			defer wg.Done()
			if _, err := svc.Send(context.Background(), "u1", msg); err != nil {
				t.Errorf("Send(%q) error = %v", msg, err)
			}
		}(msg)
	}

	// give both sends time to reach the pipeline, then let them finish
	time.Sleep(50 * time.Millisecond)
	close(completer.gate)
	wg.Wait()

	completer.mu.Lock()
	msgLens := completer.msgLens
	completer.mu.Unlock()

	if len(msgLens) != 2 {
		t.Fatalf("completer called %d times, want 2", len(msgLens))
	}
	// with per-user serialization the first exchange is fully persisted
	// before the second send assembles its history: 1 message for the
	// first call, 2 history turns plus the new message for the second
	if msgLens[0] != 1 || msgLens[1] != 3 {
		t.Fatalf("conversation lengths = %v, want [1 3]: the second invocation did not observe the first exchange", msgLens)
	}

	if len(f.turns.turns) != 4 {
		t.Fatalf("persisted %d turns, want 4", len(f.turns.turns))
	}
	wantRoles := []string{chat.RoleUser, chat.RoleAssistant, chat.RoleUser, chat.RoleAssistant}
	for i, turn := range f.turns.turns {
		if turn.Role != wantRoles[i] {
			t.Errorf("turn %d role = %q, want %q", i, turn.Role, wantRoles[i])
		}
	}
}

func TestHistoryScopedToUser(t *testing.T) {
	f := newFixture(chat.Config{})
	f.users.users["u2"] = &user.User{ID: "u2", Username: "bob"}

	f.turns.AppendExchange(context.Background(), "u1", "alice question", "alice answer")
	f.turns.AppendExchange(context.Background(), "u2", "bob question", "bob answer")

	turns, err := f.svc.History(context.Background(), "u1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("History() returned %d turns, want 2", len(turns))
	}
	for _, turn := range turns {
		if turn.UserID != "u1" {
			t.Errorf("History() leaked turn owned by %q", turn.UserID)
		}
	}
}
