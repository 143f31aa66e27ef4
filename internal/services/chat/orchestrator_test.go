package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-docchat/internal/database"
	"github.com/iyunix/go-docchat/internal/domain"
	chatrepo "github.com/iyunix/go-docchat/internal/repository/chat"
	"github.com/iyunix/go-docchat/internal/repository/message"
	"github.com/iyunix/go-docchat/internal/services/history"
)

type harness struct {
	t         *testing.T
	cfg       *Config
	store     *history.Store
	completer *fakeCompleter
	streamer  *fakeStreamer
	embedder  *fakeEmbedder
	index     *fakeIndex
	orch      *Orchestrator

	mu          sync.Mutex
	transitions []TurnState
	onState     func(to TurnState)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)

	h := &harness{
		t:         t,
		cfg:       DefaultConfig(),
		store:     history.NewStore(chatrepo.NewChatRepository(db), message.NewMessageRepository(db), nopLogger{}),
		completer: &fakeCompleter{reply: "standalone question"},
		streamer:  &fakeStreamer{deltas: []string{"Hello", " world"}, release: make(chan struct{})},
		embedder:  &fakeEmbedder{},
		index:     &fakeIndex{},
	}
	h.build(h.store)
	return h
}

func (h *harness) build(store HistoryStore) {
	h.t.Helper()
	profile, err := LookupProfile(h.cfg.Profile)
	require.NoError(h.t, err)

	orch, err := NewOrchestrator(
		h.cfg,
		store,
		NewCondenser(h.completer, h.cfg.CondenseModel, profile, nopLogger{}),
		NewRetriever(h.embedder, h.index, nopLogger{}),
		NewGenerator(h.streamer, h.cfg.ChatModel),
		nopLogger{},
		WithStateObserver(h.observe),
	)
	require.NoError(h.t, err)
	h.orch = orch
}

func (h *harness) observe(chatID string, from, to TurnState) {
	h.mu.Lock()
	h.transitions = append(h.transitions, to)
	hook := h.onState
	h.mu.Unlock()
	if hook != nil {
		hook(to)
	}
}

func (h *harness) states() []TurnState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]TurnState(nil), h.transitions...)
}

func (h *harness) seedChat(chatID, userID string, n int) {
	h.t.Helper()
	ctx := context.Background()
	_, err := h.store.CreateChat(ctx, &domain.Chat{ID: chatID, UserID: userID, Title: "seeded"})
	require.NoError(h.t, err)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		require.NoError(h.t, h.store.Append(ctx, &domain.Message{
			ChatID:    chatID,
			Role:      role,
			Content:   fmt.Sprintf("history-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
}

func (h *harness) messages(chatID string) []domain.Message {
	h.t.Helper()
	msgs, err := h.store.ReadLastK(context.Background(), chatID, 100)
	require.NoError(h.t, err)
	return msgs
}

func ask(chatID, userID, question string) TurnRequest {
	return TurnRequest{
		ChatID:   chatID,
		UserID:   userID,
		Messages: []InputMessage{{Role: domain.RoleUser, Content: question}},
	}
}

func collect(t *testing.T, s *Stream) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				<-s.Done()
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("turn did not finish")
			return nil
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestRunTurn_TerminationClauseScenario(t *testing.T) {
	h := newHarness(t)
	h.streamer.deltas = []string{"Either party may terminate", " with 30 days notice."}
	h.index.chunks = []domain.Chunk{{
		ID:     "c-1",
		Text:   "Either party may terminate this agreement with 30 days written notice.",
		Source: "contract.pdf",
		ChatID: "chat-1",
		UserID: "alice",
		Score:  0.92,
	}}

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "What is the termination clause?"))
	require.NoError(t, err)
	events := collect(t, stream)

	require.Equal(t, []EventKind{EventStart, EventDelta, EventDelta, EventEnd}, kinds(events))
	assert.Equal(t, "chat-1", events[0].ChatID)
	assert.Equal(t, stream.TurnID(), events[0].TurnID)
	assert.NotZero(t, events[0].UserMessageID)
	assert.Equal(t, []string{"contract.pdf"}, events[0].Sources)

	assert.Empty(t, h.completer.calls(), "no history means no condense call")
	assert.Equal(t, "What is the termination clause?", h.embedder.lastQuery())
	assert.Contains(t, h.streamer.lastPrompt(), "30 days written notice")

	msgs := h.messages("chat-1")
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Either party may terminate with 30 days notice.", msgs[1].Content)
	assert.True(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt))
	assert.Equal(t, h.cfg.ChatModel, msgs[1].Metadata[MetaModel])
	assert.Equal(t, []any{"contract.pdf"}, msgs[1].Metadata[MetaSources])
	assert.Equal(t, ProfileDocuments, msgs[1].Metadata[MetaProfile])

	chat, err := h.store.Get(context.Background(), "chat-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "What is the termination clause?", chat.Title)
	assert.Equal(t, "/chat/chat-1", chat.Metadata[domain.MetaSharePath])

	assert.Equal(t, []TurnState{StateHistoryLoaded, StateCondensed, StateRetrieved, StateGenerating, StatePersisted}, h.states())
}

func TestRunTurn_NoDocumentsScenario(t *testing.T) {
	h := newHarness(t)

	stream, err := h.orch.RunTurn(context.Background(), ask("", "alice", "Anything in my files?"))
	require.NoError(t, err)
	assert.NotEmpty(t, stream.ChatID())
	events := collect(t, stream)

	require.Equal(t, []EventKind{EventStart, EventDelta, EventDelta, EventEnd}, kinds(events))
	assert.Empty(t, events[0].Sources)
	assert.Contains(t, h.streamer.lastPrompt(), NoDocumentsContext)

	msgs := h.messages(stream.ChatID())
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello world", msgs[1].Content)
	assert.Equal(t, StatePersisted, h.states()[len(h.states())-1])
}

func TestRunTurn_TitleIsTruncatedQuestion(t *testing.T) {
	h := newHarness(t)
	question := strings.Repeat("é", 150)

	stream, err := h.orch.RunTurn(context.Background(), ask("long", "alice", question))
	require.NoError(t, err)
	collect(t, stream)

	chat, err := h.store.Get(context.Background(), "long", "alice")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 100), chat.Title)
}

func TestRunTurn_MarkupInFirstQuestionCompletes(t *testing.T) {
	for _, question := range []string{
		"What does the <script> tag in section 4 of the contract do?",
		"Does the doc mention javascript: URLs anywhere?",
	} {
		t.Run(question, func(t *testing.T) {
			h := newHarness(t)

			stream, err := h.orch.RunTurn(context.Background(), ask("chat-a", "alice", question))
			require.NoError(t, err)
			events := collect(t, stream)

			require.Equal(t, []EventKind{EventStart, EventDelta, EventDelta, EventEnd}, kinds(events))
			assert.Len(t, h.messages("chat-a"), 2)

			chat, err := h.store.Get(context.Background(), "chat-a", "alice")
			require.NoError(t, err)
			assert.Equal(t, question, chat.Title)
		})
	}
}

func TestRunTurn_FollowUpUsesWindowedHistory(t *testing.T) {
	h := newHarness(t)
	h.seedChat("chat-1", "alice", 7)

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "and the second one?"))
	require.NoError(t, err)
	collect(t, stream)

	calls := h.completer.calls()
	require.Len(t, calls, 1)
	condensePrompt := calls[0]
	for i := 2; i < 7; i++ {
		assert.Contains(t, condensePrompt, fmt.Sprintf("history-%d", i))
	}
	assert.NotContains(t, condensePrompt, "history-0")
	assert.NotContains(t, condensePrompt, "history-1")
	assert.NotContains(t, condensePrompt, "user: and the second one?", "current question is not history")
	assert.Contains(t, condensePrompt, "user: history-2")
	assert.Less(t, strings.Index(condensePrompt, "history-2"), strings.Index(condensePrompt, "history-6"))

	assert.Equal(t, "standalone question", h.embedder.lastQuery())
	assert.Contains(t, h.streamer.lastPrompt(), "Question: standalone question")
	assert.Len(t, h.messages("chat-1"), 9)
}

func TestRunTurn_CondenserFailureFallsBackToRawQuestion(t *testing.T) {
	h := newHarness(t)
	h.seedChat("chat-1", "alice", 2)
	h.completer.err = errUpstream

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "raw question"))
	require.NoError(t, err)
	events := collect(t, stream)

	assert.Equal(t, EventEnd, events[len(events)-1].Kind)
	assert.Equal(t, "raw question", h.embedder.lastQuery())
	assert.Len(t, h.messages("chat-1"), 4)
}

func TestRunTurn_RetrievalFailureUsesSentinel(t *testing.T) {
	h := newHarness(t)
	h.index.err = errUpstream

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "question"))
	require.NoError(t, err)
	events := collect(t, stream)

	assert.Equal(t, []EventKind{EventStart, EventDelta, EventDelta, EventEnd}, kinds(events))
	assert.Contains(t, h.streamer.lastPrompt(), NoDocumentsContext)
	assert.Len(t, h.messages("chat-1"), 2)
}

func TestRunTurn_RetrievalIsScoped(t *testing.T) {
	h := newHarness(t)
	h.index.chunks = []domain.Chunk{
		{ID: "a", Text: "shared text for chat A", Source: "doc.pdf", ChatID: "chat-a", UserID: "alice", Score: 0.5},
		{ID: "b", Text: "shared text for chat B", Source: "doc.pdf", ChatID: "chat-b", UserID: "alice", Score: 0.9},
		{ID: "c", Text: "shared text for mallory", Source: "doc.pdf", ChatID: "chat-a", UserID: "mallory", Score: 0.99},
	}

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-a", "alice", "same query"))
	require.NoError(t, err)
	collect(t, stream)

	require.NotEmpty(t, h.index.scopes)
	assert.Equal(t, domain.Scope{ChatID: "chat-a", UserID: "alice"}, h.index.scopes[0])
	assert.Equal(t, h.cfg.RetrievalTopK, h.index.topKs[0])

	prompt := h.streamer.lastPrompt()
	assert.Contains(t, prompt, "shared text for chat A")
	assert.NotContains(t, prompt, "shared text for chat B")
	assert.NotContains(t, prompt, "mallory")
}

func TestRunTurn_GenerationFailureBeforeFirstDelta(t *testing.T) {
	h := newHarness(t)
	h.streamer.deltas = nil
	h.streamer.err = errUpstream

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "question"))
	require.NoError(t, err)
	events := collect(t, stream)

	require.Equal(t, []EventKind{EventStart, EventError, EventEnd}, kinds(events))
	assert.Equal(t, ErrTypeUpstream, events[1].ErrorKind)
	assert.Equal(t, Apology, events[1].Text)

	msgs := h.messages("chat-1")
	require.Len(t, msgs, 1, "user message survives a failed generation")
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, StateFailed, h.states()[len(h.states())-1])
}

func TestRunTurn_GenerationFailureMidStream(t *testing.T) {
	h := newHarness(t)
	h.streamer.deltas = []string{"partial"}
	h.streamer.err = errUpstream

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "question"))
	require.NoError(t, err)
	events := collect(t, stream)

	require.Equal(t, []EventKind{EventStart, EventDelta, EventError, EventEnd}, kinds(events))
	assert.Len(t, h.messages("chat-1"), 1, "no partial assistant message")
}

func TestRunTurn_EmptyGenerationFails(t *testing.T) {
	h := newHarness(t)
	h.streamer.deltas = []string{"", ""}

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "question"))
	require.NoError(t, err)
	events := collect(t, stream)

	require.Equal(t, []EventKind{EventStart, EventError, EventEnd}, kinds(events))
	assert.Len(t, h.messages("chat-1"), 1)
}

func TestRunTurn_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t)

	cases := map[string]TurnRequest{
		"no messages": {ChatID: "x", UserID: "alice"},
		"no user":     {ChatID: "x", Messages: []InputMessage{{Role: domain.RoleUser, Content: "hi"}}},
		"blank question": {ChatID: "x", UserID: "alice", Messages: []InputMessage{
			{Role: domain.RoleUser, Content: "   "},
		}},
		"trailing assistant": {ChatID: "x", UserID: "alice", Messages: []InputMessage{
			{Role: domain.RoleUser, Content: "hi"},
			{Role: domain.RoleAssistant, Content: "hello"},
		}},
		"chat id too long": ask(strings.Repeat("x", 65), "alice", "hi"),
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.orch.RunTurn(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, ErrTypeInvalidInput, KindOf(err))
		})
	}

	_, err := h.store.FindChat(context.Background(), "x")
	assert.True(t, history.IsNotFound(err), "rejected turns have no side effects")
	assert.Zero(t, h.orch.inflight.Len())
}

func TestRunTurn_ForeignChatIsNotFound(t *testing.T) {
	h := newHarness(t)
	h.seedChat("chat-1", "bob", 0)

	_, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "let me in"))
	require.Error(t, err)
	assert.Equal(t, ErrTypeNotFound, KindOf(err))
	assert.Empty(t, h.messages("chat-1"))
	assert.Zero(t, h.orch.inflight.Len())
}

func TestRunTurn_SecondTurnForSameChatConflicts(t *testing.T) {
	h := newHarness(t)
	h.streamer.deltas = []string{"first", " answer"}
	h.streamer.block = true

	first, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "one"))
	require.NoError(t, err)
	<-first.Events() // start
	<-first.Events() // first delta, generator now blocked

	_, err = h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "two"))
	require.Error(t, err)
	assert.Equal(t, ErrTypeConflict, KindOf(err))

	other, err := h.orch.RunTurn(context.Background(), ask("chat-2", "alice", "elsewhere"))
	require.NoError(t, err, "other chats are not blocked")

	close(h.streamer.release)
	rest := collect(t, first)
	assert.Equal(t, EventEnd, rest[len(rest)-1].Kind)
	collect(t, other)

	msgs := h.messages("chat-1")
	require.Len(t, msgs, 2, "the rejected turn left no trace")
	assert.Equal(t, "one", msgs[0].Content)

	again, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "three"))
	require.NoError(t, err)
	collect(t, again)
	assert.Len(t, h.messages("chat-1"), 4)
}

func TestRunTurn_CloseMidStreamPersistsNothing(t *testing.T) {
	h := newHarness(t)
	h.streamer.deltas = []string{"partial", " never sent"}
	h.streamer.block = true

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "question"))
	require.NoError(t, err)
	assert.Equal(t, EventStart, (<-stream.Events()).Kind)
	assert.Equal(t, EventDelta, (<-stream.Events()).Kind)

	stream.Close()

	msgs := h.messages("chat-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, StateCanceled, h.states()[len(h.states())-1])
	assert.Zero(t, h.orch.inflight.Len())

	stream.Close()
}

func TestRunTurn_CancelAtEachState(t *testing.T) {
	for _, target := range []TurnState{StateHistoryLoaded, StateCondensed, StateRetrieved, StateGenerating} {
		t.Run(target.String(), func(t *testing.T) {
			h := newHarness(t)
			h.seedChat("chat-1", "alice", 2)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			h.onState = func(to TurnState) {
				if to == target {
					cancel()
				}
			}

			stream, err := h.orch.RunTurn(ctx, ask("chat-1", "alice", "question"))
			require.NoError(t, err)
			events := collect(t, stream)

			assert.NotContains(t, kinds(events), EventEnd)
			states := h.states()
			assert.Equal(t, target, states[len(states)-2])
			assert.Equal(t, StateCanceled, states[len(states)-1])

			msgs := h.messages("chat-1")
			require.Len(t, msgs, 3, "seeded history plus the user message")
			assert.Equal(t, "question", msgs[2].Content)
		})
	}
}

type failingStore struct {
	*history.Store
	failRole domain.Role
}

func (f *failingStore) Append(ctx context.Context, msg *domain.Message) error {
	if msg.Role == f.failRole {
		return errors.New("disk full")
	}
	return f.Store.Append(ctx, msg)
}

func TestRunTurn_UserMessagePersistFailureIsSynchronous(t *testing.T) {
	h := newHarness(t)
	h.build(&failingStore{Store: h.store, failRole: domain.RoleUser})

	_, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "question"))
	require.Error(t, err)
	assert.Equal(t, ErrTypePersistence, KindOf(err))
	assert.Empty(t, h.streamer.prompts, "nothing is generated without a durable question")
	assert.Zero(t, h.orch.inflight.Len())
}

func TestRunTurn_AssistantPersistFailureIsLoggedOnly(t *testing.T) {
	h := newHarness(t)
	h.build(&failingStore{Store: h.store, failRole: domain.RoleAssistant})

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "question"))
	require.NoError(t, err)
	events := collect(t, stream)

	assert.Equal(t, []EventKind{EventStart, EventDelta, EventDelta, EventEnd}, kinds(events))
	assert.Len(t, h.messages("chat-1"), 1)
}

func TestRunTurn_MarketingProfile(t *testing.T) {
	h := newHarness(t)
	h.cfg.Profile = ProfileMarketing
	h.build(h.store)

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "how do I grow my audience?"))
	require.NoError(t, err)
	collect(t, stream)

	assert.Contains(t, h.streamer.lastPrompt(), "digital marketing manager")
	msgs := h.messages("chat-1")
	require.Len(t, msgs, 2)
	assert.Equal(t, ProfileMarketing, msgs[1].Metadata[MetaProfile])
}

func TestRunTurn_AssistantTimestampFollowsUserMessage(t *testing.T) {
	h := newHarness(t)
	frozen := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	h.orch.now = func() time.Time { return frozen }

	stream, err := h.orch.RunTurn(context.Background(), ask("chat-1", "alice", "question"))
	require.NoError(t, err)
	collect(t, stream)

	msgs := h.messages("chat-1")
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt))
}

func TestNewOrchestrator_ValidatesDependencies(t *testing.T) {
	cfg := DefaultConfig()
	_, err := NewOrchestrator(cfg, nil, nil, nil, nil, nopLogger{})
	assert.Equal(t, ErrTypeConfig, KindOf(err))

	bad := DefaultConfig()
	bad.Profile = "pirate"
	_, err = NewOrchestrator(bad, nil, nil, nil, nil, nopLogger{})
	assert.Equal(t, ErrTypeConfig, KindOf(err))
}
