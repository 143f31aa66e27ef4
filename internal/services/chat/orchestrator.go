// File: internal/services/chat/orchestrator.go
package chat

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iyunix/go-docchat/internal/domain"
	"github.com/iyunix/go-docchat/internal/metrics"
	chatrepo "github.com/iyunix/go-docchat/internal/repository/chat"
)

var tracer = otel.Tracer("docchat.chat")

// Apology is streamed in place of an answer when generation fails.
const Apology = "Sorry, I wasn't able to generate a response right now. Please try again."

// Assistant message metadata keys.
const (
	MetaModel     = "model"
	MetaTimestamp = "timestamp"
	MetaSources   = "sources"
	MetaProfile   = "profile"
	MetaTurnID    = "turnId"
)

// QuestionCondenser rewrites a follow-up into a standalone question.
type QuestionCondenser interface {
	Condense(ctx context.Context, question string, history []domain.Message) (string, error)
}

// ChunkRetriever finds scoped document chunks for a query.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, scope domain.Scope, k int) ([]domain.Chunk, error)
}

// AnswerGenerator streams an answer for a rendered prompt.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStateObserver registers fn for every state transition.
func WithStateObserver(fn StateObserver) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithInFlight shares a guard between orchestrators.
func WithInFlight(g *InFlight) Option {
	return func(o *Orchestrator) { o.inflight = g }
}

// Orchestrator drives one chat turn from question to persisted answer.
type Orchestrator struct {
	config    *Config
	profile   Profile
	history   HistoryStore
	condenser QuestionCondenser
	retriever ChunkRetriever
	generator AnswerGenerator
	sources   *SourceExtractor
	inflight  *InFlight
	observer  StateObserver
	logger    Logger
	now       func() time.Time
}

func NewOrchestrator(
	config *Config,
	history HistoryStore,
	condenser QuestionCondenser,
	retriever ChunkRetriever,
	generator AnswerGenerator,
	logger Logger,
	opts ...Option,
) (*Orchestrator, error) {
	if config == nil {
		return nil, NewConfigError("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}
	if history == nil || condenser == nil || retriever == nil || generator == nil || logger == nil {
		return nil, NewConfigError("all orchestrator dependencies are required")
	}
	profile, err := LookupProfile(config.Profile)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		config:    config,
		profile:   profile,
		history:   history,
		condenser: condenser,
		retriever: retriever,
		generator: generator,
		sources:   NewSourceExtractor(config, logger),
		inflight:  NewInFlight(),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// turn is the state of one running turn. It is owned by its goroutine.
type turn struct {
	id       string
	chatID   string
	userID   string
	question string
	userMsg  *domain.Message
	state    TurnState
	started  time.Time
	anchored bool
}

// RunTurn validates req, persists the user message and starts the pipeline.
// Errors returned here are synchronous: INVALID_INPUT, NOT_FOUND, CONFLICT
// or PERSISTENCE_FAILURE. Everything after is reported on the stream.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest) (*Stream, error) {
	question, err := validateTurn(req)
	if err != nil {
		metrics.TurnsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	chatID := strings.TrimSpace(req.ChatID)
	if chatID == "" {
		chatID = uuid.NewString()
	}

	release, ok := o.inflight.TryAcquire(chatID)
	if !ok {
		metrics.TurnsTotal.WithLabelValues(metrics.OutcomeConflict).Inc()
		o.logger.Warn("turn rejected, chat busy", "chat_id", chatID, "user_id", req.UserID)
		return nil, NewConflictError(chatID)
	}

	t := &turn{
		id:       uuid.NewString(),
		chatID:   chatID,
		userID:   req.UserID,
		question: question,
		state:    StateCreated,
		started:  o.now(),
	}

	if err := o.resolveChat(ctx, t); err != nil {
		release()
		metrics.TurnsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	t.userMsg = &domain.Message{
		ChatID:    chatID,
		Role:      domain.RoleUser,
		Content:   question,
		Metadata:  map[string]any{MetaTimestamp: t.started.UnixMilli(), MetaTurnID: t.id},
		CreatedAt: t.started,
	}
	if err := o.history.Append(ctx, t.userMsg); err != nil {
		release()
		metrics.TurnsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		o.logger.Error("failed to persist user message", "chat_id", chatID, "error", err)
		return nil, NewPersistenceError("append_user_message", chatID, err)
	}

	turnCtx, cancel := context.WithCancel(ctx)
	stream := newStream(chatID, t.id, cancel)

	metrics.TurnsInFlight.Inc()
	go func() {
		defer close(stream.done)
		defer cancel()
		defer release()
		defer metrics.TurnsInFlight.Dec()
		defer close(stream.events)
		o.run(turnCtx, t, stream)
	}()

	return stream, nil
}

func validateTurn(req TurnRequest) (string, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return "", NewInvalidInputError("validate", "user is required")
	}
	if len(req.Messages) == 0 {
		return "", NewInvalidInputError("validate", "messages cannot be empty")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != domain.RoleUser {
		return "", NewInvalidInputError("validate", "last message must come from the user")
	}
	if strings.TrimSpace(last.Content) == "" {
		return "", NewInvalidInputError("validate", "question cannot be empty")
	}
	if len(req.ChatID) > 64 {
		return "", NewInvalidInputError("validate", "chat id is too long")
	}
	return last.Content, nil
}

// resolveChat loads the chat, creating it on first use. A chat owned by
// someone else is reported as not found.
func (o *Orchestrator) resolveChat(ctx context.Context, t *turn) error {
	chat, err := o.history.FindChat(ctx, t.chatID)
	switch {
	case err == nil:
		if chat.UserID != t.userID {
			o.logger.Warn("turn on foreign chat rejected", "chat_id", t.chatID, "user_id", t.userID)
			return NewNotFoundError(t.chatID, t.userID)
		}
		return nil
	case errors.Is(err, chatrepo.ErrChatNotFound):
	default:
		return NewPersistenceError("find_chat", t.chatID, err)
	}

	_, err = o.history.CreateChat(ctx, &domain.Chat{
		ID:       t.chatID,
		UserID:   t.userID,
		Title:    chatTitle(t.question, o.config.TitleMaxRunes),
		Metadata: map[string]any{domain.MetaSharePath: domain.ChatPath(t.chatID)},
	})
	if err != nil {
		return NewPersistenceError("create_chat", t.chatID, err)
	}
	o.logger.Info("chat created", "chat_id", t.chatID, "user_id", t.userID)
	return nil
}

func chatTitle(question string, maxRunes int) string {
	return TruncateText(strings.Join(strings.Fields(question), " "), maxRunes)
}

func (o *Orchestrator) run(ctx context.Context, t *turn, s *Stream) {
	ctx, span := tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("chat.id", t.chatID),
		attribute.String("turn.id", t.id),
	))
	defer span.End()
	defer func() {
		metrics.TurnDuration.Observe(o.now().Sub(t.started).Seconds())
		span.SetAttributes(attribute.String("turn.state", t.state.String()))
	}()

	history := o.loadHistory(ctx, t)
	if o.canceled(ctx, t) || !o.advance(t, StateHistoryLoaded) {
		return
	}

	standalone := o.condense(ctx, t, history)
	if o.canceled(ctx, t) || !o.advance(t, StateCondensed) {
		return
	}

	chunks := o.retrieve(ctx, t, standalone)
	if o.canceled(ctx, t) || !o.advance(t, StateRetrieved) {
		return
	}

	prompt, err := o.profile.FormatAnswer(BuildContext(chunks), FormatHistory(history), SanitizeForPrompt(standalone))
	if err != nil {
		span.RecordError(err)
		o.fail(ctx, t, s, nil, NewConfigError("failed to render answer prompt: "+err.Error()))
		return
	}
	sources := o.sources.ExtractSources(chunks)
	if !o.advance(t, StateGenerating) {
		return
	}

	answer, err := o.generate(ctx, t, s, prompt, sources)
	if o.canceled(ctx, t) {
		return
	}
	if err == nil && strings.TrimSpace(answer) == "" {
		err = NewUpstreamError("generate", "model returned an empty answer", nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.fail(ctx, t, s, sources, err)
		return
	}

	o.persistAnswer(ctx, t, answer, sources)
	if !o.advance(t, StatePersisted) {
		return
	}
	metrics.TurnsTotal.WithLabelValues(metrics.OutcomePersisted).Inc()
	s.emit(ctx, Event{Kind: EventEnd})
}

// loadHistory returns up to HistoryWindow messages before the current
// question. A read failure degrades to an empty history.
func (o *Orchestrator) loadHistory(ctx context.Context, t *turn) []domain.Message {
	k := o.config.HistoryWindow
	if k == 0 {
		return nil
	}
	msgs, err := o.history.ReadLastK(ctx, t.chatID, k+1)
	if err != nil {
		metrics.DegradedSteps.WithLabelValues(metrics.StepHistory).Inc()
		o.logger.Warn("history read failed, continuing without history", "chat_id", t.chatID, "error", err)
		return nil
	}

	history := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == t.userMsg.ID {
			continue
		}
		history = append(history, m)
	}
	if len(history) > k {
		history = history[len(history)-k:]
	}
	return history
}

func (o *Orchestrator) condense(ctx context.Context, t *turn, history []domain.Message) string {
	ctx, span := tracer.Start(ctx, "chat.condense")
	defer span.End()

	cctx, cancel := context.WithTimeout(ctx, o.config.CondenseTimeout)
	defer cancel()

	standalone, err := o.condenser.Condense(cctx, t.question, history)
	if err != nil {
		span.RecordError(err)
		if ctx.Err() == nil {
			metrics.DegradedSteps.WithLabelValues(metrics.StepCondense).Inc()
			o.logger.Warn("condense failed, using raw question", "chat_id", t.chatID, "error", err)
		}
		return t.question
	}
	return standalone
}

func (o *Orchestrator) retrieve(ctx context.Context, t *turn, query string) []domain.Chunk {
	ctx, span := tracer.Start(ctx, "chat.retrieve")
	defer span.End()

	rctx, cancel := context.WithTimeout(ctx, o.config.RetrievalTimeout)
	defer cancel()

	chunks, err := o.retriever.Retrieve(rctx, query, domain.Scope{ChatID: t.chatID, UserID: t.userID}, o.config.RetrievalTopK)
	if err != nil {
		span.RecordError(err)
		if ctx.Err() == nil {
			metrics.DegradedSteps.WithLabelValues(metrics.StepRetrieve).Inc()
			o.logger.Warn("retrieval failed, answering without documents", "chat_id", t.chatID, "error", err)
		}
		chunks = nil
	}
	metrics.RetrievedChunks.Observe(float64(len(chunks)))
	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	return chunks
}

// generate streams deltas to s and returns the full answer. The start
// event is sent with the first delta.
func (o *Orchestrator) generate(ctx context.Context, t *turn, s *Stream, prompt string, sources []string) (string, error) {
	ctx, span := tracer.Start(ctx, "chat.generate")
	defer span.End()

	gctx, cancel := context.WithTimeout(ctx, o.config.GenerateTimeout)
	defer cancel()

	var answer strings.Builder
	for delta, err := range o.generator.Generate(gctx, prompt) {
		if err != nil {
			return answer.String(), err
		}
		if !o.anchor(ctx, t, s, sources) {
			return answer.String(), ctx.Err()
		}
		answer.WriteString(delta)
		if !s.emit(ctx, Event{Kind: EventDelta, Text: delta}) {
			return answer.String(), ctx.Err()
		}
	}
	return answer.String(), nil
}

func (o *Orchestrator) anchor(ctx context.Context, t *turn, s *Stream, sources []string) bool {
	if t.anchored {
		return true
	}
	t.anchored = true
	return s.emit(ctx, Event{
		Kind:          EventStart,
		ChatID:        t.chatID,
		TurnID:        t.id,
		UserMessageID: t.userMsg.ID,
		Sources:       sources,
	})
}

// persistAnswer writes the assistant message on a context detached from
// the caller so a disconnect after the last delta cannot lose it.
func (o *Orchestrator) persistAnswer(ctx context.Context, t *turn, answer string, sources []string) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.PersistTimeout)
	defer cancel()

	now := o.now()
	if !now.After(t.userMsg.CreatedAt) {
		now = t.userMsg.CreatedAt.Add(time.Millisecond)
	}
	if sources == nil {
		sources = []string{}
	}
	msg := &domain.Message{
		ChatID:  t.chatID,
		Role:    domain.RoleAssistant,
		Content: answer,
		Metadata: map[string]any{
			MetaModel:     o.modelName(),
			MetaTimestamp: now.UnixMilli(),
			MetaSources:   sources,
			MetaProfile:   o.profile.Name,
			MetaTurnID:    t.id,
		},
		CreatedAt: now,
	}
	if err := o.history.Append(pctx, msg); err != nil {
		metrics.DegradedSteps.WithLabelValues(metrics.StepPersist).Inc()
		o.logger.Error("failed to persist assistant message", "chat_id", t.chatID, "turn_id", t.id, "error", err)
		return
	}
	o.logger.Info("turn persisted", "chat_id", t.chatID, "turn_id", t.id, "answer_len", len(answer))
}

func (o *Orchestrator) modelName() string {
	if m, ok := o.generator.(interface{ Model() string }); ok {
		return m.Model()
	}
	return o.config.ChatModel
}

// fail reports err in-band as an apology and ends the stream. No assistant
// message is stored.
func (o *Orchestrator) fail(ctx context.Context, t *turn, s *Stream, sources []string, err error) {
	if !o.advance(t, StateFailed) {
		return
	}
	metrics.TurnsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
	o.logger.Error("turn failed", "chat_id", t.chatID, "turn_id", t.id, "error", err)

	kind := KindOf(err)
	if kind == "" || kind == ErrTypeInvalidInput {
		kind = ErrTypeUpstream
	}
	if !o.anchor(ctx, t, s, sources) {
		return
	}
	if !s.emit(ctx, Event{Kind: EventError, ErrorKind: kind, Text: Apology}) {
		return
	}
	s.emit(ctx, Event{Kind: EventEnd})
}

func (o *Orchestrator) canceled(ctx context.Context, t *turn) bool {
	if ctx.Err() == nil {
		return false
	}
	if o.advance(t, StateCanceled) {
		metrics.TurnsTotal.WithLabelValues(metrics.OutcomeCanceled).Inc()
		o.logger.Info("turn canceled", "chat_id", t.chatID, "turn_id", t.id, "state", t.state.String())
	}
	return true
}

func (o *Orchestrator) advance(t *turn, to TurnState) bool {
	from := t.state
	if !CanTransition(from, to) {
		o.logger.Error("illegal turn transition", "chat_id", t.chatID, "from", from.String(), "to", to.String())
		return false
	}
	t.state = to
	if o.observer != nil {
		o.observer(t.chatID, from, to)
	}
	return true
}
