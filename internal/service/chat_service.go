package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"circuitflow/internal/canvas"
	"circuitflow/internal/chat"
	"circuitflow/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Chat Service — canned assistant session
// ─────────────────────────────────────────────────────────────

// Dispatcher applies canvas actions. Implemented by CanvasService.
type Dispatcher interface {
	Dispatch(ctx context.Context, a canvas.Action) canvas.State
}

// ChatView is the chat panel state.
type ChatView struct {
	Messages     []domain.ChatMessage `json:"messages"`
	Typing       bool                 `json:"typing"`
	QuickActions []string             `json:"quickActions"`
}

// Suggestion is published when a reply preselects a palette kind.
type Suggestion struct {
	BlockType domain.BlockType `json:"blockType"`
}

// ChatService holds one chat session. At most one reply is pending at a
// time; it fires on a timer owned by the session and is cancelled by Close.
type ChatService struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
	typing   bool
	pending  *time.Timer
	gen      uint64
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	store    domain.ChatStore
	canvas   Dispatcher
	emitter  EventEmitter
	logger   *slog.Logger
	minDelay time.Duration
	maxDelay time.Duration
}

// ChatOptions configures a ChatService. Store and Canvas may be nil.
type ChatOptions struct {
	Store    domain.ChatStore
	Canvas   Dispatcher
	Emitter  EventEmitter
	Logger   *slog.Logger
	MinDelay time.Duration
	MaxDelay time.Duration
}

// NewChatService starts a session bound to ctx. History is loaded from the
// store; an empty history is seeded with the welcome message.
func NewChatService(ctx context.Context, opts ChatOptions) *ChatService {
	s := &ChatService{
		store:    opts.Store,
		canvas:   opts.Canvas,
		emitter:  opts.Emitter,
		logger:   opts.Logger,
		minDelay: opts.MinDelay,
		maxDelay: opts.MaxDelay,
	}
	if s.emitter == nil {
		s.emitter = NopEmitter{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.minDelay <= 0 {
		s.minDelay = time.Second
	}
	if s.maxDelay < s.minDelay {
		s.maxDelay = s.minDelay
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.store != nil {
		msgs, err := s.store.ListMessages(0)
		if err != nil {
			s.logger.Warn("load chat history", "err", err)
		}
		s.messages = msgs
	}
	if len(s.messages) == 0 {
		s.seedWelcome()
	}
	return s
}

func (s *ChatService) seedWelcome() {
	m := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.ChatRoleAssistant,
		Content:   chat.Welcome,
		Timestamp: time.Now(),
	}
	s.messages = []domain.ChatMessage{m}
	s.persist(&m)
}

func (s *ChatService) persist(m *domain.ChatMessage) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendMessage(m); err != nil {
		s.logger.Warn("persist chat message", "err", err)
	}
}

// View returns the current messages and typing flag.
func (s *ChatService) View() ChatView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ChatView{
		Messages:     append([]domain.ChatMessage(nil), s.messages...),
		Typing:       s.typing,
		QuickActions: append([]string(nil), chat.QuickActions...),
	}
}

// Send posts user text and schedules the assistant reply. It returns false
// for blank input, while a reply is pending, or after Close.
func (s *ChatService) Send(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	s.mu.Lock()
	if s.typing || s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	m := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.ChatRoleUser,
		Content:   text,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, m)
	s.typing = true
	s.persist(&m)

	gen := s.gen
	s.wg.Add(1)
	s.pending = time.AfterFunc(s.delay(), func() {
		defer s.wg.Done()
		s.reply(text, gen)
	})
	s.mu.Unlock()

	s.emitter.Emit(s.ctx, EventChatMessage, m)
	return true
}

// SendQuickAction sends the canned prompt at index i.
func (s *ChatService) SendQuickAction(i int) bool {
	if i < 0 || i >= len(chat.QuickActions) {
		return false
	}
	return s.Send(chat.QuickActions[i])
}

// delay is uniform in [minDelay, maxDelay].
func (s *ChatService) delay() time.Duration {
	span := int64(s.maxDelay - s.minDelay)
	if span <= 0 {
		return s.minDelay
	}
	return s.minDelay + time.Duration(rand.Int64N(span+1))
}

func (s *ChatService) reply(input string, gen uint64) {
	s.mu.Lock()
	if s.ctx.Err() != nil || s.gen != gen {
		s.mu.Unlock()
		return
	}
	text := chat.Respond(input)
	m := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.ChatRoleAssistant,
		Content:   text,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, m)
	s.typing = false
	s.pending = nil
	s.persist(&m)
	s.mu.Unlock()

	s.emitter.Emit(s.ctx, EventChatReply, m)

	if t, ok := chat.Suggest(input, text); ok {
		if s.canvas != nil {
			s.canvas.Dispatch(s.ctx, canvas.Select{Type: t})
		}
		s.emitter.Emit(s.ctx, EventChatSuggestion, Suggestion{BlockType: t})
	}
}

// Reset clears the history back to the welcome message. A pending reply is
// dropped.
func (s *ChatService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil && s.pending.Stop() {
		s.wg.Done()
	}
	s.pending = nil
	s.typing = false
	s.gen++
	if s.store != nil {
		if err := s.store.ClearMessages(); err != nil {
			return err
		}
	}
	s.seedWelcome()
	return nil
}

// Close cancels any pending reply and waits for an in-flight callback.
// No reply is delivered after Close returns.
func (s *ChatService) Close() {
	s.mu.Lock()
	s.cancel()
	if s.pending != nil && s.pending.Stop() {
		s.wg.Done()
	}
	s.pending = nil
	s.typing = false
	s.mu.Unlock()
	s.wg.Wait()
}
