package chat

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"chat-relay-backend/internal/ai"
)

const systemPreamble = "You are a helpful assistant."

// Stream event types, mirrored in the SSE payloads.
const (
	EventSession = "session"
	EventMessage = "message"
	EventError   = "error"
	EventDone    = "done"
)

type ChatRequest struct {
	Model       string
	Content     string
	History     []ai.Message
	Role        string
	Temperature float64
	MaxTokens   int
	UserID      uint64
	SessionID   *uint64
}

type StreamEvent struct {
	Type    string
	Session *Session
	Content string
	Err     string
}

// Resolution reports which session a request was attached to and whether it
// was created by this request.
type Resolution struct {
	Session *Session
	Created bool
}

// TurnEvent is published after a turn pair is persisted.
type TurnEvent struct {
	SessionID   uint64 `json:"session_id"`
	UserID      uint64 `json:"user_id"`
	Model       string `json:"model"`
	UserContent string `json:"user_content"`
}

type TurnPublisher interface {
	PublishTurn(ctx context.Context, ev TurnEvent) error
}

type Service struct {
	repo         *Repo
	registry     *ai.Registry
	providerName string
	locker       UserLocker
	publisher    TurnPublisher // optional
}

func NewService(repo *Repo, registry *ai.Registry, providerName string, locker UserLocker, publisher TurnPublisher) *Service {
	if providerName == "" {
		providerName = "openai"
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &Service{
		repo:         repo,
		registry:     registry,
		providerName: providerName,
		locker:       locker,
		publisher:    publisher,
	}
}

// ResolveSession attaches the request to a session. Without an explicit id it
// takes the per-user lock, deactivates the user's active sessions and creates
// a fresh active one; with an explicit id it only verifies ownership.
func (s *Service) ResolveSession(ctx context.Context, userID uint64, sessionID *uint64) (*Resolution, error) {
	if sessionID != nil {
		sess, err := s.repo.GetSession(ctx, *sessionID)
		if err != nil {
			return nil, err
		}
		if sess.UserID != userID {
			return nil, gorm.ErrRecordNotFound
		}
		return &Resolution{Session: sess}, nil
	}

	release, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.repo.SwitchSession(ctx, userID, DefaultSessionName)
	if err != nil {
		return nil, err
	}
	return &Resolution{Session: sess, Created: true}, nil
}

// ErrStreamingUnsupported reports a configured provider without a streaming
// implementation.
var ErrStreamingUnsupported = errors.New("provider does not support streaming")

// PreparedChat is a chat request that passed session resolution and provider
// construction and is ready to stream.
type PreparedChat struct {
	svc *Service
	req ChatRequest
	res *Resolution
	sp  ai.StreamProvider
}

// PrepareChat runs everything that must fail as a plain request failure
// before any stream is opened: session resolution and provider construction.
func (s *Service) PrepareChat(ctx context.Context, req ChatRequest) (*PreparedChat, error) {
	res, err := s.ResolveSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}

	provider, err := s.registry.Get(ctx, s.providerName, req.Model)
	if err != nil {
		return nil, err
	}
	sp, ok := provider.(ai.StreamProvider)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	return &PreparedChat{svc: s, req: req, res: res, sp: sp}, nil
}

// Stream relays provider chunks as events and persists the accumulated turn
// when the stream ends on any path. The returned channel closes once the
// stream is finished.
func (p *PreparedChat) Stream(ctx context.Context) <-chan StreamEvent {
	s, req, res := p.svc, p.req, p.res
	events := make(chan StreamEvent, 16)

	go func() {
		defer close(events)

		if res.Created {
			if !emit(ctx, events, StreamEvent{Type: EventSession, Session: res.Session}) {
				return
			}
		}

		msgs := make([]ai.Message, 0, len(req.History)+1)
		msgs = append(msgs, ai.Message{Role: "system", Content: systemPreamble})
		msgs = append(msgs, req.History...)

		opts := ai.GenOptions{Temperature: req.Temperature, MaxTokens: req.MaxTokens}
		chunks, errs := p.sp.StreamChat(ctx, opts, msgs)

		var b strings.Builder
		streamErr := func() error {
			// Guaranteed finalizer: the accumulated turn is persisted no
			// matter how the relay exits, including caller disconnect, and
			// before the terminal event goes out.
			defer func() {
				s.finalizeTurn(context.WithoutCancel(ctx), req, res.Session.ID, b.String())
			}()

			relaying := true
			for c := range chunks {
				if c == "" {
					continue
				}
				b.WriteString(c)
				if relaying && !emit(ctx, events, StreamEvent{Type: EventMessage, Content: c}) {
					// caller is gone; keep draining so the accumulator is complete
					relaying = false
				}
			}

			// errs is buffered and closed with chunks, so this never blocks.
			return <-errs
		}()

		if streamErr != nil {
			log.Printf("[Stream] upstream stream failed session_id=%d err=%v", res.Session.ID, streamErr)
			emit(ctx, events, StreamEvent{Type: EventError, Err: "generation failed, try again later"})
			return
		}

		emit(ctx, events, StreamEvent{Type: EventDone})
	}()

	return events
}

// emit sends an event unless the caller has gone away.
func emit(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Service) finalizeTurn(ctx context.Context, req ChatRequest, sessionID uint64, reply string) {
	if reply == "" {
		return
	}

	role := req.Role
	if role == "" {
		role = "user"
	}

	userMsg := &Message{
		SessionID: sessionID,
		UserID:    req.UserID,
		Model:     req.Model,
		Role:      role,
		Content:   req.Content,
	}
	assistantMsg := &Message{
		SessionID: sessionID,
		UserID:    req.UserID,
		Model:     req.Model,
		Role:      "assistant",
		Content:   reply,
	}
	if err := s.repo.SaveTurn(ctx, userMsg, assistantMsg); err != nil {
		log.Printf("[finalizeTurn] save turn failed session_id=%d user_id=%d err=%v", sessionID, req.UserID, err)
		return
	}

	if s.publisher == nil {
		return
	}
	ev := TurnEvent{
		SessionID:   sessionID,
		UserID:      req.UserID,
		Model:       req.Model,
		UserContent: req.Content,
	}
	if err := s.publisher.PublishTurn(ctx, ev); err != nil {
		log.Printf("[finalizeTurn] publish turn failed session_id=%d err=%v", sessionID, err)
	}
}

const (
	titlePrompt   = "Write a short title, at most six words, for a conversation that opens with the user message below. Reply with the title only."
	maxTitleRunes = 64
)

// TitleSession names a default-titled session after its first turn. The
// configured provider drafts the title; if it is unavailable or fails, the
// first user message is used as-is.
func (s *Service) TitleSession(ctx context.Context, ev TurnEvent) error {
	content := strings.TrimSpace(ev.UserContent)
	if content == "" {
		msg, err := s.repo.FirstUserMessage(ctx, ev.SessionID)
		if err != nil {
			return err
		}
		content = strings.TrimSpace(msg.Content)
	}
	if content == "" {
		return nil
	}

	var title string
	if provider, err := s.registry.Get(ctx, s.providerName, ev.Model); err == nil {
		opts := ai.GenOptions{Temperature: 0.2, MaxTokens: 16}
		msgs := []ai.Message{
			{Role: "system", Content: titlePrompt},
			{Role: "user", Content: content},
		}
		drafted, err := provider.Chat(ctx, opts, msgs)
		if err != nil {
			log.Printf("[TitleSession] provider title failed session_id=%d err=%v", ev.SessionID, err)
		} else {
			title = strings.Trim(strings.TrimSpace(drafted), `"`)
		}
	}
	if title == "" {
		title = content
	}
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}

	return s.repo.RenameSessionIfDefault(ctx, ev.SessionID, title)
}

// Administrative operations.

func (s *Service) CreateSession(ctx context.Context, sess *Session) error {
	return s.repo.CreateSession(ctx, sess)
}

func (s *Service) ListSessions(ctx context.Context, userID uint64) ([]Session, error) {
	return s.repo.ListSessions(ctx, userID)
}

func (s *Service) DeleteSession(ctx context.Context, id uint64) error {
	return s.repo.DeleteSession(ctx, id)
}

func (s *Service) ListMessages(ctx context.Context, sessionID uint64, limit int, beforeID uint64) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, sessionID, limit, beforeID)
}

func (s *Service) CreateModelConfig(ctx context.Context, m *ModelConfig) error {
	return s.repo.CreateModelConfig(ctx, m)
}

func (s *Service) ListModelConfigs(ctx context.Context) ([]ModelConfig, error) {
	return s.repo.ListModelConfigs(ctx)
}

func (s *Service) ToggleModelActive(ctx context.Context, id uint64) (*ModelConfig, error) {
	return s.repo.ToggleModelActive(ctx, id)
}
