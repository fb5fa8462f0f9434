package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"knowledge-quiz-service/internal/domain"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// PoolRepository loads the question pool (from cache/backing store).
type PoolRepository interface {
	GetPool(ctx context.Context) ([]domain.Question, error)
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions    SessionRepository
	pool        PoolRepository
	sessionOpts []SessionOption
	newID       func() string
}

func NewQuizService(store SessionRepository, pool PoolRepository, opts ...SessionOption) *QuizService {
	return &QuizService{
		sessions:    store,
		pool:        pool,
		sessionOpts: opts,
		newID:       uuid.NewString,
	}
}

// Warm loads the question pool once at startup. A failure is logged once and
// returned; nothing retries it.
func (s *QuizService) Warm(ctx context.Context) (int, error) {
	pool, err := s.loadPool(ctx)
	if err != nil {
		log.Printf("question pool unavailable: %v", err)
		return 0, err
	}
	if len(pool) == 0 {
		log.Printf("question pool loaded but contains no questions")
		return 0, domain.ErrPoolEmpty
	}
	log.Printf("question pool loaded: %d questions", len(pool))
	return len(pool), nil
}

// Open creates a session for a player without starting it, so callers can
// subscribe before the first question is presented.
func (s *QuizService) Open(_ context.Context, playerName string) *Session {
	session := NewSession(s.newID(), playerName, s.sessionOpts...)
	s.sessions.Put(session)
	return session
}

// Start builds a quiz set for the session and presents the first question.
// Calling it again after a result starts a new round.
func (s *QuizService) Start(ctx context.Context, sessionID string) (Presentation, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Presentation{}, domain.ErrSessionNotFound
	}
	pool, err := s.loadPool(ctx)
	if err != nil {
		return Presentation{}, err
	}
	if err := session.Start(pool); err != nil {
		return Presentation{}, err
	}
	return session.Current()
}

// Select records the chosen option for the current question.
func (s *QuizService) Select(_ context.Context, sessionID string, tag domain.OptionTag) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Select(tag)
}

// Confirm answers the current question with the selected option.
func (s *QuizService) Confirm(_ context.Context, sessionID string) (domain.AnswerOutcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerOutcome{}, domain.ErrSessionNotFound
	}
	return session.Confirm()
}

// Answer submits tag directly for the current question.
func (s *QuizService) Answer(_ context.Context, sessionID string, tag domain.OptionTag) (domain.AnswerOutcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerOutcome{}, domain.ErrSessionNotFound
	}
	return session.Answer(tag, false)
}

// Skip defers the current question.
func (s *QuizService) Skip(_ context.Context, sessionID string) (Presentation, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Presentation{}, domain.ErrSessionNotFound
	}
	if err := session.Skip(); err != nil {
		return Presentation{}, err
	}
	return session.Current()
}

// Result returns the final result of a finished session.
func (s *QuizService) Result(_ context.Context, sessionID string) (domain.Result, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Result{}, domain.ErrSessionNotFound
	}
	return session.Result()
}

// Snapshot returns a copy of the session state.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives events for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Event, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Leave stops the session's timers and drops it.
func (s *QuizService) Leave(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

func (s *QuizService) loadPool(ctx context.Context) ([]domain.Question, error) {
	pool, err := s.pool.GetPool(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrDataLoad) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrDataLoad, err)
	}
	return pool, nil
}
