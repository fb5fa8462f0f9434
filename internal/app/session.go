package app

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"knowledge-quiz-service/internal/clock"
	"knowledge-quiz-service/internal/domain"
	"knowledge-quiz-service/internal/quizset"
	"knowledge-quiz-service/internal/scoring"
	"knowledge-quiz-service/internal/share"
)

// DefaultTickInterval is how often countdown and finishing progress are reported.
const DefaultTickInterval = 100 * time.Millisecond

const subscriberBuffer = 32

// State is the phase of a quiz session.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateFinishing
	StateResult
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateFinishing:
		return "finishing"
	case StateResult:
		return "result"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// EventKind names a session event.
type EventKind string

const (
	EventQuestion  EventKind = "question"
	EventCountdown EventKind = "countdown"
	EventAnswered  EventKind = "answered"
	EventFinishing EventKind = "finishing"
	EventResult    EventKind = "result"
)

// Presentation is what a renderer shows for the current question. Options are
// shuffled per presentation; tags still identify the spreadsheet columns.
type Presentation struct {
	Index      int                 `json:"index"`
	Total      int                 `json:"total"`
	QuestionID string              `json:"questionId"`
	Prompt     string              `json:"prompt"`
	Type       domain.QuestionType `json:"type"`
	Area       domain.Area         `json:"area"`
	Difficulty domain.Difficulty   `json:"difficulty"`
	Options    []domain.Option     `json:"options"`
	Carry      time.Duration       `json:"carry"`
}

// Event is pushed to session subscribers. Ratio is the remaining-time ratio for
// question and countdown events and the transition progress for finishing events.
type Event struct {
	Kind     EventKind             `json:"kind"`
	Question *Presentation         `json:"question,omitempty"`
	Ratio    float64               `json:"ratio"`
	Answer   *domain.AnswerOutcome `json:"answer,omitempty"`
	Result   *domain.Result        `json:"result,omitempty"`
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	ID           string            `json:"id"`
	PlayerName   string            `json:"playerName"`
	State        State             `json:"state"`
	Index        int               `json:"index"`
	Total        int               `json:"total"`
	Selected     domain.OptionTag  `json:"selected,omitempty"`
	Score        domain.ScoreState `json:"score"`
	MaxRawPoints float64           `json:"maxRawPoints"`
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock sets the clock driving countdowns.
func WithClock(c clock.Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

// WithRand sets the random source for quiz building and option shuffles.
func WithRand(r quizset.Rand) SessionOption {
	return func(s *Session) { s.rnd = r }
}

// WithTickInterval sets how often progress events are emitted.
func WithTickInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithBuilderOptions passes options to the quiz set builder.
func WithBuilderOptions(opts ...quizset.Option) SessionOption {
	return func(s *Session) { s.builderOpts = append(s.builderOpts, opts...) }
}

// WithShareURL sets the page URL embedded in share text.
func WithShareURL(url string) SessionOption {
	return func(s *Session) { s.shareURL = url }
}

// Session runs one player's quiz: NotStarted -> InProgress -> Finishing -> Result.
// All transitions happen under mu; timer callbacks carry the generation they were
// scheduled for and are ignored once a transition has moved past it.
type Session struct {
	id          string
	playerName  string
	createdAt   time.Time
	clock       clock.Clock
	rnd         quizset.Rand
	tick        time.Duration
	builderOpts []quizset.Option
	shareURL    string

	mu          sync.Mutex
	state       State
	queue       []domain.Question
	index       int
	selected    domain.OptionTag
	shownAt     time.Time
	score       domain.ScoreState
	maxRaw      float64
	current     Presentation
	gen         uint64
	timer       clock.Timer
	finishStart time.Time
	result      *domain.Result
	closed      bool
	subscribers map[chan Event]struct{}
}

// NewSession creates a session that has not started yet.
func NewSession(id, playerName string, opts ...SessionOption) *Session {
	name := strings.TrimSpace(playerName)
	if name == "" {
		name = domain.DefaultPlayerName
	}
	s := &Session{
		id:          id,
		playerName:  name,
		clock:       clock.Real(),
		tick:        DefaultTickInterval,
		score:       domain.NewScoreState(),
		maxRaw:      1,
		subscribers: make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(s.clock.Now().UnixNano()))
	}
	s.createdAt = s.clock.Now()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) PlayerName() string { return s.playerName }

// Start builds a fresh quiz set from pool, resets all counters and presents the
// first question. It may be called again after a result to play another round.
func (s *Session) Start(pool []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionNotFound
	}

	set := quizset.New(s.rnd, s.builderOpts...).Build(pool)
	if len(set.Questions) == 0 {
		return domain.ErrPoolEmpty
	}

	s.stopTimerLocked()
	s.queue = set.Questions
	s.maxRaw = set.MaxRawPoints
	s.index = 0
	s.selected = ""
	s.score = domain.NewScoreState()
	s.result = nil
	s.state = StateInProgress
	s.presentLocked()
	return nil
}

// Current returns the presentation of the current question.
func (s *Session) Current() (Presentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return Presentation{}, domain.ErrNotInProgress
	}
	return s.current, nil
}

// Select marks tag as the chosen option of the current question.
func (s *Session) Select(tag domain.OptionTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return domain.ErrNotInProgress
	}
	if !s.queue[s.index].HasOption(tag) {
		return domain.ErrOptionNotFound
	}
	s.selected = tag
	return nil
}

// Confirm answers the current question with the selected option.
func (s *Session) Confirm() (domain.AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return domain.AnswerOutcome{}, domain.ErrNotInProgress
	}
	if s.selected == "" {
		return domain.AnswerOutcome{}, domain.ErrNoSelection
	}
	return s.answerLocked(s.selected, false), nil
}

// Answer scores the current question and advances. An empty tag or timedOut
// always counts as wrong.
func (s *Session) Answer(tag domain.OptionTag, timedOut bool) (domain.AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return domain.AnswerOutcome{}, domain.ErrNotInProgress
	}
	return s.answerLocked(tag, timedOut), nil
}

// Skip defers the current question to the end of the remaining queue, keeping
// the time already spent on it. Index, streak and score are unchanged.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return domain.ErrNotInProgress
	}

	q := s.queue[s.index]
	q.Carry += s.clock.Now().Sub(s.shownAt)
	s.stopTimerLocked()

	queue := make([]domain.Question, 0, len(s.queue))
	queue = append(queue, s.queue[:s.index]...)
	queue = append(queue, s.queue[s.index+1:]...)
	s.queue = append(queue, q)

	s.presentLocked()
	return nil
}

// Result returns the final result once the session has finished.
func (s *Session) Result() (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateResult || s.result == nil {
		return domain.Result{}, domain.ErrNotFinished
	}
	res := *s.result
	res.Stats = res.Stats.Clone()
	return res, nil
}

// State reports the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	score := s.score
	score.Stats = score.Stats.Clone()
	return Snapshot{
		ID:           s.id,
		PlayerName:   s.playerName,
		State:        s.state,
		Index:        s.index,
		Total:        len(s.queue),
		Selected:     s.selected,
		Score:        score,
		MaxRawPoints: s.maxRaw,
	}
}

// Queue returns the ids of the quiz set in current order.
func (s *Session) Queue() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.queue))
	for i, q := range s.queue {
		ids[i] = q.ID
	}
	return ids
}

// Subscribe returns a channel of session events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	switch s.state {
	case StateInProgress:
		p := s.current
		ch <- Event{Kind: EventQuestion, Question: &p, Ratio: countdownRatio(s.elapsedLocked())}
	case StateResult:
		res := *s.result
		ch <- Event{Kind: EventResult, Ratio: 1, Result: &res}
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close cancels pending timers and ends every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimerLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) presentLocked() {
	q := s.queue[s.index]
	s.selected = ""
	s.shownAt = s.clock.Now()
	s.gen++
	s.current = Presentation{
		Index:      s.index,
		Total:      len(s.queue),
		QuestionID: q.ID,
		Prompt:     q.Prompt,
		Type:       q.Type,
		Area:       q.Area,
		Difficulty: q.Difficulty,
		Options:    quizset.Shuffle(s.rnd, q.Options),
		Carry:      q.Carry,
	}
	p := s.current
	s.broadcastLocked(Event{Kind: EventQuestion, Question: &p, Ratio: countdownRatio(q.Carry)})
	s.scheduleCountdownLocked(s.gen)
}

func (s *Session) scheduleCountdownLocked(gen uint64) {
	delay := s.tick
	if remaining := domain.TimeLimit - s.elapsedLocked(); remaining < delay {
		delay = remaining
	}
	if delay < 0 {
		delay = 0
	}
	s.timer = s.clock.AfterFunc(delay, func() { s.onCountdown(gen) })
}

func (s *Session) onCountdown(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != StateInProgress {
		return
	}
	s.timer = nil

	elapsed := s.elapsedLocked()
	if elapsed >= domain.TimeLimit {
		s.answerLocked("", true)
		return
	}
	s.notifyLocked(Event{Kind: EventCountdown, Ratio: countdownRatio(elapsed)})
	s.scheduleCountdownLocked(gen)
}

func (s *Session) answerLocked(tag domain.OptionTag, timedOut bool) domain.AnswerOutcome {
	elapsed := s.elapsedLocked()
	s.stopTimerLocked()

	q := &s.queue[s.index]
	out := scoring.Apply(&s.score, *q, tag, timedOut, elapsed)
	q.Carry = elapsed
	q.Answered = true
	s.index++

	ev := out
	s.broadcastLocked(Event{Kind: EventAnswered, Answer: &ev})

	if s.index >= len(s.queue) {
		s.beginFinishingLocked()
	} else {
		s.presentLocked()
	}
	return out
}

func (s *Session) beginFinishingLocked() {
	s.state = StateFinishing
	s.selected = ""
	s.finishStart = s.clock.Now()
	s.gen++
	s.broadcastLocked(Event{Kind: EventFinishing, Ratio: 0})
	s.scheduleFinishLocked(s.gen)
}

func (s *Session) scheduleFinishLocked(gen uint64) {
	delay := s.tick
	if remaining := domain.FinishDuration - s.clock.Now().Sub(s.finishStart); remaining < delay {
		delay = remaining
	}
	if delay < 0 {
		delay = 0
	}
	s.timer = s.clock.AfterFunc(delay, func() { s.onFinishTick(gen) })
}

func (s *Session) onFinishTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != StateFinishing {
		return
	}
	s.timer = nil

	progress := float64(s.clock.Now().Sub(s.finishStart)) / float64(domain.FinishDuration)
	if progress >= 1 {
		s.completeLocked()
		return
	}
	s.notifyLocked(Event{Kind: EventFinishing, Ratio: progress})
	s.scheduleFinishLocked(gen)
}

func (s *Session) completeLocked() {
	score := scoring.FinalScore(s.score.RawPoints, s.maxRaw)
	res := domain.Result{
		SessionID:    s.id,
		PlayerName:   s.playerName,
		Score:        score,
		Badge:        scoring.BadgeFor(score),
		RawPoints:    s.score.RawPoints,
		MaxRawPoints: s.maxRaw,
		Questions:    len(s.queue),
		Stats:        s.score.Stats.Clone(),
		ShareText:    share.Text(score, s.shareURL),
	}
	s.result = &res
	s.state = StateResult

	ev := res
	ev.Stats = res.Stats.Clone()
	s.broadcastLocked(Event{Kind: EventResult, Ratio: 1, Result: &ev})
}

func (s *Session) elapsedLocked() time.Duration {
	return s.queue[s.index].Carry + s.clock.Now().Sub(s.shownAt)
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// broadcastLocked delivers ev to every subscriber, dropping a subscriber's oldest
// pending event when its buffer is full.
func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// notifyLocked delivers progress ticks only to subscribers with room for them.
func (s *Session) notifyLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func countdownRatio(elapsed time.Duration) float64 {
	r := float64(domain.TimeLimit-elapsed) / float64(domain.TimeLimit)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
