package app

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"knowledge-quiz-service/internal/clock"
	"knowledge-quiz-service/internal/domain"
	"knowledge-quiz-service/internal/quizset"
	"knowledge-quiz-service/internal/scoring"
)

func TestStartPresentsFirstQuestion(t *testing.T) {
	s, _ := newTestSession(t)

	if err := s.Start(testPool(40)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.State() != StateInProgress {
		t.Fatalf("expected in progress, got %s", s.State())
	}
	p, err := s.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if p.Index != 0 || p.Total != domain.QuizSize {
		t.Fatalf("unexpected presentation %+v", p)
	}
	q := s.queue[0]
	if p.QuestionID != q.ID || len(p.Options) != len(q.Options) {
		t.Fatalf("presentation does not match question: %+v vs %+v", p, q)
	}
	for _, o := range p.Options {
		if !q.HasOption(o.Tag) {
			t.Fatalf("presented option %s not in question", o.Tag)
		}
	}
}

func TestStartWithEmptyPool(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.Start(nil); !errors.Is(err, domain.ErrPoolEmpty) {
		t.Fatalf("expected empty pool error, got %v", err)
	}
	if s.State() != StateNotStarted {
		t.Fatalf("expected not started, got %s", s.State())
	}
}

func TestOperationsRequireInProgress(t *testing.T) {
	s, _ := newTestSession(t)

	if err := s.Select(domain.TagF); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("select: expected not in progress, got %v", err)
	}
	if err := s.Skip(); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("skip: expected not in progress, got %v", err)
	}
	if _, err := s.Answer(domain.TagF, false); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("answer: expected not in progress, got %v", err)
	}
	if _, err := s.Result(); !errors.Is(err, domain.ErrNotFinished) {
		t.Fatalf("result: expected not finished, got %v", err)
	}
}

func TestFirstInstantCorrectAnswer(t *testing.T) {
	s, _ := newTestSession(t)
	mustStart(t, s, testPool(40))

	if err := s.Select(s.queue[0].Answer); err != nil {
		t.Fatalf("select: %v", err)
	}
	out, err := s.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	want := scoring.BasePoints() * 1.0 * 1.05
	if !out.Correct || math.Abs(out.RawPoints-want) > 1e-9 {
		t.Fatalf("expected %v raw points, got %+v", want, out)
	}
	snap := s.Snapshot()
	if snap.Index != 1 || snap.Score.Streak != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSelectValidation(t *testing.T) {
	s, _ := newTestSession(t)
	mustStart(t, s, []domain.Question{trueFalse("tf1", domain.AreaCivs, domain.DifficultyEasy)})

	if err := s.Select(domain.TagH); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected option not found, got %v", err)
	}
	if _, err := s.Confirm(); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected no selection, got %v", err)
	}
}

func TestTimeoutAnswersWrongAndAdvancesOnce(t *testing.T) {
	s, clk := newTestSession(t)
	mustStart(t, s, testPool(40))
	events, cancel := s.Subscribe()
	defer cancel()

	if _, err := s.Answer(s.queue[0].Answer, false); err != nil {
		t.Fatalf("answer: %v", err)
	}
	clk.Advance(domain.TimeLimit)

	snap := s.Snapshot()
	if snap.Index != 2 {
		t.Fatalf("expected index 2 after timeout, got %d", snap.Index)
	}
	if snap.Score.Streak != 0 {
		t.Fatalf("expected streak reset, got %d", snap.Score.Streak)
	}

	var timedOut *domain.AnswerOutcome
	for _, ev := range drain(events) {
		if ev.Kind == EventAnswered && ev.Answer.TimedOut {
			timedOut = ev.Answer
		}
	}
	if timedOut == nil || timedOut.Correct {
		t.Fatalf("expected a wrong timed out answer, got %+v", timedOut)
	}

	out, err := s.Answer("", true)
	if err != nil {
		t.Fatalf("explicit timeout: %v", err)
	}
	if out.Correct || s.Snapshot().Index != 3 || s.Snapshot().Score.Streak != 0 {
		t.Fatalf("explicit timeout must be wrong and advance by one: %+v", out)
	}
}

func TestCountdownEvents(t *testing.T) {
	s, clk := newTestSession(t)
	events, cancel := s.Subscribe()
	defer cancel()
	mustStart(t, s, testPool(40))

	clk.Advance(3 * time.Second)

	var ratios []float64
	for _, ev := range drain(events) {
		if ev.Kind == EventCountdown {
			ratios = append(ratios, ev.Ratio)
		}
	}
	if len(ratios) != 3 {
		t.Fatalf("expected 3 countdown ticks, got %v", ratios)
	}
	if math.Abs(ratios[2]-0.9) > 1e-9 {
		t.Fatalf("expected ratio 0.9 after 3s, got %v", ratios[2])
	}
}

func TestSkipDefersQuestionAndCarriesTime(t *testing.T) {
	s, clk := newTestSession(t, WithBuilderOptions(quizset.WithSize(2)))
	mustStart(t, s, testPool(40))
	first, second := s.queue[0].ID, s.queue[1].ID

	clk.Advance(5 * time.Second)
	if err := s.Skip(); err != nil {
		t.Fatalf("skip: %v", err)
	}
	p, _ := s.Current()
	if p.Index != 0 || p.QuestionID != second {
		t.Fatalf("expected %s at index 0, got %+v", second, p)
	}
	if ids := s.Queue(); ids[len(ids)-1] != first {
		t.Fatalf("expected skipped question at the end, got %v", ids)
	}

	clk.Advance(2 * time.Second)
	if err := s.Skip(); err != nil {
		t.Fatalf("skip: %v", err)
	}
	p, _ = s.Current()
	if p.QuestionID != first || p.Carry != 5*time.Second {
		t.Fatalf("expected %s re-presented with 5s carry, got %+v", first, p)
	}

	clk.Advance(24 * time.Second)
	if s.Snapshot().Index != 0 {
		t.Fatalf("question timed out before its carried limit")
	}
	clk.Advance(time.Second)
	snap := s.Snapshot()
	if snap.Index != 1 {
		t.Fatalf("expected carried question to time out, index %d", snap.Index)
	}
	p, _ = s.Current()
	if p.QuestionID != second || p.Carry != 2*time.Second {
		t.Fatalf("expected %s with 2s carry, got %+v", second, p)
	}
}

func TestAnsweredQuestionCannotTimeOut(t *testing.T) {
	s, clk := newTestSession(t)
	mustStart(t, s, testPool(40))

	clk.Advance(29 * time.Second)
	if _, err := s.Answer(s.queue[0].Answer, false); err != nil {
		t.Fatalf("answer: %v", err)
	}
	clk.Advance(2 * time.Second)

	snap := s.Snapshot()
	if snap.Index != 1 {
		t.Fatalf("stale timeout advanced the session to %d", snap.Index)
	}
	if snap.Score.Streak != 1 {
		t.Fatalf("expected streak 1, got %d", snap.Score.Streak)
	}
}

func TestFinishingThenResult(t *testing.T) {
	s, clk := newTestSession(t, WithBuilderOptions(quizset.WithSize(2)), WithShareURL("https://quiz.example"))
	events, cancel := s.Subscribe()
	defer cancel()
	mustStart(t, s, testPool(40))

	for i := 0; i < 2; i++ {
		if _, err := s.Answer(s.queue[i].Answer, false); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
	if s.State() != StateFinishing {
		t.Fatalf("expected finishing, got %s", s.State())
	}
	if err := s.Skip(); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("expected not in progress while finishing, got %v", err)
	}
	if _, err := s.Result(); !errors.Is(err, domain.ErrNotFinished) {
		t.Fatalf("expected not finished, got %v", err)
	}

	clk.Advance(domain.FinishDuration - time.Millisecond)
	if s.State() != StateFinishing {
		t.Fatalf("finished early")
	}
	clk.Advance(time.Millisecond)
	if s.State() != StateResult {
		t.Fatalf("expected result, got %s", s.State())
	}

	res, err := s.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Score != domain.PointsMax || res.Badge.Key != "conqueror" {
		t.Fatalf("expected clamped perfect score, got %+v", res)
	}
	if res.PlayerName != "Tester" || res.Questions != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ShareText == "" {
		t.Fatalf("expected share text")
	}

	var sawResult bool
	for _, ev := range drain(events) {
		if ev.Kind == EventResult && ev.Result.Score == res.Score {
			sawResult = true
		}
	}
	if !sawResult {
		t.Fatalf("expected result event")
	}
	if _, err := s.Answer(domain.TagF, false); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("expected read-only session, got %v", err)
	}
}

func TestStartAgainResetsState(t *testing.T) {
	s, clk := newTestSession(t, WithBuilderOptions(quizset.WithSize(1)))
	mustStart(t, s, testPool(10))
	if _, err := s.Answer(s.queue[0].Answer, false); err != nil {
		t.Fatalf("answer: %v", err)
	}
	clk.Advance(domain.FinishDuration)
	if s.State() != StateResult {
		t.Fatalf("expected result")
	}

	mustStart(t, s, testPool(10))
	snap := s.Snapshot()
	if snap.State != StateInProgress || snap.Index != 0 || snap.Score.RawPoints != 0 || snap.Score.Streak != 0 {
		t.Fatalf("expected reset session, got %+v", snap)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	s, clk := newTestSession(t)
	events, _ := s.Subscribe()
	mustStart(t, s, testPool(40))

	s.Close()
	if clk.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", clk.Pending())
	}
	drain(events)
	if _, ok := <-events; ok {
		t.Fatalf("expected closed subscription")
	}
	if err := s.Start(testPool(40)); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected closed session error, got %v", err)
	}
}

func TestBlankPlayerNameDefaults(t *testing.T) {
	s := NewSession("s1", "   ")
	if s.PlayerName() != domain.DefaultPlayerName {
		t.Fatalf("expected default name, got %q", s.PlayerName())
	}
}

func newTestSession(t *testing.T, opts ...SessionOption) (*Session, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	base := []SessionOption{
		WithClock(clk),
		WithRand(rand.New(rand.NewSource(1))),
		WithTickInterval(time.Second),
	}
	return NewSession("s1", "Tester", append(base, opts...)...), clk
}

func mustStart(t *testing.T, s *Session, pool []domain.Question) {
	t.Helper()
	if err := s.Start(pool); err != nil {
		t.Fatalf("start: %v", err)
	}
}

// drain returns the events currently buffered on ch without blocking.
func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func testPool(n int) []domain.Question {
	pool := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		area := domain.Areas[i%len(domain.Areas)]
		diff := domain.Difficulties[(i/len(domain.Areas))%len(domain.Difficulties)]
		if i%4 == 3 {
			pool = append(pool, trueFalse(fmt.Sprintf("q%02d", i), area, diff))
			continue
		}
		pool = append(pool, domain.Question{
			ID:     fmt.Sprintf("q%02d", i),
			Type:   domain.TypeMultipleChoice,
			Answer: domain.TagH,
			Prompt: fmt.Sprintf("Question %d?", i),
			Options: []domain.Option{
				{Tag: domain.TagF, Text: "one"},
				{Tag: domain.TagG, Text: "two"},
				{Tag: domain.TagH, Text: "three"},
				{Tag: domain.TagI, Text: "four"},
			},
			Area:       area,
			Difficulty: diff,
		})
	}
	return pool
}

func trueFalse(id string, area domain.Area, diff domain.Difficulty) domain.Question {
	return domain.Question{
		ID:         id,
		Type:       domain.TypeTrueFalse,
		Answer:     domain.TagF,
		Prompt:     "Is " + id + " true?",
		Options:    []domain.Option{{Tag: domain.TagF, Text: "True"}, {Tag: domain.TagG, Text: "False"}},
		Area:       area,
		Difficulty: diff,
	}
}
