// Package scoring turns answer timing and streaks into points and normalizes
// the session total into the 0..PointsMax range.
package scoring

import (
	"math"
	"time"

	"knowledge-quiz-service/internal/domain"
)

const (
	fullCreditSeconds = 7.0
	floorStartSeconds = 25.0
	floorFactor       = 0.2

	liveStreakCap  = 1.25
	liveStreakRate = 0.05

	// The max-score simulation uses a gentler curve than live play; the slack is
	// part of the score distribution and must not be unified with the live curve.
	maxStreakCap  = 1.2
	maxStreakRate = 0.03
)

// BasePoints is the per-question share of the point budget.
func BasePoints() float64 {
	return float64(domain.PointsMax) / float64(domain.QuizSize)
}

// TimeFactor maps total elapsed time on a question to a credit factor in [0, 1].
func TimeFactor(elapsed time.Duration) float64 {
	t := elapsed.Seconds()
	switch {
	case t <= fullCreditSeconds:
		return 1
	case t < floorStartSeconds:
		return 1 - (t-fullCreditSeconds)/(floorStartSeconds-fullCreditSeconds)*(1-floorFactor)
	case t < domain.TimeLimit.Seconds():
		return floorFactor
	default:
		return 0
	}
}

// LiveStreakMultiplier is applied to a correct answer once the streak includes it.
func LiveStreakMultiplier(streak int) float64 {
	return math.Min(liveStreakCap, 1+liveStreakRate*float64(streak))
}

// MaxStreakMultiplier is the multiplier assumed at position pos (1-based) when
// simulating a perfect run.
func MaxStreakMultiplier(pos int) float64 {
	return math.Min(maxStreakCap, 1+maxStreakRate*float64(pos))
}

// MaxRawPoints is the raw total of a perfect, instant run over n questions.
// It never returns 0 so it can be used as a divisor.
func MaxRawPoints(n int) float64 {
	total := 0.0
	for s := 1; s <= n; s++ {
		total += BasePoints() * MaxStreakMultiplier(s)
	}
	if total == 0 {
		return 1
	}
	return total
}

// Apply scores one answer against state. A wrong or timed out answer resets the
// streak before anything is computed.
func Apply(state *domain.ScoreState, q domain.Question, selected domain.OptionTag, timedOut bool, elapsed time.Duration) domain.AnswerOutcome {
	correct := !timedOut && selected != "" && selected == q.Answer

	if state.Stats.ByDifficulty == nil {
		state.Stats = domain.NewStats()
	}
	if tally, ok := state.Stats.ByDifficulty[q.Difficulty]; ok {
		tally.Total++
		if correct {
			tally.Correct++
		}
		state.Stats.ByDifficulty[q.Difficulty] = tally
	}
	if !correct && q.Type == domain.TypeMultipleChoice {
		state.Stats.FastWrong.TotalWrong++
		if elapsed <= domain.FastWrongWindow {
			state.Stats.FastWrong.Fast++
		}
	}

	out := domain.AnswerOutcome{
		QuestionID: q.ID,
		Selected:   selected,
		Answer:     q.Answer,
		Correct:    correct,
		TimedOut:   timedOut,
		Elapsed:    elapsed,
	}
	if !correct {
		state.Streak = 0
		out.RawPoints = state.RawPoints
		return out
	}

	state.Streak++
	out.TimeFactor = TimeFactor(elapsed)
	out.Multiplier = LiveStreakMultiplier(state.Streak)
	out.Awarded = BasePoints() * out.TimeFactor * out.Multiplier
	state.RawPoints += out.Awarded
	out.RawPoints = state.RawPoints
	out.Streak = state.Streak
	return out
}

// FinalScore normalizes raw points against maxRaw, rounded and clamped to [0, PointsMax].
func FinalScore(raw, maxRaw float64) int {
	if maxRaw <= 0 {
		maxRaw = 1
	}
	v := math.Round(float64(domain.PointsMax) * raw / maxRaw)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > domain.PointsMax {
		return domain.PointsMax
	}
	return int(v)
}

// BadgeFor returns the highest badge whose threshold score reaches.
func BadgeFor(score int) domain.Badge {
	chosen := domain.Badges[0]
	for _, b := range domain.Badges {
		if score >= b.Min {
			chosen = b
		}
	}
	return chosen
}
