package domain

import (
	"strings"
	"time"
)

// QuestionType is the answer format of a question.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "MC"
	TypeTrueFalse      QuestionType = "TF"
)

// QuestionTypes lists the accepted question types in preference order.
var QuestionTypes = []QuestionType{TypeMultipleChoice, TypeTrueFalse}

// OptionTag labels an option by the spreadsheet column it came from.
type OptionTag string

const (
	TagF OptionTag = "F"
	TagG OptionTag = "G"
	TagH OptionTag = "H"
	TagI OptionTag = "I"
)

// OptionTags is the fixed tag set, in column order.
var OptionTags = []OptionTag{TagF, TagG, TagH, TagI}

// Area is the subject classification of a question.
type Area string

const (
	AreaMechanics Area = "Mechanics"
	AreaUnits     Area = "Units"
	AreaCivs      Area = "Civs"
	AreaStrategy  Area = "Strategy"
	AreaUnknown   Area = "Unknown"
)

// Areas lists the quota-bearing areas in a stable order.
var Areas = []Area{AreaMechanics, AreaUnits, AreaCivs, AreaStrategy}

// Difficulty is the difficulty tier of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
	DifficultyElite  Difficulty = "Elite"
)

// Difficulties lists the tiers from easiest to hardest.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyElite}

// DifficultyPriority is the order in which tiers are filled when building a quiz set.
var DifficultyPriority = []Difficulty{DifficultyElite, DifficultyHard, DifficultyMedium, DifficultyEasy}

// ParseArea canonicalizes an area name; unrecognized names map to AreaUnknown.
func ParseArea(raw string) Area {
	key := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range Areas {
		if strings.ToLower(string(a)) == key {
			return a
		}
	}
	return AreaUnknown
}

// ParseDifficulty canonicalizes a difficulty name; unrecognized names map to DifficultyMedium.
func ParseDifficulty(raw string) Difficulty {
	key := strings.ToLower(strings.TrimSpace(raw))
	for _, d := range Difficulties {
		if strings.ToLower(string(d)) == key {
			return d
		}
	}
	return DifficultyMedium
}

// ParseQuestionType reports the question type named by raw.
func ParseQuestionType(raw string) (QuestionType, bool) {
	switch QuestionType(strings.ToUpper(strings.TrimSpace(raw))) {
	case TypeMultipleChoice:
		return TypeMultipleChoice, true
	case TypeTrueFalse:
		return TypeTrueFalse, true
	}
	return "", false
}

// ParseOptionTag reports the option tag named by raw.
func ParseOptionTag(raw string) (OptionTag, bool) {
	tag := OptionTag(strings.ToUpper(strings.TrimSpace(raw)))
	for _, t := range OptionTags {
		if t == tag {
			return t, true
		}
	}
	return "", false
}

// Option represents a possible answer for a question.
type Option struct {
	Tag  OptionTag `json:"tag"`
	Text string    `json:"text"`
}

// Question is a single trivia question. Carry and Answered only live for one session.
type Question struct {
	ID         string       `json:"id"`
	Value      float64      `json:"value"`
	Type       QuestionType `json:"type"`
	Answer     OptionTag    `json:"answer"`
	Prompt     string       `json:"prompt"`
	Options    []Option     `json:"options"`
	Area       Area         `json:"area"`
	Difficulty Difficulty   `json:"difficulty"`

	Carry    time.Duration `json:"-"`
	Answered bool          `json:"-"`
}

// Clone returns an independent copy with session state reset.
func (q Question) Clone() Question {
	c := q
	c.Options = make([]Option, len(q.Options))
	copy(c.Options, q.Options)
	c.Carry = 0
	c.Answered = false
	return c
}

// HasOption reports whether tag names one of the question's options.
func (q Question) HasOption(tag OptionTag) bool {
	for _, o := range q.Options {
		if o.Tag == tag {
			return true
		}
	}
	return false
}

// Valid reports whether the question satisfies the pool invariants.
func (q Question) Valid() bool {
	if q.ID == "" || q.Prompt == "" {
		return false
	}
	switch q.Type {
	case TypeMultipleChoice:
		if len(q.Options) != 4 {
			return false
		}
	case TypeTrueFalse:
		if len(q.Options) != 2 {
			return false
		}
	default:
		return false
	}
	return q.HasOption(q.Answer)
}

// QuizSet is the ordered question list of one session.
type QuizSet struct {
	Questions    []Question `json:"questions"`
	MaxRawPoints float64    `json:"maxRawPoints"`
}

// Tally counts correct answers out of a total.
type Tally struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// FastWrong counts wrong multiple-choice answers given within FastWrongWindow.
type FastWrong struct {
	Fast       int `json:"fast"`
	TotalWrong int `json:"totalWrong"`
}

// Stats are display-only counters; they never affect the score.
type Stats struct {
	ByDifficulty map[Difficulty]Tally `json:"byDifficulty"`
	FastWrong    FastWrong            `json:"fastWrong"`
}

// NewStats returns zeroed stats for every difficulty tier.
func NewStats() Stats {
	by := make(map[Difficulty]Tally, len(Difficulties))
	for _, d := range Difficulties {
		by[d] = Tally{}
	}
	return Stats{ByDifficulty: by}
}

// ScoreState is the scoring part of a session.
type ScoreState struct {
	Streak    int     `json:"streak"`
	RawPoints float64 `json:"rawPoints"`
	Stats     Stats   `json:"stats"`
}

// NewScoreState returns a fresh score state.
func NewScoreState() ScoreState {
	return ScoreState{Stats: NewStats()}
}

// AnswerOutcome summarizes how one answer was scored.
type AnswerOutcome struct {
	QuestionID string        `json:"questionId"`
	Selected   OptionTag     `json:"selected,omitempty"`
	Answer     OptionTag     `json:"answer"`
	Correct    bool          `json:"correct"`
	TimedOut   bool          `json:"timedOut"`
	Elapsed    time.Duration `json:"elapsed"`
	TimeFactor float64       `json:"timeFactor"`
	Multiplier float64       `json:"multiplier"`
	Awarded    float64       `json:"awarded"`
	RawPoints  float64       `json:"rawPoints"`
	Streak     int           `json:"streak"`
}

// Badge is a result tier unlocked at a minimum score.
type Badge struct {
	Min   int    `json:"min"`
	Key   string `json:"key"`
	Title string `json:"title"`
}

// Result is the read-only outcome of a finished session.
type Result struct {
	SessionID    string  `json:"sessionId"`
	PlayerName   string  `json:"playerName"`
	Score        int     `json:"score"`
	Badge        Badge   `json:"badge"`
	RawPoints    float64 `json:"rawPoints"`
	MaxRawPoints float64 `json:"maxRawPoints"`
	Questions    int     `json:"questions"`
	Stats        Stats   `json:"stats"`
	ShareText    string  `json:"shareText"`
}

// Clone copies the per-difficulty map.
func (s Stats) Clone() Stats {
	c := Stats{FastWrong: s.FastWrong, ByDifficulty: make(map[Difficulty]Tally, len(s.ByDifficulty))}
	for k, v := range s.ByDifficulty {
		c.ByDifficulty[k] = v
	}
	return c
}
