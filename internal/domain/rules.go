package domain

import "time"

const (
	// QuizSize is the number of questions in a full quiz set.
	QuizSize = 24
	// PointsMax is the top of the normalized score range.
	PointsMax = 1000
	// TimeLimit is how long a question may stay unanswered, carry included.
	TimeLimit = 30 * time.Second
	// FinishDuration is the length of the transition between the last answer and the result.
	FinishDuration = 10 * time.Second
	// FastWrongWindow bounds a "fast" wrong multiple-choice answer.
	FastWrongWindow = 3 * time.Second
	// DefaultPlayerName is used when a player leaves the name blank.
	DefaultPlayerName = "Player"
)

// Quotas are the per-axis target counts for a quiz set.
type Quotas struct {
	Difficulty map[Difficulty]int
	Area       map[Area]int
	Type       map[QuestionType]int
}

// DefaultQuotas returns a fresh copy of the quota tables.
func DefaultQuotas() Quotas {
	return Quotas{
		Difficulty: map[Difficulty]int{
			DifficultyEasy:   6,
			DifficultyMedium: 8,
			DifficultyHard:   6,
			DifficultyElite:  4,
		},
		Area: map[Area]int{
			AreaMechanics: 6,
			AreaUnits:     6,
			AreaCivs:      6,
			AreaStrategy:  6,
		},
		Type: map[QuestionType]int{
			TypeMultipleChoice: 18,
			TypeTrueFalse:      6,
		},
	}
}

// Clone copies the quota maps so they can be consumed.
func (q Quotas) Clone() Quotas {
	c := Quotas{
		Difficulty: make(map[Difficulty]int, len(q.Difficulty)),
		Area:       make(map[Area]int, len(q.Area)),
		Type:       make(map[QuestionType]int, len(q.Type)),
	}
	for k, v := range q.Difficulty {
		c.Difficulty[k] = v
	}
	for k, v := range q.Area {
		c.Area[k] = v
	}
	for k, v := range q.Type {
		c.Type[k] = v
	}
	return c
}

// Badges is ordered by ascending minimum score.
var Badges = []Badge{
	{Min: 0, Key: "bronze", Title: "Bronze"},
	{Min: 200, Key: "silver", Title: "Silver"},
	{Min: 400, Key: "gold", Title: "Gold"},
	{Min: 600, Key: "platinum", Title: "Platinum"},
	{Min: 750, Key: "diamond", Title: "Diamond"},
	{Min: 900, Key: "conqueror", Title: "Conqueror"},
}
