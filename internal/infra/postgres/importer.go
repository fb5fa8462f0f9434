package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"knowledge-quiz-service/internal/domain"
)

// questionRow is the bun model of the questions table.
type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID         string          `bun:"id,pk"`
	Value      float64         `bun:"value"`
	Type       string          `bun:"type"`
	Answer     string          `bun:"answer"`
	Prompt     string          `bun:"prompt"`
	Options    []domain.Option `bun:"options,type:jsonb"`
	Area       string          `bun:"area"`
	Difficulty string          `bun:"difficulty"`
	ImportedAt time.Time       `bun:"imported_at"`
}

func newQuestionRow(q domain.Question, now time.Time) questionRow {
	return questionRow{
		ID:         q.ID,
		Value:      q.Value,
		Type:       string(q.Type),
		Answer:     string(q.Answer),
		Prompt:     q.Prompt,
		Options:    q.Options,
		Area:       string(q.Area),
		Difficulty: string(q.Difficulty),
		ImportedAt: now,
	}
}

// Importer upserts a normalized pool into the question bank.
type Importer struct {
	db    *bun.DB
	clock func() time.Time
}

func NewImporter(db *bun.DB) *Importer {
	return &Importer{db: db, clock: time.Now}
}

// Import writes every valid question, replacing rows with the same id, and
// returns how many were written.
func (i *Importer) Import(ctx context.Context, pool []domain.Question) (int, error) {
	now := i.clock()
	rows := make([]questionRow, 0, len(pool))
	for _, q := range pool {
		if !q.Valid() {
			continue
		}
		rows = append(rows, newQuestionRow(q, now))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := i.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (id) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("type = EXCLUDED.type").
			Set("answer = EXCLUDED.answer").
			Set("prompt = EXCLUDED.prompt").
			Set("options = EXCLUDED.options").
			Set("area = EXCLUDED.area").
			Set("difficulty = EXCLUDED.difficulty").
			Set("imported_at = EXCLUDED.imported_at").
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("import questions: %w", err)
	}
	return len(rows), nil
}
