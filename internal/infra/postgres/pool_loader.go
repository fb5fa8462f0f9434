package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"knowledge-quiz-service/internal/domain"
)

const selectQuestionsSQL = `SELECT id, value, type, answer, prompt, options, area, difficulty
FROM questions ORDER BY id`

// PoolLoader loads the question bank from Postgres.
type PoolLoader struct {
	pool *pgxpool.Pool
}

func NewPoolLoader(pool *pgxpool.Pool) *PoolLoader {
	return &PoolLoader{pool: pool}
}

func (l *PoolLoader) LoadPool(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, selectQuestionsSQL)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var pool []domain.Question
	for rows.Next() {
		var rec questionRecord
		if err := rows.Scan(&rec.ID, &rec.Value, &rec.Type, &rec.Answer, &rec.Prompt, &rec.Options, &rec.Area, &rec.Difficulty); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q, ok := rec.toQuestion()
		if !ok {
			log.Printf("skipping invalid stored question %q", rec.ID)
			continue
		}
		pool = append(pool, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return pool, nil
}

// questionRecord is a row of the questions table as scanned by pgx.
type questionRecord struct {
	ID         string
	Value      float64
	Type       string
	Answer     string
	Prompt     string
	Options    []byte
	Area       string
	Difficulty string
}

// toQuestion re-applies the pool invariants, so rows edited by hand cannot break
// the builder.
func (r questionRecord) toQuestion() (domain.Question, bool) {
	qtype, ok := domain.ParseQuestionType(r.Type)
	if !ok {
		return domain.Question{}, false
	}
	answer, ok := domain.ParseOptionTag(r.Answer)
	if !ok {
		return domain.Question{}, false
	}
	var options []domain.Option
	if err := json.Unmarshal(r.Options, &options); err != nil {
		return domain.Question{}, false
	}
	q := domain.Question{
		ID:         r.ID,
		Value:      r.Value,
		Type:       qtype,
		Answer:     answer,
		Prompt:     r.Prompt,
		Options:    options,
		Area:       domain.ParseArea(r.Area),
		Difficulty: domain.ParseDifficulty(r.Difficulty),
	}
	return q, q.Valid()
}
