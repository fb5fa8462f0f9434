package ingest

import (
	"math"
	"strconv"
	"strings"

	"knowledge-quiz-service/internal/domain"
)

// Column positions of the published spreadsheet.
const (
	colID = iota
	colValue
	colType
	colAnswer
	colPrompt
	colOption1
	colOption2
	colOption3
	colOption4
	colArea
	colDifficulty
)

const headerSentinel = "questid"

// NormalizeRow maps a raw row onto a Question. It reports false when the row is
// the header or does not describe a valid question.
func NormalizeRow(row []string) (domain.Question, bool) {
	id := field(row, colID)
	if id == "" || strings.EqualFold(id, headerSentinel) {
		return domain.Question{}, false
	}
	prompt := field(row, colPrompt)
	if prompt == "" {
		return domain.Question{}, false
	}
	qtype, ok := domain.ParseQuestionType(field(row, colType))
	if !ok {
		return domain.Question{}, false
	}
	answer, ok := domain.ParseOptionTag(field(row, colAnswer))
	if !ok {
		return domain.Question{}, false
	}

	options := make([]domain.Option, 0, len(domain.OptionTags))
	for i, tag := range domain.OptionTags {
		options = append(options, domain.Option{Tag: tag, Text: field(row, colOption1+i)})
	}
	if qtype == domain.TypeTrueFalse {
		options = options[:2]
	}

	q := domain.Question{
		ID:         id,
		Value:      parseValue(field(row, colValue)),
		Type:       qtype,
		Answer:     answer,
		Prompt:     prompt,
		Options:    options,
		Area:       domain.ParseArea(field(row, colArea)),
		Difficulty: domain.ParseDifficulty(field(row, colDifficulty)),
	}
	if !q.Valid() {
		return domain.Question{}, false
	}
	return q, true
}

// ParsePool parses CSV text into the question pool, skipping the header row,
// rejected rows and repeated ids.
func ParsePool(text string) []domain.Question {
	table := ParseCSV(text)
	if len(table.Rows) < 2 {
		return nil
	}
	seen := make(map[string]struct{}, len(table.Rows))
	pool := make([]domain.Question, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		q, ok := NormalizeRow(row)
		if !ok {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		pool = append(pool, q)
	}
	return pool
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseValue accepts a comma as decimal separator and falls back to 0.
func parseValue(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
