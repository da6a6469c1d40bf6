package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"friedrich-quiz-service/internal/domain"
	"friedrich-quiz-service/internal/quiz"
)

// QuestionSetLoader loads question-set JSONB from Postgres.
type QuestionSetLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionSetLoader(pool *pgxpool.Pool) *QuestionSetLoader {
	return &QuestionSetLoader{pool: pool}
}

func (l *QuestionSetLoader) LoadQuestionSet(ctx context.Context, setID string) (quiz.Set, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_sets WHERE id=$1`, setID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return quiz.Set{}, domain.ErrQuestionSetNotFound
	}
	if err != nil {
		return quiz.Set{}, fmt.Errorf("load question set: %w", err)
	}
	var set quiz.Set
	if err := json.Unmarshal(raw, &set); err != nil {
		return quiz.Set{}, fmt.Errorf("unmarshal question set: %w", err)
	}
	return set, nil
}
