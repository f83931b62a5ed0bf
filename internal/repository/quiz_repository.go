package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/winova/contest-api/internal/models"
)

// QuizRepository reads quiz definitions. Quiz authoring belongs to the admin
// CRUD layer; the evaluator only needs the active quiz for a contest.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs the repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// FindActiveByContest returns the active quiz attached to a contest.
func (r *QuizRepository) FindActiveByContest(ctx context.Context, contestID string) (*models.Quiz, error) {
	const query = `SELECT id, contest_id, question, options, correct_answer, explanation, is_active, created_at, updated_at
        FROM quizzes WHERE contest_id = $1 AND is_active = TRUE`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, contestID); err != nil {
		return nil, err
	}
	return &quiz, nil
}
